package matching

// TopOfBook is a snapshot of the best bid and ask of an order book.
// Prices and volumes are zero for an absent side.
type TopOfBook struct {
	HasBid bool
	HasAsk bool

	BidPrice  float64
	AskPrice  float64
	BidVolume int64
	AskVolume int64
}
