package matching

// Trade is an immutable record of a single execution between a resting
// order and an incoming order.
type Trade struct {
	// ID is unique across all trades and orders of the exchange.
	ID int64

	Ticker string

	// BidUserID and AskUserID identify the two sides of the trade
	// regardless of which of them was the aggressor.
	BidUserID string
	AskUserID string

	Volume int64

	// Price the trade executed at: the price of the resting order.
	Price float64

	// Timestamp of the incoming order that triggered the trade.
	Timestamp int64
}
