package matching

// OrderResult describes the outcome of a single order submission.
type OrderResult struct {
	// TradesExecuted reports whether the order triggered any trades.
	TradesExecuted bool

	// Trades lists the triggered trades in execution order.
	Trades []Trade

	// OrderAddedToBook reports whether a residual rested on the book.
	OrderAddedToBook bool

	// OrderID is the id of the rested residual, or UnplacedOrderID
	// when the order was fully executed on arrival.
	OrderID int64
}
