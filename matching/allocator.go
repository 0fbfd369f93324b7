package matching

import (
	"sync"
)

// Allocator is an object encapsulating all used objects allocation using sync.Pool internally.
type Allocator struct {

	// Price levels
	priceLevels sync.Pool

	// Orders
	orders sync.Pool
}

// NewAllocator creates and returns new Allocator instance.
func NewAllocator() *Allocator {
	a := new(Allocator)
	// Price levels
	a.priceLevels = sync.Pool{New: func() any {
		return new(PriceLevelQueue)
	}}
	// Orders
	a.orders = sync.Pool{New: func() any {
		return new(Order)
	}}
	return a
}

////////////////////////////////////////////////////////////////
// Price levels
////////////////////////////////////////////////////////////////

// GetPriceLevel allocates PriceLevelQueue instance for the given price.
func (a *Allocator) GetPriceLevel(price float64) *PriceLevelQueue {
	// Get from the pool
	level := a.priceLevels.Get().(*PriceLevelQueue)
	level.Reset(price)
	return level
}

// PutPriceLevel releases PriceLevelQueue instance.
func (a *Allocator) PutPriceLevel(level *PriceLevelQueue) {
	// Clean up the instance before releasing
	level.Reset(0)
	// Put back to the pool
	a.priceLevels.Put(level)
}

////////////////////////////////////////////////////////////////
// Orders
////////////////////////////////////////////////////////////////

// GetOrder allocates Order instance.
func (a *Allocator) GetOrder() *Order {
	// Get from the pool
	return a.orders.Get().(*Order)
}

// PutOrder releases Order instance.
func (a *Allocator) PutOrder(order *Order) {
	// Clean up the instance before releasing
	*order = Order{}
	// Put back to the pool
	a.orders.Put(order)
}
