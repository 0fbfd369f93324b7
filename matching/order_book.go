package matching

import (
	"github.com/tidwall/btree"
	"github.com/tidwall/hashmap"
	"gopkg.in/typ.v4"
)

const priceLadderDegree = 32

// OrderBook is used to store buy and sell orders of a single instrument
// in price level order.
// NOTE: Not thread-safe.
type OrderBook struct {
	// Allocator used by the order book
	allocator *Allocator

	// Source of order and trade ids, shared across books
	ids *IDSource

	// Handler receiving state change notifications
	handler Handler

	// Instrument traded on the book
	ticker string

	// Bid/Ask price levels keyed by price.
	// A level is removed as soon as it empties, so every stored level
	// has at least one order: asks.Min() and bids.Max() are always the
	// best levels when present.
	bids *btree.Map[float64, *PriceLevelQueue]
	asks *btree.Map[float64, *PriceLevelQueue]

	// Cached remaining volume per price, maintained on every mutation
	bidVolumes *hashmap.Map[float64, int64]
	askVolumes *hashmap.Map[float64, int64]

	// Orders storage is internal for each order book
	orders *hashmap.Map[int64, *Order]

	// Trades executed on the book, in execution order
	trades []Trade
}

// NewOrderBook creates and returns a new order book for the given ticker.
func NewOrderBook(allocator *Allocator, ids *IDSource, handler Handler, ticker string) *OrderBook {
	return &OrderBook{
		allocator:  allocator,
		ids:        ids,
		handler:    handler,
		ticker:     ticker,
		bids:       btree.NewMap[float64, *PriceLevelQueue](priceLadderDegree),
		asks:       btree.NewMap[float64, *PriceLevelQueue](priceLadderDegree),
		bidVolumes: hashmap.New[float64, int64](64),
		askVolumes: hashmap.New[float64, int64](64),
		orders:     hashmap.New[int64, *Order](64),
	}
}

// Ticker returns the instrument traded on the order book.
func (ob *OrderBook) Ticker() string {
	return ob.ticker
}

// Size returns the amount of orders resting on the book.
func (ob *OrderBook) Size() int {
	return ob.orders.Len()
}

// IsEmpty reports whether the book holds no resting orders.
func (ob *OrderBook) IsEmpty() bool {
	return ob.orders.Len() == 0
}

// Order returns the resting order with the given id.
func (ob *OrderBook) Order(id int64) (*Order, error) {
	order, ok := ob.orders.Get(id)
	if !ok {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// GetVolume returns the total resting volume at the given price on the
// given side. Zero when no orders rest there.
func (ob *OrderBook) GetVolume(price float64, side OrderSide) (int64, error) {
	if !side.Valid() {
		return 0, ErrInvalidOrderSide
	}
	volume, _ := ob.sideVolumes(side).Get(price)
	return volume, nil
}

// GetTopOfBook returns a snapshot of the best bid and ask of the book.
func (ob *OrderBook) GetTopOfBook() TopOfBook {
	var top TopOfBook
	if price, level, ok := ob.bids.Max(); ok {
		top.HasBid = true
		top.BidPrice = price
		top.BidVolume, _ = ob.bidVolumes.Get(level.Price())
	}
	if price, level, ok := ob.asks.Min(); ok {
		top.HasAsk = true
		top.AskPrice = price
		top.AskVolume, _ = ob.askVolumes.Get(level.Price())
	}
	return top
}

// GetPreviousTrades returns up to count most recent trades of the book
// in execution order.
func (ob *OrderBook) GetPreviousTrades(count int) []Trade {
	n := typ.Clamp(count, 0, len(ob.trades))
	result := make([]Trade, n)
	copy(result, ob.trades[len(ob.trades)-n:])
	return result
}

// CancelOrder removes the resting order with the given id from the book.
func (ob *OrderBook) CancelOrder(id int64) error {
	order, ok := ob.orders.Get(id)
	if !ok {
		return ErrOrderNotFound
	}
	level := order.level
	if err := level.Remove(order); err != nil {
		ob.handler.OnError(ob, err)
		return err
	}
	ob.orders.Delete(id)
	ob.subtractVolume(order.side, order.price, order.remaining)
	if !level.HasOrders() {
		ob.deleteLevel(order.side, level)
	}
	ob.handler.OnDeleteOrder(ob, order)
	ob.allocator.PutOrder(order)
	return nil
}

// Clean releases all resting orders and price levels of the book.
func (ob *OrderBook) Clean() {
	release := func(price float64, level *PriceLevelQueue) bool {
		for {
			order, err := level.Pop()
			if err != nil {
				break
			}
			ob.orders.Delete(order.id)
			ob.allocator.PutOrder(order)
		}
		ob.allocator.PutPriceLevel(level)
		return true
	}
	ob.bids.Scan(release)
	ob.asks.Scan(release)
	ob.bids = btree.NewMap[float64, *PriceLevelQueue](priceLadderDegree)
	ob.asks = btree.NewMap[float64, *PriceLevelQueue](priceLadderDegree)
	ob.bidVolumes = hashmap.New[float64, int64](64)
	ob.askVolumes = hashmap.New[float64, int64](64)
	ob.trades = nil
}

////////////////////////////////////////////////////////////////
// Internal side accessors
////////////////////////////////////////////////////////////////

func (ob *OrderBook) sideLevels(side OrderSide) *btree.Map[float64, *PriceLevelQueue] {
	if side == OrderSideBuy {
		return ob.bids
	}
	return ob.asks
}

func (ob *OrderBook) sideVolumes(side OrderSide) *hashmap.Map[float64, int64] {
	if side == OrderSideBuy {
		return ob.bidVolumes
	}
	return ob.askVolumes
}

func (ob *OrderBook) addVolume(side OrderSide, price float64, volume int64) {
	volumes := ob.sideVolumes(side)
	current, _ := volumes.Get(price)
	volumes.Set(price, current+volume)
}

func (ob *OrderBook) subtractVolume(side OrderSide, price float64, volume int64) {
	volumes := ob.sideVolumes(side)
	current, _ := volumes.Get(price)
	remaining := current - volume
	if remaining <= 0 {
		volumes.Delete(price)
		return
	}
	volumes.Set(price, remaining)
}

func (ob *OrderBook) deleteLevel(side OrderSide, level *PriceLevelQueue) {
	ob.sideLevels(side).Delete(level.Price())
	ob.sideVolumes(side).Delete(level.Price())
	ob.allocator.PutPriceLevel(level)
}
