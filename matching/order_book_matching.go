package matching

import (
	"gopkg.in/typ.v4"
)

// priceEpsilon is the tolerance used when comparing bid and ask prices.
// A bid crosses an ask when bid >= ask - priceEpsilon.
const priceEpsilon = 1e-6

// HandleOrder matches the given order against the book and rests any
// unfilled residual. Validation failures leave the book untouched.
func (ob *OrderBook) HandleOrder(userID string, side OrderSide, volume int64, price float64, timestamp int64) (OrderResult, error) {
	if err := ob.validateOrder(userID, side, volume, price); err != nil {
		return OrderResult{OrderID: UnplacedOrderID}, err
	}

	result := OrderResult{OrderID: UnplacedOrderID}
	remaining := volume

	for remaining > 0 {
		level, ok := ob.bestOppositeLevel(side)
		if !ok || !crosses(side, price, level.Price()) {
			break
		}
		remaining = ob.matchAtLevel(level, userID, side, remaining, timestamp, &result)
	}

	if remaining > 0 {
		order := ob.restOrder(userID, side, remaining, price, timestamp)
		result.OrderAddedToBook = true
		result.OrderID = order.id
	}
	result.TradesExecuted = len(result.Trades) > 0
	return result, nil
}

func (ob *OrderBook) validateOrder(userID string, side OrderSide, volume int64, price float64) error {
	if userID == "" {
		return ErrInvalidUserID
	}
	if !side.Valid() {
		return ErrInvalidOrderSide
	}
	if volume <= 0 {
		return ErrInvalidOrderVolume
	}
	if price <= 0 {
		return ErrInvalidOrderPrice
	}
	return nil
}

// bestOppositeLevel returns the level an incoming order on the given
// side would match against first: the lowest ask for a buy, the highest
// bid for a sell.
func (ob *OrderBook) bestOppositeLevel(side OrderSide) (*PriceLevelQueue, bool) {
	if side == OrderSideBuy {
		_, level, ok := ob.asks.Min()
		return level, ok
	}
	_, level, ok := ob.bids.Max()
	return level, ok
}

func crosses(side OrderSide, price, oppositePrice float64) bool {
	if side == OrderSideBuy {
		return price >= oppositePrice-priceEpsilon
	}
	return oppositePrice >= price-priceEpsilon
}

// matchAtLevel fills the incoming order against resting orders at the
// level in FIFO order and returns the incoming volume still unfilled.
// Trades execute at the level price.
func (ob *OrderBook) matchAtLevel(level *PriceLevelQueue, userID string, side OrderSide, remaining int64, timestamp int64, result *OrderResult) int64 {
	opposite := side.Opposite()
	for remaining > 0 && level.HasOrders() {
		resting, err := level.Peek()
		if err != nil {
			ob.handler.OnError(ob, err)
			break
		}

		fill := typ.Min(remaining, resting.remaining)
		remaining -= fill
		resting.remaining -= fill
		ob.subtractVolume(opposite, level.Price(), fill)

		trade := Trade{
			ID:        ob.ids.Next(),
			Ticker:    ob.ticker,
			Volume:    fill,
			Price:     level.Price(),
			Timestamp: timestamp,
		}
		if side == OrderSideBuy {
			trade.BidUserID = userID
			trade.AskUserID = resting.userID
		} else {
			trade.BidUserID = resting.userID
			trade.AskUserID = userID
		}
		ob.trades = append(ob.trades, trade)
		result.Trades = append(result.Trades, trade)
		ob.handler.OnExecuteTrade(ob, trade)

		if resting.IsFilled() {
			if _, err := level.Pop(); err != nil {
				ob.handler.OnError(ob, err)
				break
			}
			ob.orders.Delete(resting.id)
			ob.handler.OnDeleteOrder(ob, resting)
			ob.allocator.PutOrder(resting)
		}
	}
	if !level.HasOrders() {
		ob.deleteLevel(opposite, level)
	}
	return remaining
}

// restOrder places the unfilled residual on the book as a new order.
func (ob *OrderBook) restOrder(userID string, side OrderSide, volume int64, price float64, timestamp int64) *Order {
	order := ob.allocator.GetOrder()
	*order = Order{
		id:        ob.ids.Next(),
		userID:    userID,
		side:      side,
		price:     price,
		ticker:    ob.ticker,
		timestamp: timestamp,
		remaining: volume,
	}

	ladder := ob.sideLevels(side)
	level, ok := ladder.Get(price)
	if !ok {
		level = ob.allocator.GetPriceLevel(price)
		ladder.Set(price, level)
	}
	if err := level.Add(order); err != nil {
		ob.handler.OnError(ob, err)
	}
	ob.orders.Set(order.id, order)
	ob.addVolume(side, price, volume)
	ob.handler.OnAddOrder(ob, order)
	return order
}
