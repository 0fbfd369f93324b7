package matching

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/tidwall/hashmap"
)

// ExchangeOption configures optional exchange behaviour.
type ExchangeOption func(*Exchange)

// WithHandler installs the handler notified by all order books.
func WithHandler(handler Handler) ExchangeOption {
	return func(e *Exchange) {
		e.handler = handler
	}
}

// WithClock overrides the timestamp source used for incoming orders.
func WithClock(now func() int64) ExchangeOption {
	return func(e *Exchange) {
		e.now = now
	}
}

// bookEntry pairs an order book with the mutex serializing access to it.
type bookEntry struct {
	mu   sync.Mutex
	book *OrderBook
}

// Exchange routes orders to per-ticker order books and keeps the user
// registry and per-user trade history. Order books are guarded by
// per-book mutexes, so operations on different tickers run in parallel.
type Exchange struct {
	allocator *Allocator
	ids       *IDSource
	handler   Handler
	now       func() int64

	books *hashmap.Map[string, *bookEntry]

	usersMutex sync.Mutex
	users      map[string]struct{}

	tradesMutex  sync.Mutex
	tradesByUser *hashmap.Map[string, []Trade]
}

// NewExchange creates an exchange with one order book per given ticker.
func NewExchange(tickers []string, options ...ExchangeOption) (*Exchange, error) {
	e := &Exchange{
		allocator:    NewAllocator(),
		ids:          NewIDSource(),
		handler:      NopHandler{},
		now:          func() int64 { return time.Now().Unix() },
		books:        hashmap.New[string, *bookEntry](16),
		users:        make(map[string]struct{}),
		tradesByUser: hashmap.New[string, []Trade](64),
	}
	for _, option := range options {
		option(e)
	}
	for _, ticker := range tickers {
		if ticker == "" {
			return nil, ErrInvalidTicker
		}
		e.books.Set(ticker, &bookEntry{
			book: NewOrderBook(e.allocator, e.ids, e.handler, ticker),
		})
	}
	return e, nil
}

// RegisterUser adds the user to the registry. It reports false when the
// user was registered before.
func (e *Exchange) RegisterUser(userID string) (bool, error) {
	if userID == "" {
		return false, ErrInvalidUserID
	}
	e.usersMutex.Lock()
	defer e.usersMutex.Unlock()
	if _, ok := e.users[userID]; ok {
		return false, nil
	}
	e.users[userID] = struct{}{}
	return true, nil
}

// GetTickers returns the tickers traded on the exchange in sorted order.
func (e *Exchange) GetTickers() []string {
	tickers := e.books.Keys()
	sort.Strings(tickers)
	return tickers
}

// HandleOrder submits an order to the ticker's book and records the
// resulting trades under both involved users.
func (e *Exchange) HandleOrder(userID string, ticker string, side OrderSide, volume int64, price float64) (OrderResult, error) {
	entry, ok := e.books.Get(ticker)
	if !ok {
		return OrderResult{OrderID: UnplacedOrderID}, ErrOrderBookNotFound
	}

	entry.mu.Lock()
	result, err := entry.book.HandleOrder(userID, side, volume, price, e.now())
	entry.mu.Unlock()
	if err != nil {
		return result, err
	}

	if result.TradesExecuted {
		e.tradesMutex.Lock()
		for _, trade := range result.Trades {
			e.recordUserTrade(trade.BidUserID, trade)
			e.recordUserTrade(trade.AskUserID, trade)
		}
		e.tradesMutex.Unlock()
	}
	return result, nil
}

// CancelOrder removes a resting order from the ticker's book. It
// reports false when no resting order has the given id.
func (e *Exchange) CancelOrder(ticker string, orderID int64) (bool, error) {
	entry, ok := e.books.Get(ticker)
	if !ok {
		return false, ErrOrderBookNotFound
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	err := entry.book.CancelOrder(orderID)
	if errors.Is(err, ErrOrderNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetTopOfBook returns the best bid and ask of the ticker's book.
func (e *Exchange) GetTopOfBook(ticker string) (TopOfBook, error) {
	entry, ok := e.books.Get(ticker)
	if !ok {
		return TopOfBook{}, ErrOrderBookNotFound
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.book.GetTopOfBook(), nil
}

// GetVolume returns the resting volume at the price on the given side
// of the ticker's book.
func (e *Exchange) GetVolume(ticker string, price float64, side OrderSide) (int64, error) {
	entry, ok := e.books.Get(ticker)
	if !ok {
		return 0, ErrOrderBookNotFound
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.book.GetVolume(price, side)
}

// GetPreviousTrades returns up to count most recent trades of the
// ticker's book in execution order.
func (e *Exchange) GetPreviousTrades(ticker string, count int) ([]Trade, error) {
	entry, ok := e.books.Get(ticker)
	if !ok {
		return nil, ErrOrderBookNotFound
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.book.GetPreviousTrades(count), nil
}

// GetTradesByUser returns all trades the user participated in, in
// recording order. Trades where the user took both sides appear twice.
func (e *Exchange) GetTradesByUser(userID string) []Trade {
	e.tradesMutex.Lock()
	defer e.tradesMutex.Unlock()
	trades, _ := e.tradesByUser.Get(userID)
	result := make([]Trade, len(trades))
	copy(result, trades)
	return result
}

// Reset removes all resting orders, trade logs and per-user trade
// history, releasing pooled objects back to the allocator. Registered
// users stay registered.
func (e *Exchange) Reset() {
	for _, ticker := range e.books.Keys() {
		entry, _ := e.books.Get(ticker)
		entry.mu.Lock()
		entry.book.Clean()
		entry.mu.Unlock()
	}
	e.tradesMutex.Lock()
	e.tradesByUser = hashmap.New[string, []Trade](64)
	e.tradesMutex.Unlock()
}

func (e *Exchange) recordUserTrade(userID string, trade Trade) {
	trades, _ := e.tradesByUser.Get(userID)
	e.tradesByUser.Set(userID, append(trades, trade))
}
