package main

import (
	"fmt"
	"sync/atomic"

	"github.com/crossline/crossline-exchange/matching"
)

// Recorder counts order book events during a load run.
type Recorder struct {
	addedOrders   atomic.Uint64
	deletedOrders atomic.Uint64
	trades        atomic.Uint64
	tradedVolume  atomic.Int64
	errors        atomic.Uint64
}

func (r *Recorder) OnAddOrder(orderBook *matching.OrderBook, order *matching.Order) {
	r.addedOrders.Add(1)
}

func (r *Recorder) OnDeleteOrder(orderBook *matching.OrderBook, order *matching.Order) {
	r.deletedOrders.Add(1)
}

func (r *Recorder) OnExecuteTrade(orderBook *matching.OrderBook, trade matching.Trade) {
	r.trades.Add(1)
	r.tradedVolume.Add(trade.Volume)
}

func (r *Recorder) OnError(orderBook *matching.OrderBook, err error) {
	r.errors.Add(1)
}

func (r *Recorder) PrintStatistics() {
	fmt.Printf("orders rested:  %d\n", r.addedOrders.Load())
	fmt.Printf("orders removed: %d\n", r.deletedOrders.Load())
	fmt.Printf("trades:         %d\n", r.trades.Load())
	fmt.Printf("traded volume:  %d\n", r.tradedVolume.Load())
	fmt.Printf("errors:         %d\n", r.errors.Load())
}
