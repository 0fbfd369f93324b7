package server

import (
	"encoding/json"

	"github.com/crossline/crossline-exchange/matching"
)

// Wire encoding of market sides.
const (
	wireSideBid = 0
	wireSideAsk = 1
)

// request is the union of all fields a client may send. The action
// field selects which of the remaining fields are read.
type request struct {
	Action            string  `json:"action"`
	UserID            string  `json:"user_id"`
	Ticker            string  `json:"ticker"`
	OrderType         int     `json:"order_type"`
	Volume            int64   `json:"volume"`
	Price             float64 `json:"price"`
	OrderID           int64   `json:"order_id"`
	NumPreviousTrades int     `json:"num_previous_trades"`
}

func decodeRequest(data []byte) (request, error) {
	var req request
	err := json.Unmarshal(data, &req)
	return req, err
}

// sideFromWire maps the wire encoding to a market side: 1 is an ask,
// anything else a bid.
func sideFromWire(orderType int) matching.OrderSide {
	if orderType == wireSideAsk {
		return matching.OrderSideSell
	}
	return matching.OrderSideBuy
}

type wireTrade struct {
	BidUserID string  `json:"bid_user_id"`
	AskUserID string  `json:"ask_user_id"`
	Price     float64 `json:"price"`
	Volume    int64   `json:"volume"`
	Timestamp int64   `json:"timestamp"`
}

func encodeTrades(trades []matching.Trade) []wireTrade {
	result := make([]wireTrade, len(trades))
	for i, trade := range trades {
		result[i] = wireTrade{
			BidUserID: trade.BidUserID,
			AskUserID: trade.AskUserID,
			Price:     trade.Price,
			Volume:    trade.Volume,
			Timestamp: trade.Timestamp,
		}
	}
	return result
}

type errorResponse struct {
	Error string `json:"error"`
}

type successResponse struct {
	Success bool `json:"success"`
}

type tickersResponse struct {
	Tickers []string `json:"tickers"`
}

type volumeResponse struct {
	Volume int64 `json:"volume"`
}

type tradesResponse struct {
	Trades []wireTrade `json:"trades"`
}

type topOfBookResponse struct {
	HasTop    bool    `json:"has_top"`
	BidPrice  float64 `json:"bid_price"`
	AskPrice  float64 `json:"ask_price"`
	BidVolume int64   `json:"bid_volume"`
	AskVolume int64   `json:"ask_volume"`
}

type orderResponse struct {
	OrderAddedToBook bool        `json:"order_added_to_book"`
	OrderID          int64       `json:"order_id"`
	TradesExecuted   bool        `json:"trades_executed"`
	Trades           []wireTrade `json:"trades"`
}

// encodeError maps a domain error to its wire representation. Request
// validation failures and lookup misses surface their own message;
// anything else is reported as an internal error.
func encodeError(err error) errorResponse {
	if matching.IsDomainError(err) || matching.IsNotFound(err) {
		return errorResponse{Error: err.Error()}
	}
	return errorResponse{Error: "internal error"}
}
