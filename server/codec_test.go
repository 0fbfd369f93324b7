package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crossline/crossline-exchange/matching"
)

func TestDecodeRequest(t *testing.T) {
	req, err := decodeRequest([]byte(`{"action":"handle_order","user_id":"u1","ticker":"MSFT","order_type":1,"volume":10,"price":99.5}`))
	require.NoError(t, err)
	assert.Equal(t, "handle_order", req.Action)
	assert.Equal(t, "u1", req.UserID)
	assert.Equal(t, "MSFT", req.Ticker)
	assert.Equal(t, 1, req.OrderType)
	assert.Equal(t, int64(10), req.Volume)
	assert.Equal(t, 99.5, req.Price)

	_, err = decodeRequest([]byte(`{not json`))
	require.Error(t, err)
}

func TestSideFromWire(t *testing.T) {
	assert.Equal(t, matching.OrderSideSell, sideFromWire(1))
	assert.Equal(t, matching.OrderSideBuy, sideFromWire(0))
	// Anything but 1 is treated as a bid.
	assert.Equal(t, matching.OrderSideBuy, sideFromWire(7))
}

func TestEncodeTrades(t *testing.T) {
	trades := []matching.Trade{
		{ID: 3, Ticker: "MSFT", BidUserID: "b", AskUserID: "a", Volume: 5, Price: 101.5, Timestamp: 1700000000},
	}

	encoded := encodeTrades(trades)
	require.Len(t, encoded, 1)
	assert.Equal(t, wireTrade{
		BidUserID: "b",
		AskUserID: "a",
		Price:     101.5,
		Volume:    5,
		Timestamp: 1700000000,
	}, encoded[0])

	assert.Empty(t, encodeTrades(nil))
}

func TestEncodeError(t *testing.T) {
	assert.Equal(t, "invalid order volume", encodeError(matching.ErrInvalidOrderVolume).Error)
	assert.Equal(t, "order book is not found", encodeError(matching.ErrOrderBookNotFound).Error)
	assert.Equal(t, "internal error", encodeError(assert.AnError).Error)
}
