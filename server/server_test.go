package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/crossline/crossline-exchange/matching"
)

func startTestServer(t *testing.T) *Server {
	t.Helper()

	exchange, err := matching.NewExchange([]string{"MSFT", "AAPL"})
	require.NoError(t, err)

	srv := New(exchange, zaptest.NewLogger(t), NewMetrics(prometheus.NewRegistry()), Config{
		ListenAddr: "127.0.0.1:0",
		Workers:    2,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.NoError(t, srv.ListenAndServe(ctx))
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("server did not shut down")
		}
	})

	require.Eventually(t, func() bool {
		return srv.Addr() != nil
	}, time.Second, 10*time.Millisecond)

	return srv
}

type testClient struct {
	t       *testing.T
	conn    net.Conn
	scanner *bufio.Scanner
}

func dialTestServer(t *testing.T, srv *Server) *testClient {
	t.Helper()
	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return &testClient{t: t, conn: conn, scanner: bufio.NewScanner(conn)}
}

func (c *testClient) roundTrip(request any) map[string]any {
	c.t.Helper()
	data, err := json.Marshal(request)
	require.NoError(c.t, err)
	_, err = c.conn.Write(append(data, '\n'))
	require.NoError(c.t, err)

	require.True(c.t, c.scanner.Scan(), "no response: %v", c.scanner.Err())
	var response map[string]any
	require.NoError(c.t, json.Unmarshal(c.scanner.Bytes(), &response))
	return response
}

func TestServerEndToEnd(t *testing.T) {
	srv := startTestServer(t)
	client := dialTestServer(t, srv)

	t.Run("register user", func(t *testing.T) {
		response := client.roundTrip(map[string]any{"action": "register_user", "user_id": "alice"})
		assert.Equal(t, true, response["success"])

		response = client.roundTrip(map[string]any{"action": "register_user", "user_id": "alice"})
		assert.Equal(t, false, response["success"])
	})

	t.Run("get tickers", func(t *testing.T) {
		response := client.roundTrip(map[string]any{"action": "get_tickers"})
		assert.Equal(t, []any{"AAPL", "MSFT"}, response["tickers"])
	})

	t.Run("order flow", func(t *testing.T) {
		// Resting ask.
		response := client.roundTrip(map[string]any{
			"action": "handle_order", "user_id": "alice", "ticker": "MSFT",
			"order_type": 1, "volume": 10, "price": 100.0,
		})
		assert.Equal(t, true, response["order_added_to_book"])
		assert.Equal(t, false, response["trades_executed"])

		// Crossing bid.
		response = client.roundTrip(map[string]any{
			"action": "handle_order", "user_id": "bob", "ticker": "MSFT",
			"order_type": 0, "volume": 10, "price": 105.0,
		})
		assert.Equal(t, false, response["order_added_to_book"])
		assert.Equal(t, float64(-1), response["order_id"])
		assert.Equal(t, true, response["trades_executed"])

		trades, ok := response["trades"].([]any)
		require.True(t, ok)
		require.Len(t, trades, 1)
		trade := trades[0].(map[string]any)
		assert.Equal(t, "alice", trade["ask_user_id"])
		assert.Equal(t, "bob", trade["bid_user_id"])
		assert.Equal(t, float64(100), trade["price"])
		assert.Equal(t, float64(10), trade["volume"])
	})

	t.Run("top of book and volume", func(t *testing.T) {
		response := client.roundTrip(map[string]any{
			"action": "handle_order", "user_id": "alice", "ticker": "AAPL",
			"order_type": 0, "volume": 7, "price": 250.0,
		})
		assert.Equal(t, true, response["order_added_to_book"])

		response = client.roundTrip(map[string]any{"action": "get_top_of_book", "ticker": "AAPL"})
		assert.Equal(t, true, response["has_top"])
		assert.Equal(t, float64(250), response["bid_price"])
		assert.Equal(t, float64(7), response["bid_volume"])
		assert.Equal(t, float64(0), response["ask_price"])

		response = client.roundTrip(map[string]any{
			"action": "get_volume", "ticker": "AAPL", "price": 250.0, "order_type": 0,
		})
		assert.Equal(t, float64(7), response["volume"])
	})

	t.Run("previous trades and user history", func(t *testing.T) {
		response := client.roundTrip(map[string]any{
			"action": "get_previous_trades", "ticker": "MSFT", "num_previous_trades": 10,
		})
		trades, ok := response["trades"].([]any)
		require.True(t, ok)
		assert.Len(t, trades, 1)

		response = client.roundTrip(map[string]any{"action": "get_trades_by_user", "user_id": "bob"})
		trades, ok = response["trades"].([]any)
		require.True(t, ok)
		assert.Len(t, trades, 1)
	})

	t.Run("cancel order", func(t *testing.T) {
		response := client.roundTrip(map[string]any{
			"action": "handle_order", "user_id": "alice", "ticker": "MSFT",
			"order_type": 1, "volume": 3, "price": 500.0,
		})
		orderID := int64(response["order_id"].(float64))

		response = client.roundTrip(map[string]any{
			"action": "cancel_order", "ticker": "MSFT", "order_id": orderID,
		})
		assert.Equal(t, true, response["success"])

		response = client.roundTrip(map[string]any{
			"action": "cancel_order", "ticker": "MSFT", "order_id": orderID,
		})
		assert.Equal(t, false, response["success"])
	})

	t.Run("errors keep the connection open", func(t *testing.T) {
		response := client.roundTrip(map[string]any{"action": "warp_speed"})
		assert.Equal(t, "unknown action", response["error"])

		response = client.roundTrip(map[string]any{
			"action": "handle_order", "user_id": "alice", "ticker": "NOPE",
			"order_type": 0, "volume": 1, "price": 1.0,
		})
		assert.Equal(t, "order book is not found", response["error"])

		response = client.roundTrip(map[string]any{
			"action": "handle_order", "user_id": "alice", "ticker": "MSFT",
			"order_type": 0, "volume": -1, "price": 1.0,
		})
		assert.Equal(t, "invalid order volume", response["error"])

		_, err := client.conn.Write([]byte("{malformed\n"))
		require.NoError(t, err)
		require.True(t, client.scanner.Scan())
		var parsed map[string]any
		require.NoError(t, json.Unmarshal(client.scanner.Bytes(), &parsed))
		assert.Equal(t, "malformed request", parsed["error"])

		// Connection still usable afterwards.
		response = client.roundTrip(map[string]any{"action": "get_tickers"})
		assert.NotNil(t, response["tickers"])
	})
}

func TestServerParallelClients(t *testing.T) {
	srv := startTestServer(t)

	done := make(chan struct{})
	for i := 0; i < 4; i++ {
		go func(i int) {
			defer func() { done <- struct{}{} }()
			client := dialTestServer(t, srv)
			for j := 0; j < 50; j++ {
				orderType := j % 2
				response := client.roundTrip(map[string]any{
					"action": "handle_order", "user_id": "u", "ticker": "MSFT",
					"order_type": orderType, "volume": 1, "price": 100.0,
				})
				assert.NotContains(t, response, "error")
			}
			// Release the worker so queued clients get served.
			client.conn.Close()
		}(i)
	}
	for i := 0; i < 4; i++ {
		select {
		case <-done:
		case <-time.After(10 * time.Second):
			t.Fatal("clients did not finish")
		}
	}
}
