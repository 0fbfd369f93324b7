// Package server exposes an exchange over a line-oriented TCP/JSON
// protocol. Accepted connections are drained by a fixed pool of worker
// goroutines; each connection carries newline-delimited JSON requests
// and receives one JSON response per request.
package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/crossline/crossline-exchange/matching"
)

const maxLineSize = 1 << 16

// Config holds the server listen settings.
type Config struct {
	// ListenAddr is the TCP address clients connect to.
	ListenAddr string

	// MetricsAddr serves Prometheus metrics over HTTP when non-empty.
	MetricsAddr string

	// Workers is the amount of goroutines handling connections.
	Workers int
}

// Server accepts client connections and dispatches their requests to
// the exchange.
type Server struct {
	cfg      Config
	exchange *matching.Exchange
	logger   *zap.Logger
	metrics  *Metrics

	connCh chan net.Conn

	mu       sync.Mutex
	conns    map[net.Conn]struct{}
	listener net.Listener
}

// New creates a server for the given exchange.
func New(exchange *matching.Exchange, logger *zap.Logger, metrics *Metrics, cfg Config) *Server {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	return &Server{
		cfg:      cfg,
		exchange: exchange,
		logger:   logger,
		metrics:  metrics,
		connCh:   make(chan net.Conn),
		conns:    make(map[net.Conn]struct{}),
	}
}

// Addr returns the address the server is listening on. Valid after
// ListenAndServe has started accepting.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// ListenAndServe accepts connections until the context is cancelled,
// then stops accepting, closes open connections and waits for the
// workers to drain.
func (s *Server) ListenAndServe(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.ListenAddr, err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	s.logger.Info("server listening",
		zap.String("addr", listener.Addr().String()),
		zap.Int("workers", s.cfg.Workers))

	var metricsSrv *http.Server
	if s.cfg.MetricsAddr != "" {
		metricsSrv = s.serveMetrics()
	}

	var workers sync.WaitGroup
	for i := 0; i < s.cfg.Workers; i++ {
		workers.Add(1)
		go func() {
			defer workers.Done()
			for conn := range s.connCh {
				s.handleConn(ctx, conn)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		listener.Close()
		s.closeConns()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			s.logger.Warn("accept failed", zap.Error(err))
			continue
		}
		s.connCh <- conn
	}

	close(s.connCh)
	s.closeConns()
	workers.Wait()

	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		metricsSrv.Shutdown(shutdownCtx)
	}

	s.logger.Info("server stopped")
	return nil
}

func (s *Server) serveMetrics() *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: s.cfg.MetricsAddr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Warn("metrics server failed", zap.Error(err))
		}
	}()
	return srv
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	if ctx.Err() != nil {
		conn.Close()
		return
	}
	connID := uuid.NewString()
	logger := s.logger.With(
		zap.String("conn_id", connID),
		zap.String("remote_addr", conn.RemoteAddr().String()))
	logger.Debug("client connected")

	s.trackConn(conn, true)
	s.metrics.OpenConnections.Inc()
	defer func() {
		conn.Close()
		s.trackConn(conn, false)
		s.metrics.OpenConnections.Dec()
		logger.Debug("client disconnected")
	}()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 4096), maxLineSize)
	encoder := json.NewEncoder(conn)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		response := s.dispatch(logger, line)
		if err := encoder.Encode(response); err != nil {
			logger.Warn("write failed", zap.Error(err))
			return
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		logger.Warn("read failed", zap.Error(err))
	}
}

// dispatch decodes a single request line and routes it to the exchange.
func (s *Server) dispatch(logger *zap.Logger, line []byte) any {
	req, err := decodeRequest(line)
	if err != nil {
		logger.Warn("malformed request", zap.Error(err))
		return errorResponse{Error: "malformed request"}
	}
	logger.Debug("handling request", zap.String("action", req.Action))
	s.metrics.RequestsTotal.WithLabelValues(req.Action).Inc()

	switch req.Action {
	case "register_user":
		success, err := s.exchange.RegisterUser(req.UserID)
		if err != nil {
			return encodeError(err)
		}
		return successResponse{Success: success}

	case "get_tickers":
		return tickersResponse{Tickers: s.exchange.GetTickers()}

	case "handle_order":
		result, err := s.exchange.HandleOrder(req.UserID, req.Ticker, sideFromWire(req.OrderType), req.Volume, req.Price)
		if err != nil {
			logger.Warn("order rejected", zap.Error(err))
			return encodeError(err)
		}
		s.metrics.TradesTotal.Add(float64(len(result.Trades)))
		return orderResponse{
			OrderAddedToBook: result.OrderAddedToBook,
			OrderID:          result.OrderID,
			TradesExecuted:   result.TradesExecuted,
			Trades:           encodeTrades(result.Trades),
		}

	case "cancel_order":
		success, err := s.exchange.CancelOrder(req.Ticker, req.OrderID)
		if err != nil {
			return encodeError(err)
		}
		return successResponse{Success: success}

	case "get_top_of_book":
		top, err := s.exchange.GetTopOfBook(req.Ticker)
		if err != nil {
			return encodeError(err)
		}
		return topOfBookResponse{
			HasTop:    top.HasBid || top.HasAsk,
			BidPrice:  top.BidPrice,
			AskPrice:  top.AskPrice,
			BidVolume: top.BidVolume,
			AskVolume: top.AskVolume,
		}

	case "get_volume":
		volume, err := s.exchange.GetVolume(req.Ticker, req.Price, sideFromWire(req.OrderType))
		if err != nil {
			return encodeError(err)
		}
		return volumeResponse{Volume: volume}

	case "get_previous_trades":
		trades, err := s.exchange.GetPreviousTrades(req.Ticker, req.NumPreviousTrades)
		if err != nil {
			return encodeError(err)
		}
		return tradesResponse{Trades: encodeTrades(trades)}

	case "get_trades_by_user":
		return tradesResponse{Trades: encodeTrades(s.exchange.GetTradesByUser(req.UserID))}

	default:
		return errorResponse{Error: "unknown action"}
	}
}

func (s *Server) trackConn(conn net.Conn, add bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if add {
		s.conns[conn] = struct{}{}
	} else {
		delete(s.conns, conn)
	}
}

func (s *Server) closeConns() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.conns {
		conn.Close()
	}
}
