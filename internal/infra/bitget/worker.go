package bitget

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"trade_quest/internal/event"
	"trade_quest/internal/infra"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

// Connection states. The reconnect loop is a supervised task with explicit
// state, never recursive self-invocation.
const (
	StateDisconnected int32 = iota
	StateConnecting
	StateConnected
)

// Worker owns the single streaming session to the Bitget public feed. It
// normalizes inbound ticker frames into pooled ticks and pushes them to the
// engine inbox without ever blocking the read loop. Subscription requests
// made while disconnected are queued in the desired set and the whole set
// is replayed on every successful connect, since the venue does not persist
// subscriptions across sessions.
type Worker struct {
	url            string
	keepalive      Keepalive
	inbox          chan<- *event.Tick
	pingInterval   time.Duration
	readTimeout    time.Duration
	reconnectDelay time.Duration

	desiredMu sync.Mutex
	desired   map[string]struct{} // symbols that must stay subscribed

	mu      sync.RWMutex
	writeMu sync.Mutex
	conn    *websocket.Conn
	state   atomic.Int32
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewWorker creates a feed worker wired to the engine inbox.
func NewWorker(cfg *infra.Config, inbox chan<- *event.Tick) *Worker {
	return &Worker{
		url:            cfg.API.Bitget.WSURL,
		keepalive:      NewKeepalive(cfg.Feed.KeepaliveStyle),
		inbox:          inbox,
		pingInterval:   time.Duration(cfg.Feed.PingIntervalSec) * time.Second,
		readTimeout:    time.Duration(cfg.Feed.ReadTimeoutSec) * time.Second,
		reconnectDelay: time.Duration(cfg.Feed.ReconnectDelaySec) * time.Second,
		desired:        make(map[string]struct{}),
	}
}

// Connect starts the connection supervisor. It returns immediately; the
// session is established and re-established in the background.
func (w *Worker) Connect(ctx context.Context) error {
	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.connectionLoop(ctx)
	return nil
}

func (w *Worker) connectionLoop(ctx context.Context) {
	defer w.wg.Done()
	retryCount := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		w.state.Store(StateConnecting)
		if err := w.connect(ctx); err != nil {
			w.state.Store(StateDisconnected)
			slog.Warn("Bitget feed connection failed", slog.Any("error", err), slog.Int("retry", retryCount))
			delay := infra.CalculateBackoff(w.reconnectDelay, retryCount)
			retryCount++
			if retryCount > maxRetries {
				retryCount = 0 // retry forever, the rest of the system keeps running
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			infra.GlobalMetrics.RecordReconnect()
			continue
		}

		retryCount = 0
		pingCtx, stopPing := context.WithCancel(ctx)
		go w.pingLoop(pingCtx)
		w.readLoop(ctx)
		stopPing()

		w.state.Store(StateDisconnected)
		infra.GlobalMetrics.SetFeedConnected(false)

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.reconnectDelay):
		}
		infra.GlobalMetrics.RecordReconnect()
	}
}

func (w *Worker) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}

	header := make(http.Header)
	header.Add("User-Agent", infra.DefaultUserAgent)

	conn, _, err := dialer.DialContext(ctx, w.url, header)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	w.mu.Lock()
	w.conn = conn
	w.mu.Unlock()
	w.state.Store(StateConnected)
	infra.GlobalMetrics.SetFeedConnected(true)

	// Replay the full desired set before any tick is processed.
	if err := w.resubscribeAll(); err != nil {
		w.closeConnection()
		return fmt.Errorf("subscribe failed: %w", err)
	}

	slog.Info("Bitget feed connected", slog.String("url", w.url), slog.Int("symbols", w.desiredCount()))
	return nil
}

// Subscribe adds a symbol to the desired set and sends the control frame
// when connected. Already-subscribed symbols are a no-op; while
// disconnected the request is queued and replayed on the next connect.
func (w *Worker) Subscribe(symbol string) error {
	w.desiredMu.Lock()
	if _, ok := w.desired[symbol]; ok {
		w.desiredMu.Unlock()
		return nil
	}
	w.desired[symbol] = struct{}{}
	w.desiredMu.Unlock()

	if !w.IsConnected() {
		return nil // queued, replayed on connect
	}
	if err := w.sendOp("subscribe", []string{symbol}); err != nil {
		// The desired set still holds the symbol; the reconnect replay covers it.
		slog.Warn("subscribe send failed, will replay on reconnect", slog.String("symbol", symbol), slog.Any("error", err))
	}
	return nil
}

// Unsubscribe removes a symbol from the desired set and notifies the venue
// when connected. Unknown symbols are a no-op.
func (w *Worker) Unsubscribe(symbol string) error {
	w.desiredMu.Lock()
	if _, ok := w.desired[symbol]; !ok {
		w.desiredMu.Unlock()
		return nil
	}
	delete(w.desired, symbol)
	w.desiredMu.Unlock()

	if !w.IsConnected() {
		return nil
	}
	if err := w.sendOp("unsubscribe", []string{symbol}); err != nil {
		slog.Warn("unsubscribe send failed", slog.String("symbol", symbol), slog.Any("error", err))
	}
	return nil
}

func (w *Worker) resubscribeAll() error {
	w.desiredMu.Lock()
	symbols := make([]string, 0, len(w.desired))
	for s := range w.desired {
		symbols = append(symbols, s)
	}
	w.desiredMu.Unlock()

	if len(symbols) == 0 {
		return nil
	}
	return w.sendOp("subscribe", symbols)
}

func (w *Worker) sendOp(op string, symbols []string) error {
	args := make([]subscribeArg, 0, len(symbols))
	for _, s := range symbols {
		args = append(args, subscribeArg{InstType: instTypeFutures, Channel: tickerChannel, InstId: s})
	}
	b, err := json.Marshal(subscribeRequest{Op: op, Args: args})
	if err != nil {
		return err
	}
	return w.threadSafeWrite(websocket.TextMessage, b)
}

func (w *Worker) desiredCount() int {
	w.desiredMu.Lock()
	defer w.desiredMu.Unlock()
	return len(w.desired)
}

func (w *Worker) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(w.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.threadSafeWrite(websocket.TextMessage, w.keepalive.PingFrame()); err != nil {
				slog.Debug("keepalive write failed", slog.Any("error", err))
			}
		}
	}
}

func (w *Worker) threadSafeWrite(msgType int, data []byte) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.conn == nil {
		return fmt.Errorf("no conn")
	}
	w.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return w.conn.WriteMessage(msgType, data)
}

func (w *Worker) readLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		w.mu.RLock()
		if w.conn == nil {
			w.mu.RUnlock()
			return
		}
		// Missing the pong (or any frame) within the grace window means the
		// session is stale and gets torn down for reconnect.
		w.conn.SetReadDeadline(time.Now().Add(w.readTimeout))
		w.mu.RUnlock()

		_, msg, err := w.conn.ReadMessage()
		if err != nil {
			slog.Warn("Bitget feed read failed", slog.Any("error", err))
			w.closeConnection()
			return
		}
		if w.keepalive.IsPong(msg) {
			continue
		}
		w.handleMessage(msg)
	}
}

// handleMessage normalizes an inbound frame. Malformed or irrelevant frames
// are skipped with a diagnostic and never affect the connection.
func (w *Worker) handleMessage(msg []byte) {
	var resp tickerResponse
	if err := json.Unmarshal(msg, &resp); err != nil {
		slog.Warn("malformed feed frame", slog.Any("error", err))
		return
	}

	if resp.Event != "" {
		if resp.Event == "error" || resp.Code != 0 {
			slog.Warn("feed control error", slog.Int("code", resp.Code), slog.String("msg", resp.Msg))
		} else {
			slog.Debug("feed control frame", slog.String("event", resp.Event), slog.String("instId", resp.Arg.InstId))
		}
		return
	}

	if resp.Arg.Channel != tickerChannel || len(resp.Data) == 0 {
		slog.Debug("ignoring non-ticker frame")
		return
	}

	observedAt := time.Now()
	if resp.Ts > 0 {
		observedAt = time.UnixMilli(resp.Ts)
	}

	for _, data := range resp.Data {
		price, err := decimal.NewFromString(data.LastPr)
		if err != nil {
			slog.Warn("unparseable tick price", slog.String("instId", data.InstId), slog.String("lastPr", data.LastPr))
			continue
		}

		tk := event.AcquireTick()
		tk.Symbol = data.InstId
		tk.Price = price
		tk.ObservedAt = observedAt

		select {
		case w.inbox <- tk:
		default:
			event.ReleaseTick(tk) // release if dropped
			infra.GlobalMetrics.RecordDroppedTick()
		}
	}
}

// IsConnected reports whether the session is currently established.
func (w *Worker) IsConnected() bool {
	return w.state.Load() == StateConnected
}

func (w *Worker) closeConnection() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn != nil {
		w.conn.Close()
		w.conn = nil
	}
}

// Disconnect tears the session down and waits for the supervisor to stop.
func (w *Worker) Disconnect() {
	if w.cancel != nil {
		w.cancel()
	}
	w.closeConnection()
	w.wg.Wait()
}
