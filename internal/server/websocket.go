package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"trade_quest/internal/domain"
	"trade_quest/internal/hub"
	"trade_quest/internal/infra"

	"github.com/gorilla/websocket"
)

const writeTimeout = 5 * time.Second

// Server exposes the client notification channel: one long-lived websocket
// per observing client, keyed by the userId query parameter supplied at
// connect time.
type Server struct {
	hub      *hub.Hub
	upgrader websocket.Upgrader
}

// NewServer creates a notification server publishing through the hub.
func NewServer(h *hub.Hub) *Server {
	return &Server{
		hub: h,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Handler returns the HTTP mux: /ws for client connections, /metrics for a
// JSON metrics snapshot, /healthz for liveness.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/metrics", s.handleMetrics)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "missing userId", http.StatusBadRequest)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}

	obs := &wsObserver{conn: conn}
	s.hub.Register(userID, obs)
	infra.GlobalMetrics.IncrementClients()
	slog.Info("notification client connected", slog.String("owner", userID))

	// Drain inbound frames until the client goes away. Clients only listen;
	// anything they send is discarded.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	s.hub.Unregister(userID, obs)
	infra.GlobalMetrics.DecrementClients()
	conn.Close()
	slog.Info("notification client disconnected", slog.String("owner", userID))
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(infra.GlobalMetrics.Snapshot())
}

// wsObserver adapts one client connection to the hub's observer interface.
type wsObserver struct {
	writeMu sync.Mutex
	conn    *websocket.Conn
}

// notification is the wire shape delivered to clients.
type notification struct {
	Type    string `json:"type"`
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
	Price   string `json:"price"`
}

func (o *wsObserver) Send(ev domain.TriggerEvent) error {
	msg := notification{
		Type:    "trade_triggered",
		OrderID: ev.OrderID,
		Status:  ev.ToStatus,
		Price:   ev.Price.String(),
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	o.writeMu.Lock()
	defer o.writeMu.Unlock()
	o.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return o.conn.WriteMessage(websocket.TextMessage, b)
}
