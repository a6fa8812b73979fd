package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"trade_quest/internal/domain"
	"trade_quest/internal/hub"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

func newTestServer(t *testing.T) (*httptest.Server, *hub.Hub) {
	t.Helper()
	h := hub.NewHub()
	srv := httptest.NewServer(NewServer(h).Handler())
	t.Cleanup(srv.Close)
	return srv, h
}

func wsURL(srv *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + path
}

func TestServer_DeliversTriggerEvents(t *testing.T) {
	srv, h := newTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws?userId=alice"), nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	// Registration races the upgrade handler; wait for it.
	deadline := time.After(2 * time.Second)
	for h.Count() == 0 {
		select {
		case <-deadline:
			t.Fatal("Timed out waiting for registration")
		case <-time.After(5 * time.Millisecond):
		}
	}

	h.Publish(domain.TriggerEvent{
		OrderID:    "t-1",
		OwnerID:    "alice",
		FromStatus: domain.TradeStatusPending,
		ToStatus:   domain.TradeStatusOpen,
		Price:      decimal.NewFromInt(100),
		OccurredAt: time.Now(),
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}

	var got struct {
		Type    string `json:"type"`
		OrderID string `json:"orderId"`
		Status  string `json:"status"`
		Price   string `json:"price"`
	}
	if err := json.Unmarshal(msg, &got); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if got.Type != "trade_triggered" || got.OrderID != "t-1" || got.Status != domain.TradeStatusOpen || got.Price != "100" {
		t.Errorf("Unexpected notification: %+v", got)
	}
}

func TestServer_EventForOtherOwnerNotDelivered(t *testing.T) {
	srv, h := newTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws?userId=alice"), nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	deadline := time.After(2 * time.Second)
	for h.Count() == 0 {
		select {
		case <-deadline:
			t.Fatal("Timed out waiting for registration")
		case <-time.After(5 * time.Millisecond):
		}
	}

	h.Publish(domain.TriggerEvent{OrderID: "t-1", OwnerID: "bob"})

	conn.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("Expected no delivery for another owner's event")
	}
}

func TestServer_MissingUserIDRejected(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/ws")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", resp.StatusCode)
	}
}

func TestServer_DisconnectUnregisters(t *testing.T) {
	srv, h := newTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws?userId=alice"), nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for h.Count() == 0 {
		select {
		case <-deadline:
			t.Fatal("Timed out waiting for registration")
		case <-time.After(5 * time.Millisecond):
		}
	}

	conn.Close()
	deadline = time.After(2 * time.Second)
	for h.Count() != 0 {
		select {
		case <-deadline:
			t.Fatal("Timed out waiting for unregistration")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestServer_HealthAndMetrics(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz failed: %v (%v)", resp.StatusCode, err)
	}
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics failed: %v", err)
	}
	defer resp.Body.Close()
	var snap map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("metrics decode failed: %v", err)
	}
	if _, ok := snap["ticks_processed"]; !ok {
		t.Error("Expected ticks_processed in the snapshot")
	}
}
