package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"signal-relay/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type stubActiveLister struct {
	signals []domain.Signal
	err     error
}

func (s *stubActiveLister) ListActive(ctx context.Context) ([]domain.Signal, error) {
	return s.signals, s.err
}

type wireEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func dialTestServer(t *testing.T, hub *Hub, lister ActiveLister) *websocket.Conn {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.GET("/ws/signals", NewHandler(hub, lister).Serve)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/signals"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) wireEvent {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev wireEvent
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	return ev
}

func TestServeSendsSnapshotBeforeStream(t *testing.T) {
	hub := NewHub()
	lister := &stubActiveLister{signals: []domain.Signal{
		{ID: "sig-2", Pair: "EURUSD", Status: domain.StatusActive},
		{ID: "sig-1", Pair: "GBPJPY", Status: domain.StatusActive},
	}}
	conn := dialTestServer(t, hub, lister)

	initial := readEvent(t, conn)
	if initial.Event != EventInitialSignals {
		t.Fatalf("expected initial-signals first, got %s", initial.Event)
	}
	var snapshot []domain.Signal
	if err := json.Unmarshal(initial.Data, &snapshot); err != nil {
		t.Fatalf("bad snapshot payload: %v", err)
	}
	if len(snapshot) != 2 || snapshot[0].ID != "sig-2" {
		t.Fatalf("unexpected snapshot: %+v", snapshot)
	}

	// Wait until the subscription is registered, then publish.
	deadline := time.Now().Add(2 * time.Second)
	for hub.SubscriberCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	hub.Publish(EventNewSignal, domain.Signal{ID: "sig-3", Pair: "XAUUSD"})

	next := readEvent(t, conn)
	if next.Event != EventNewSignal {
		t.Fatalf("expected new-signal after snapshot, got %s", next.Event)
	}
	var sig domain.Signal
	if err := json.Unmarshal(next.Data, &sig); err != nil || sig.ID != "sig-3" {
		t.Fatalf("unexpected signal payload: %v %v", sig, err)
	}
}

// publishDuringSnapshotLister publishes to the hub while the snapshot
// query is in flight, mimicking an ingest racing a fresh connection.
type publishDuringSnapshotLister struct {
	hub *Hub
}

func (l *publishDuringSnapshotLister) ListActive(ctx context.Context) ([]domain.Signal, error) {
	l.hub.Publish(EventNewSignal, domain.Signal{ID: "sig-race", Pair: "USDJPY"})
	return []domain.Signal{{ID: "sig-0", Pair: "EURUSD", Status: domain.StatusActive}}, nil
}

func TestServeDeliversEventsPublishedDuringSnapshot(t *testing.T) {
	hub := NewHub()
	conn := dialTestServer(t, hub, &publishDuringSnapshotLister{hub: hub})

	initial := readEvent(t, conn)
	if initial.Event != EventInitialSignals {
		t.Fatalf("expected initial-signals first, got %s", initial.Event)
	}

	next := readEvent(t, conn)
	if next.Event != EventNewSignal {
		t.Fatalf("expected buffered new-signal after snapshot, got %s", next.Event)
	}
	var sig domain.Signal
	if err := json.Unmarshal(next.Data, &sig); err != nil || sig.ID != "sig-race" {
		t.Fatalf("unexpected signal payload: %v %v", sig, err)
	}
}

func TestServeEmptySnapshot(t *testing.T) {
	hub := NewHub()
	conn := dialTestServer(t, hub, &stubActiveLister{})

	initial := readEvent(t, conn)
	if initial.Event != EventInitialSignals {
		t.Fatalf("expected initial-signals, got %s", initial.Event)
	}
}

func TestServeClosesOnSnapshotError(t *testing.T) {
	hub := NewHub()
	conn := dialTestServer(t, hub, &stubActiveLister{err: errors.New("db down")})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("expected connection to close when snapshot fails")
	}
	if hub.SubscriberCount() != 0 {
		t.Fatalf("failed connection must not stay subscribed, got %d", hub.SubscriberCount())
	}
}

func TestServeUnsubscribesOnDisconnect(t *testing.T) {
	hub := NewHub()
	conn := dialTestServer(t, hub, &stubActiveLister{})
	readEvent(t, conn)

	deadline := time.Now().Add(2 * time.Second)
	for hub.SubscriberCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if hub.SubscriberCount() != 1 {
		t.Fatalf("expected 1 subscriber, got %d", hub.SubscriberCount())
	}

	conn.Close()
	deadline = time.Now().Add(2 * time.Second)
	for hub.SubscriberCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if hub.SubscriberCount() != 0 {
		t.Fatalf("expected unsubscribe on disconnect, got %d", hub.SubscriberCount())
	}
}
