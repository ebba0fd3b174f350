package ws

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"AttackDash/internal/domain/models"
	xlogger "AttackDash/pkg/logger"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

func startHub(t *testing.T) (*Hub, string) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(xlogger.Nop())
	go func() { _ = hub.Run(ctx) }()

	e := echo.New()
	NewHandler(hub, xlogger.Nop()).RegisterRoutes(e)
	srv := httptest.NewServer(e)
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

type frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var f frame
	if err := json.Unmarshal(raw, &f); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
	return f
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("clients = %d, want %d", hub.ClientCount(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestBroadcastReachesEveryClient(t *testing.T) {
	hub, url := startHub(t)
	a, b := dial(t, url), dial(t, url)
	waitForClients(t, hub, 2)

	hub.BroadcastSnapshot(&models.DashboardSnapshot{Attacks: models.AttackStats{TopCountry: "China"}})

	for _, conn := range []*websocket.Conn{a, b} {
		f := readFrame(t, conn)
		if f.Type != MessageTypeDashboard || !strings.Contains(string(f.Data), `"topCountry":"China"`) {
			t.Fatalf("frame = %s %s", f.Type, f.Data)
		}
	}
}

func TestNewClientReceivesLatestSnapshot(t *testing.T) {
	hub, url := startHub(t)
	hub.BroadcastSnapshot(&models.DashboardSnapshot{Attacks: models.AttackStats{TotalAttacks: 42}})

	conn := dial(t, url)
	f := readFrame(t, conn)
	if f.Type != MessageTypeDashboard || !strings.Contains(string(f.Data), `"totalAttacks":42`) {
		t.Fatalf("frame = %s %s", f.Type, f.Data)
	}
}

func TestPingIsAnswered(t *testing.T) {
	hub, url := startHub(t)
	conn := dial(t, url)
	waitForClients(t, hub, 1)

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if f := readFrame(t, conn); f.Type != MessageTypePong {
		t.Fatalf("frame type = %s", f.Type)
	}
}

func TestDisconnectUnregisters(t *testing.T) {
	hub, url := startHub(t)
	conn := dial(t, url)
	waitForClients(t, hub, 1)

	_ = conn.Close()
	waitForClients(t, hub, 0)
}

func TestRemovedClientRefusesFrames(t *testing.T) {
	hub := NewHub(xlogger.Nop())
	c := newClient(hub, nil)
	hub.clients[c] = struct{}{}
	hub.remove(c)

	for i := 0; i < sendBuffer+1; i++ {
		if c.trySend([]byte(`{"type":"pong"}`)) {
			t.Fatalf("send %d accepted after removal", i)
		}
	}
}

func TestStoppedHubReleasesClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(xlogger.Nop())
	stopped := make(chan struct{})
	go func() {
		_ = hub.Run(ctx)
		close(stopped)
	}()

	c := newClient(hub, nil)
	if !hub.add(c) {
		t.Fatalf("running hub refused client")
	}
	sending := make(chan struct{})
	go func() {
		defer close(sending)
		for i := 0; i < 1000; i++ {
			c.trySend([]byte(`{"type":"pong"}`))
		}
	}()
	cancel()
	<-stopped
	<-sending

	if c.trySend(nil) {
		t.Fatalf("client still accepting frames after hub stopped")
	}
	if hub.add(newClient(hub, nil)) {
		t.Fatalf("stopped hub accepted a client")
	}

	released := make(chan struct{})
	go func() {
		hub.drop(c)
		close(released)
	}()
	select {
	case <-released:
	case <-time.After(2 * time.Second):
		t.Fatalf("drop blocked on a stopped hub")
	}
}
