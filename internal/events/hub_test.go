package events

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/heimdex/heimdex-clips/internal/logging"
)

func dial(t *testing.T, srv *httptest.Server, origin string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}
	return websocket.DefaultDialer.Dial(url, header)
}

func waitForClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("ClientCount() = %d, want %d", h.ClientCount(), n)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHub_DismissAllReachesClients(t *testing.T) {
	hub := NewHub(logging.Discard(), nil)
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer srv.Close()
	defer hub.Close()

	conn, _, err := dial(t, srv, "")
	if err != nil {
		t.Fatalf("dial error = %v", err)
	}
	defer conn.Close()
	waitForClients(t, hub, 1)

	hub.DismissAll()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}

	var ev Event
	if err := json.Unmarshal(msg, &ev); err != nil {
		t.Fatalf("event is not JSON: %v", err)
	}
	if ev.Type != TypeDismissAll {
		t.Errorf("event type = %q, want %q", ev.Type, TypeDismissAll)
	}
	if ev.At.IsZero() {
		t.Error("event timestamp not set")
	}
}

func TestHub_RejectsDisallowedOrigin(t *testing.T) {
	hub := NewHub(logging.Discard(), func(origin string) bool {
		return origin == "http://localhost:3000"
	})
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer srv.Close()

	_, resp, err := dial(t, srv, "https://evil.com")
	if err == nil {
		t.Fatal("dial from disallowed origin should fail")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("response = %v, want 403", resp)
	}

	conn, _, err := dial(t, srv, "http://localhost:3000")
	if err != nil {
		t.Fatalf("dial from allowed origin error = %v", err)
	}
	conn.Close()
}

func TestHub_UnregistersOnDisconnect(t *testing.T) {
	hub := NewHub(logging.Discard(), nil)
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer srv.Close()

	conn, _, err := dial(t, srv, "")
	if err != nil {
		t.Fatalf("dial error = %v", err)
	}
	waitForClients(t, hub, 1)

	conn.Close()
	waitForClients(t, hub, 0)

	// publishing with no clients must not block or panic
	hub.Publish(Event{Type: TypeClipAdded, Payload: map[string]string{"id": "v1"}})
}

type countingPublisher struct {
	got []string
}

func (c *countingPublisher) Publish(ev Event) {
	c.got = append(c.got, ev.Type)
}

func TestFanout_PublishesToAll(t *testing.T) {
	a, b := &countingPublisher{}, &countingPublisher{}
	f := Fanout{a, nil, b}

	f.Publish(Event{Type: TypeClipAdded})

	if len(a.got) != 1 || len(b.got) != 1 || a.got[0] != TypeClipAdded {
		t.Errorf("got a=%v b=%v", a.got, b.got)
	}
}
