package feed

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/net/websocket"
)

func TestHubPublishReachesClient(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(hub.Handler())
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	ws, err := websocket.Dial(url, "", srv.URL)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer ws.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	hub.Publish("gen 3 best 501")

	if err := ws.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("deadline: %v", err)
	}
	var got string
	if err := websocket.Message.Receive(ws, &got); err != nil {
		t.Fatalf("receive: %v", err)
	}
	if got != "gen 3 best 501" {
		t.Fatalf("unexpected line %q", got)
	}
}

func TestHubPublishWithoutClients(t *testing.T) {
	hub := NewHub()
	hub.Publish("nobody listening")
	if hub.Clients() != 0 {
		t.Fatal("expected no clients")
	}
}

func TestStalledClientDoesNotBlockPublish(t *testing.T) {
	hub := NewHub()
	hub.WriteTimeout = 100 * time.Millisecond
	srv := httptest.NewServer(hub.Handler())
	t.Cleanup(srv.Close)

	// this client never reads
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	ws, err := websocket.Dial(url, "", srv.URL)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer ws.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	line := strings.Repeat("x", 4096)
	done := make(chan struct{})
	go func() {
		for i := 0; i < 20000; i++ {
			hub.Publish(line)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Publish blocked on a client that never reads")
	}
	if hub.Dropped() == 0 {
		t.Fatal("expected lines to be dropped for the stalled client")
	}

	// keep the queue full until the socket buffers fill and the write deadline disconnects it
	deadline = time.Now().Add(10 * time.Second)
	for hub.Clients() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("stalled client was never dropped")
		}
		for i := 0; i < 100; i++ {
			hub.Publish(line)
		}
		time.Sleep(time.Millisecond)
	}
}
