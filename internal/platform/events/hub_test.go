package events

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func newTestHub() *Hub {
	return NewHub(zerolog.Nop())
}

func receive(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case data := <-c.Send:
		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			t.Fatalf("failed to decode event: %v", err)
		}
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func TestHub_RegisterAndUnregister(t *testing.T) {
	hub := newTestHub()
	client := NewClient([]string{TopicProgress, TopicRuns})
	hub.Register(client)

	if hub.ClientCount() != 1 {
		t.Fatalf("expected 1 client, got %d", hub.ClientCount())
	}
	if hub.TopicCount(TopicProgress) != 1 || hub.TopicCount(TopicRuns) != 1 {
		t.Fatal("expected client subscribed to both topics")
	}

	hub.Unregister(client)
	if hub.ClientCount() != 0 {
		t.Fatalf("expected 0 clients, got %d", hub.ClientCount())
	}
	if hub.TopicCount(TopicProgress) != 0 {
		t.Fatalf("expected topic to be empty, got %d", hub.TopicCount(TopicProgress))
	}
	if _, ok := <-client.Send; ok {
		t.Fatal("expected Send channel to be closed")
	}

	// Second unregister must not panic on the closed channel.
	hub.Unregister(client)
}

func TestHub_PublishToSubscribersOnly(t *testing.T) {
	hub := newTestHub()
	progress := NewClient([]string{TopicProgress})
	runs := NewClient([]string{TopicRuns})
	hub.Register(progress)
	hub.Register(runs)

	err := hub.Publish(context.Background(), Event{
		Type:  TypeStageCompleted,
		Topic: TopicProgress,
		Stage: "providers",
		Count: 20,
	})
	if err != nil {
		t.Fatalf("Publish() error: %v", err)
	}

	ev := receive(t, progress)
	if ev.Type != TypeStageCompleted || ev.Stage != "providers" || ev.Count != 20 {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if ev.Timestamp.IsZero() {
		t.Fatal("expected Publish to stamp the event")
	}

	select {
	case <-runs.Send:
		t.Fatal("runs subscriber should not receive progress events")
	default:
	}
}

func TestHub_PublishNoSubscribers(t *testing.T) {
	hub := newTestHub()
	if err := hub.Publish(context.Background(), Event{Type: TypeRunGenerated, Topic: TopicRuns}); err != nil {
		t.Fatalf("Publish() error: %v", err)
	}
}

func TestHub_PublishDropsWhenQueueFull(t *testing.T) {
	hub := newTestHub()
	client := &Client{ID: "slow", Topics: []string{TopicRuns}, Send: make(chan []byte, 1)}
	hub.Register(client)

	for i := 0; i < 3; i++ {
		if err := hub.Publish(context.Background(), Event{Type: TypeRunGenerated, Topic: TopicRuns}); err != nil {
			t.Fatalf("Publish() error: %v", err)
		}
	}
	if len(client.Send) != 1 {
		t.Fatalf("expected 1 queued event, got %d", len(client.Send))
	}
}

func TestHub_SubscribeAndUnsubscribe(t *testing.T) {
	hub := newTestHub()
	client := NewClient(nil)
	hub.Register(client)

	hub.ProcessMessage(client, ClientMessage{Action: "subscribe", Topics: []string{TopicProgress, TopicRuns}})
	if hub.TopicCount(TopicProgress) != 1 || hub.TopicCount(TopicRuns) != 1 {
		t.Fatal("expected subscriptions to both topics")
	}

	// Subscribing again does not duplicate the topic.
	hub.Subscribe(client, []string{TopicRuns})
	if len(client.Topics) != 2 {
		t.Fatalf("expected 2 topics, got %v", client.Topics)
	}

	hub.ProcessMessage(client, ClientMessage{Action: "unsubscribe", Topics: []string{TopicProgress}})
	if hub.TopicCount(TopicProgress) != 0 {
		t.Fatalf("expected 0 on %s, got %d", TopicProgress, hub.TopicCount(TopicProgress))
	}
	if len(client.Topics) != 1 || client.Topics[0] != TopicRuns {
		t.Fatalf("expected only %s to remain, got %v", TopicRuns, client.Topics)
	}

	hub.ProcessMessage(client, ClientMessage{Action: "bogus", Topics: []string{TopicProgress}})
	if hub.TopicCount(TopicProgress) != 0 {
		t.Fatal("unknown actions must be ignored")
	}
}

func TestHub_SubscribeUnregisteredClient(t *testing.T) {
	hub := newTestHub()
	client := NewClient(nil)
	hub.Subscribe(client, []string{TopicRuns})
	if hub.TopicCount(TopicRuns) != 0 {
		t.Fatal("expected unregistered client to be ignored")
	}
}

func TestHub_ConcurrentPublish(t *testing.T) {
	hub := newTestHub()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c := NewClient(DefaultTopics)
			hub.Register(c)
			hub.Unregister(c)
		}()
		go func() {
			defer wg.Done()
			hub.Publish(context.Background(), Event{Type: TypeStageCompleted, Topic: TopicProgress})
		}()
	}
	wg.Wait()
	if hub.ClientCount() != 0 {
		t.Fatalf("expected 0 clients, got %d", hub.ClientCount())
	}
}

func TestHandler_RegisterRoutes(t *testing.T) {
	e := echo.New()
	NewHandler(newTestHub(), zerolog.Nop()).RegisterRoutes(e.Group("/api/v1"))

	for _, r := range e.Routes() {
		if r.Path == "/api/v1/events" && r.Method == http.MethodGet {
			return
		}
	}
	t.Fatal("expected GET /api/v1/events route to be registered")
}

func TestHandler_RejectsPlainHTTP(t *testing.T) {
	hub := newTestHub()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	rec := httptest.NewRecorder()

	err := NewHandler(hub, zerolog.Nop()).HandleConnect(e.NewContext(req, rec))
	if err == nil && rec.Code == http.StatusSwitchingProtocols {
		t.Fatal("expected upgrade to fail for a non-websocket request")
	}
	if hub.ClientCount() != 0 {
		t.Fatalf("expected no registered clients, got %d", hub.ClientCount())
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHandler_StreamsEvents(t *testing.T) {
	hub := newTestHub()
	e := echo.New()
	NewHandler(hub, zerolog.Nop()).RegisterRoutes(e.Group(""))

	server := httptest.NewServer(e)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/events?topics=" + TopicRuns
	conn, resp, err := gorillawebsocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("failed to dial: %v", err)
	}
	defer conn.Close()
	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Fatalf("expected 101, got %d", resp.StatusCode)
	}

	waitFor(t, func() bool { return hub.TopicCount(TopicRuns) == 1 })
	if hub.TopicCount(TopicProgress) != 0 {
		t.Fatal("expected only the requested topic")
	}

	if err := conn.WriteJSON(ClientMessage{Action: "subscribe", Topics: []string{TopicProgress}}); err != nil {
		t.Fatalf("failed to send subscribe: %v", err)
	}
	waitFor(t, func() bool { return hub.TopicCount(TopicProgress) == 1 })

	hub.Publish(context.Background(), Event{Type: TypeRunGenerated, Topic: TopicRuns, RunID: "run-1"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got Event
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("failed to read event: %v", err)
	}
	if got.Type != TypeRunGenerated || got.RunID != "run-1" {
		t.Fatalf("unexpected event: %+v", got)
	}

	conn.Close()
	waitFor(t, func() bool { return hub.ClientCount() == 0 })
}
