package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// drain collects the messages already buffered on ch.
func drain(ch chan []byte) []string {
	var out []string
	for {
		select {
		case msg := <-ch:
			out = append(out, string(msg))
		default:
			return out
		}
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe("")
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestPublishDelivery(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe("")
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: TypeCardCommands, Session: "s1", Data: map[string]any{"session": "s1", "commands": []string{"x"}}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: card.commands") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"session":"s1"`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestPublish_SessionFilter(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	follow := b.Subscribe("s1")
	defer b.Unsubscribe(follow)
	other := b.Subscribe("s2")
	defer b.Unsubscribe(other)

	b.Publish(Event{Type: TypeCardCommands, Session: "s1", Data: "a"})
	b.PublishBundleEvent("updated", "weather")
	time.Sleep(50 * time.Millisecond)

	if got := len(drain(follow)); got != 3 {
		t.Errorf("follower got %d messages, want 3", got)
	}
	for _, msg := range drain(other) {
		if strings.Contains(msg, TypeCardCommands) {
			t.Errorf("other session received %q", msg)
		}
	}
}

func TestPublishBundleEvent_Throttle(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe("")
	defer b.Unsubscribe(ch)

	b.PublishBundleEvent("created", "clock")
	b.PublishBundleEvent("updated", "weather")

	time.Sleep(50 * time.Millisecond)
	changed, bundle := 0, 0
	for _, s := range drain(ch) {
		if strings.Contains(s, TypeBundlesChanged) {
			changed++
		} else {
			bundle++
		}
	}
	if bundle != 2 {
		t.Errorf("bundle events = %d, want 2", bundle)
	}
	if changed != 1 {
		t.Errorf("bundles.changed events = %d, want 1 (throttled)", changed)
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events?session=s1", nil)
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.Publish(Event{Type: TypeCardCommands, Session: "s1", Data: map[string]string{"session": "s1"}})
	b.Publish(Event{Type: TypeCardCommands, Session: "s2", Data: map[string]string{"session": "s2"}})
	time.Sleep(50 * time.Millisecond)

	cancel()
	<-done

	body := w.Body.String()
	if !strings.Contains(body, `"session":"s1"`) {
		t.Errorf("handler output missing event: %q", body)
	}
	if strings.Contains(body, `"session":"s2"`) {
		t.Errorf("handler leaked other session: %q", body)
	}

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe("")
	defer b.Unsubscribe(ch)

	for i := 0; i < 70; i++ {
		b.Publish(Event{Type: "test", Data: map[string]string{"i": "x"}})
	}
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe("")
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}

	b.Publish(Event{Type: TypeCardCommands, Data: "x"})
	b.PublishBundleEvent("updated", "x")
}
