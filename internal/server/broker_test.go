package server

import (
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/ashita-ai/kasane/internal/model"
)

// testLogger returns a logger for tests that only prints errors.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestBrokerFanOut(t *testing.T) {
	broker := NewBroker(testLogger())

	ch1 := broker.Subscribe()
	ch2 := broker.Subscribe()
	if n := broker.Subscribers(); n != 2 {
		t.Fatalf("subscribers: got %d, want 2", n)
	}

	event := formatSSE("diagnostic", `{"id":"abc"}`)
	broker.broadcast(event)

	for name, ch := range map[string]chan []byte{"ch1": ch1, "ch2": ch2} {
		select {
		case got := <-ch:
			if string(got) != string(event) {
				t.Errorf("%s: got %q, want %q", name, got, event)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("%s: timed out waiting for event", name)
		}
	}

	// Only ch2 remains.
	broker.Unsubscribe(ch1)
	event2 := formatSSE("diagnostic", `{"id":"def"}`)
	broker.broadcast(event2)

	select {
	case got := <-ch2:
		if string(got) != string(event2) {
			t.Errorf("ch2: got %q, want %q", got, event2)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("ch2: timed out waiting for event after ch1 unsubscribed")
	}

	broker.Unsubscribe(ch2)
	if n := broker.Subscribers(); n != 0 {
		t.Fatalf("subscribers after unsubscribe: got %d", n)
	}
}

func TestFormatSSE(t *testing.T) {
	got := string(formatSSE("diagnostic", `{"id":"123"}`))
	want := "event: diagnostic\ndata: {\"id\":\"123\"}\n\n"
	if got != want {
		t.Errorf("formatSSE: got %q, want %q", got, want)
	}
}

func TestBrokerPublishDiagnostic(t *testing.T) {
	broker := NewBroker(testLogger())
	ch := broker.Subscribe()
	defer broker.Unsubscribe(ch)

	broker.Publish(model.Diagnostic{ID: "d-1", Stage: "submit event", Message: "hello", Level: model.LevelInfo})

	select {
	case got := <-ch:
		s := string(got)
		if !strings.HasPrefix(s, "event: diagnostic\ndata: {") {
			t.Errorf("unexpected event framing: %q", s)
		}
		if !strings.Contains(s, `"stage":"submit event"`) || !strings.Contains(s, `"level":"info"`) {
			t.Errorf("event missing fields: %q", s)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timed out waiting for published diagnostic")
	}
}

func TestBrokerSlowSubscriber(t *testing.T) {
	broker := NewBroker(testLogger())

	slow := broker.Subscribe()
	fast := broker.Subscribe()

	// Overfill both buffers; broadcast must never block.
	done := make(chan struct{})
	go func() {
		for range 65 {
			broker.broadcast(formatSSE("test", "fill"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked on a full subscriber")
	}

	select {
	case <-fast:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("fast subscriber should have buffered events")
	}

	broker.Unsubscribe(slow)
	broker.Unsubscribe(fast)
}
