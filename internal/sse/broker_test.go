package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

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
	ch := b.Subscribe()
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
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: TypeRunCompleted, Data: map[string]int{"converted": 3}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: run.completed") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"converted":3`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestPublishFileEvent_TreeThrottle(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishFileEvent("converted", "a.wiki", "a.norg")
	b.PublishFileEvent("removed", "b.wiki", "b.norg")

	time.Sleep(50 * time.Millisecond)
	var treeCount, fileCount int
	for _, s := range drain(ch) {
		if strings.Contains(s, "event: tree.updated") {
			treeCount++
		} else {
			fileCount++
		}
	}

	if fileCount != 2 {
		t.Errorf("file events = %d, want 2", fileCount)
	}
	if treeCount != 1 {
		t.Errorf("tree events = %d, want 1 (throttled)", treeCount)
	}
}

func TestPublishFileEvent_Payload(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishFileEvent("converted", "diary/day.wiki", "diary/day.norg")

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.HasPrefix(s, "event: file.converted\n") {
			t.Errorf("unexpected event line in %q", s)
		}
		if !strings.Contains(s, `"source":"diary/day.wiki","dest":"diary/day.norg"`) {
			t.Errorf("unexpected payload in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestPublishFileEvent_UnknownKindIgnored(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishFileEvent("renamed", "a.wiki", "a.norg")
	time.Sleep(50 * time.Millisecond)
	if got := drain(ch); len(got) != 0 {
		t.Errorf("expected no events, got %v", got)
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
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

	b.PublishFileEvent("converted", "x.wiki", "x.norg")
	time.Sleep(50 * time.Millisecond)

	cancel()
	<-done

	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}
	body := w.Body.String()
	if !strings.Contains(body, "event: file.converted") {
		t.Errorf("handler output missing event: %q", body)
	}

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// Client buffer holds 64; the rest must be dropped without blocking.
	for i := 0; i < 70; i++ {
		b.Publish(Event{Type: "test", Data: map[string]string{"i": "x"}})
	}
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe()
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

	b.Publish(Event{Type: TypeRunCompleted, Data: map[string]string{}})
	b.PublishFileEvent("converted", "x.wiki", "x.norg")
}
