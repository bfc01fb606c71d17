// Package sse implements a Server-Sent Events broker that streams conversion
// progress to HTTP clients.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// Event types.
const (
	TypeFileConverted = "file.converted"
	TypeFileRemoved   = "file.removed"
	TypeTreeUpdated   = "tree.updated"
	TypeRunCompleted  = "run.completed"
)

// Event is one message broadcast to every client.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// FileEvent is the payload of file.converted and file.removed.
type FileEvent struct {
	Source string `json:"source"`
	Dest   string `json:"dest"`
}

// Broker fans events out to subscribed clients. A single goroutine owns the
// client set and the tree.updated throttle; public methods talk to it over
// channels.
type Broker struct {
	treeMin time.Duration

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a broker that emits tree.updated at most once per
// treeThrottle, however many file events arrive.
func NewBroker(treeThrottle time.Duration) *Broker {
	if treeThrottle <= 0 {
		treeThrottle = 2 * time.Second
	}
	b := &Broker{
		treeMin:       treeThrottle,
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	go b.run()
	return b
}

func encode(e Event) []byte {
	payload, err := json.Marshal(e.Data)
	if err != nil {
		return nil
	}
	return []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", e.Type, payload))
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	var lastTree time.Time

	send := func(e Event) {
		msg := encode(e)
		if msg == nil {
			return
		}
		for ch := range clients {
			select {
			case ch <- msg:
			default:
				// slow client, drop
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-b.subscribeCh:
			clients[ch] = struct{}{}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case e := <-b.publishCh:
			send(e)
			if e.Type != TypeFileConverted && e.Type != TypeFileRemoved {
				continue
			}
			if now := time.Now(); now.Sub(lastTree) >= b.treeMin {
				lastTree = now
				send(Event{Type: TypeTreeUpdated, Data: map[string]string{}})
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close stops the broker loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client and returns its channel.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}
	select {
	case b.subscribeCh <- ch:
	case <-b.stopped:
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}
	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}
	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish broadcasts an event to all connected clients.
func (b *Broker) Publish(e Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- e:
	case <-b.stopped:
	}
}

// PublishFileEvent maps a pipeline event kind ("converted" or "removed") to
// its SSE type and publishes it. Unknown kinds are ignored.
func (b *Broker) PublishFileEvent(kind, source, dest string) {
	var typ string
	switch kind {
	case "converted":
		typ = TypeFileConverted
	case "removed":
		typ = TypeFileRemoved
	default:
		return
	}
	b.Publish(Event{Type: typ, Data: FileEvent{Source: source, Dest: dest}})
}

// ServeHTTP streams events to one client (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
