// Package sse streams server events to users over Server-Sent Events, for
// clients that cannot hold a WebSocket open.
//
//	broker := sse.NewBroker()
//	router.Get("/orders/stream", "orders.stream", func(w http.ResponseWriter, r *http.Request) {
//	    broker.Serve(w, r, userID)
//	})
//	broker.Publish(customerID, ws.Envelope{Type: "order.status", Data: frame})
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/shashiranjanraj/shopkart/pkg/logger"
	"github.com/shashiranjanraj/shopkart/pkg/ws"
)

const (
	heartbeat  = 25 * time.Second
	sendBuffer = 32
)

// Stream is one open event stream.
type Stream struct {
	w       http.ResponseWriter
	r       *http.Request
	flusher http.Flusher
}

// New sets the event-stream headers. It returns nil, after answering 500,
// when w cannot flush.
func New(w http.ResponseWriter, r *http.Request) *Stream {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return nil
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return &Stream{w: w, r: r, flusher: flusher}
}

// Send writes a named event whose data line is the raw JSON payload.
func (s *Stream) Send(event string, payload []byte) error {
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// Comment writes a comment line, used as a keepalive.
func (s *Stream) Comment(msg string) {
	fmt.Fprintf(s.w, ": %s\n\n", msg)
	s.flusher.Flush()
}

type frame struct {
	event   string
	payload []byte
}

// Broker fans published frames out to every stream of a user.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[chan frame]struct{}
}

func NewBroker() *Broker {
	return &Broker{subs: map[string]map[chan frame]struct{}{}}
}

// Serve holds the request open and relays frames for userID until the
// client disconnects.
func (b *Broker) Serve(w http.ResponseWriter, r *http.Request, userID string) {
	stream := New(w, r)
	if stream == nil {
		return
	}
	ch := b.subscribe(userID)
	defer b.unsubscribe(userID, ch)

	tick := time.NewTicker(heartbeat)
	defer tick.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-tick.C:
			stream.Comment("ping")
		case f := <-ch:
			if err := stream.Send(f.event, f.payload); err != nil {
				logger.WithCtx(r.Context()).Debug("sse: client gone", "error", err)
				return
			}
		}
	}
}

// Publish sends v to every stream of userID. Slow streams drop frames.
func (b *Broker) Publish(userID string, v ws.Envelope) {
	payload, err := json.Marshal(v.Data)
	if err != nil {
		logger.Error("sse: marshal", "type", v.Type, "error", err)
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs[userID] {
		select {
		case ch <- frame{event: v.Type, payload: payload}:
		default:
		}
	}
}

// Subscribers reports how many streams userID has open.
func (b *Broker) Subscribers(userID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[userID])
}

func (b *Broker) subscribe(userID string) chan frame {
	ch := make(chan frame, sendBuffer)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs[userID] == nil {
		b.subs[userID] = map[chan frame]struct{}{}
	}
	b.subs[userID][ch] = struct{}{}
	return ch
}

func (b *Broker) unsubscribe(userID string, ch chan frame) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs[userID], ch)
	if len(b.subs[userID]) == 0 {
		delete(b.subs, userID)
	}
}
