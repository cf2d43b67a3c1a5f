// Package audit keeps a trail of order transitions and review decisions.
//
// Sinks never block the caller and never fail it: an entry that cannot be
// recorded is dropped and logged.
package audit

import (
	"context"
	"sync"
	"time"

	"github.com/shashiranjanraj/shopkart/pkg/reqid"
)

// Entry is one audited action.
type Entry struct {
	Time      time.Time      `bson:"time" json:"time"`
	Action    string         `bson:"action" json:"action"`
	Subject   string         `bson:"subject" json:"subject"`
	SubjectID string         `bson:"subject_id" json:"subject_id"`
	ActorID   string         `bson:"actor_id,omitempty" json:"actor_id,omitempty"`
	RequestID string         `bson:"request_id,omitempty" json:"request_id,omitempty"`
	Data      map[string]any `bson:"data,omitempty" json:"data,omitempty"`
}

// Sink records entries.
type Sink interface {
	Record(ctx context.Context, e Entry)
	Close()
}

// Stamp fills Time and RequestID when they are unset.
func Stamp(ctx context.Context, e Entry) Entry {
	if e.Time.IsZero() {
		e.Time = time.Now().UTC()
	}
	if e.RequestID == "" {
		e.RequestID = reqid.FromCtx(ctx)
	}
	return e
}

// Open returns a MongoDB sink when uri is set and a no-op sink otherwise.
func Open(ctx context.Context, uri, db string) (Sink, error) {
	if uri == "" {
		return Nop{}, nil
	}
	return NewMongo(ctx, uri, db, "audit_log")
}

type Nop struct{}

func (Nop) Record(context.Context, Entry) {}
func (Nop) Close()                        {}

// Memory keeps entries in process. Tests read them back with Entries.
type Memory struct {
	mu      sync.Mutex
	entries []Entry
}

func (m *Memory) Record(ctx context.Context, e Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, Stamp(ctx, e))
}

func (m *Memory) Close() {}

func (m *Memory) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Entry(nil), m.entries...)
}
