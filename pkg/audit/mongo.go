package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/shashiranjanraj/shopkart/pkg/logger"
)

const (
	queueSize = 4096
	batchSize = 50
	drainTick = 2 * time.Second
)

// Mongo writes entries to a collection in batches from a single
// background goroutine.
type Mongo struct {
	client *mongo.Client
	col    *mongo.Collection
	queue  chan Entry
	done   chan struct{}
	closed sync.Once
	wg     sync.WaitGroup
}

func NewMongo(ctx context.Context, uri, db, collection string) (*Mongo, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).
		SetConnectTimeout(5*time.Second).
		SetServerSelectionTimeout(5*time.Second).
		SetMaxPoolSize(10))
	if err != nil {
		return nil, fmt.Errorf("audit: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("audit: ping: %w", err)
	}

	col := client.Database(db).Collection(collection)
	_, _ = col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "time", Value: -1}}},
		{Keys: bson.D{{Key: "subject", Value: 1}, {Key: "subject_id", Value: 1}}},
	})

	m := &Mongo{
		client: client,
		col:    col,
		queue:  make(chan Entry, queueSize),
		done:   make(chan struct{}),
	}
	m.wg.Add(1)
	go m.drain()
	return m, nil
}

// Record enqueues e. A full queue drops it.
func (m *Mongo) Record(ctx context.Context, e Entry) {
	select {
	case m.queue <- Stamp(ctx, e):
	default:
		logger.WithCtx(ctx).Warn("audit: queue full, entry dropped", "action", e.Action, "subject_id", e.SubjectID)
	}
}

func (m *Mongo) drain() {
	defer m.wg.Done()
	ticker := time.NewTicker(drainTick)
	defer ticker.Stop()

	batch := make([]any, 0, batchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := m.col.InsertMany(ctx, batch); err != nil {
			logger.Error("audit: insert failed", "entries", len(batch), "error", err)
		}
		batch = batch[:0]
	}

	for {
		select {
		case e := <-m.queue:
			batch = append(batch, e)
			if len(batch) >= batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-m.done:
			for len(m.queue) > 0 {
				batch = append(batch, <-m.queue)
			}
			flush()
			return
		}
	}
}

// Close flushes what is queued and disconnects.
func (m *Mongo) Close() {
	m.closed.Do(func() {
		close(m.done)
		m.wg.Wait()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = m.client.Disconnect(ctx)
	})
}
