package queue_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/shopkart/app/testsupport"
	"github.com/shashiranjanraj/shopkart/pkg/queue"
)

var handled atomic.Int32

type echoJob struct {
	Val string `json:"val"`
}

func (echoJob) JobName() string { return "test.echo" }

func (j *echoJob) Handle(context.Context) error {
	if j.Val == "" {
		return errors.New("empty payload")
	}
	handled.Add(1)
	return nil
}

type failJob struct{}

func (failJob) JobName() string { return "test.fail" }

func (*failJob) Handle(context.Context) error { return errors.New("always fails") }

func newManager() *queue.Manager {
	m := queue.New(queue.NewMemoryDriver(10))
	m.Register("test.echo", func() queue.Job { return &echoJob{} })
	m.Register("test.fail", func() queue.Job { return &failJob{} })
	m.SetRetry(2, time.Millisecond)
	return m
}

func TestDispatchAndProcess(t *testing.T) {
	ctx := context.Background()
	m := newManager()
	before := handled.Load()

	require.NoError(t, m.Dispatch(ctx, &echoJob{Val: "hello"}))
	took, err := m.ProcessNext(ctx)
	require.NoError(t, err)
	assert.True(t, took)
	assert.Equal(t, before+1, handled.Load())

	failed, err := m.FailedJobs(ctx)
	require.NoError(t, err)
	assert.Empty(t, failed)
}

func TestExhaustedJobIsRecorded(t *testing.T) {
	ctx := context.Background()
	m := newManager()

	require.NoError(t, m.Dispatch(ctx, &failJob{}))
	_, err := m.ProcessNext(ctx)
	require.NoError(t, err)

	failed, err := m.FailedJobs(ctx)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "test.fail", failed[0].JobType)
	assert.Equal(t, 2, failed[0].Attempts)
}

func TestFailedJobsPersistToDB(t *testing.T) {
	ctx := context.Background()
	store, err := queue.NewDBFailedStore(testsupport.NewDB(t))
	require.NoError(t, err)

	m := newManager()
	m.SetFailedStore(store)
	require.NoError(t, m.Dispatch(ctx, &failJob{}))
	_, err = m.ProcessNext(ctx)
	require.NoError(t, err)

	failed, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Contains(t, failed[0].Error, "always fails")
}

func TestWorkersStopOnCancel(t *testing.T) {
	m := newManager()
	ctx, cancel := context.WithCancel(context.Background())
	before := handled.Load()

	wg := m.Start(ctx, 2)
	for i := 0; i < 5; i++ {
		require.NoError(t, m.Dispatch(ctx, &echoJob{Val: "x"}))
	}
	require.Eventually(t, func() bool { return handled.Load() == before+5 }, 2*time.Second, 5*time.Millisecond)

	cancel()
	wg.Wait()
}

func TestMemoryDriverBackpressure(t *testing.T) {
	d := queue.NewMemoryDriver(1)
	ctx := context.Background()
	require.NoError(t, d.Push(ctx, []byte("a")))
	assert.ErrorIs(t, d.Push(ctx, []byte("b")), queue.ErrQueueFull)
	assert.Equal(t, 1, d.Len())
}
