package kafka

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fetchResult struct {
	msg kafka.Message
	err error
}

// scriptedReader replays results, then blocks until the context ends.
type scriptedReader struct {
	mu        sync.Mutex
	results   []fetchResult
	fetchedAt []time.Time
	committed []int64
	closed    bool
}

func (r *scriptedReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	r.fetchedAt = append(r.fetchedAt, time.Now())
	if len(r.results) > 0 {
		next := r.results[0]
		r.results = r.results[1:]
		r.mu.Unlock()
		return next.msg, next.err
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *scriptedReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *scriptedReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func newTestConsumer(r messageReader, handler MessageHandler, backoff time.Duration) *Consumer {
	return &Consumer{reader: r, logger: slog.Default(), handler: handler, backoff: backoff}
}

func runUntil(t *testing.T, c *Consumer, done func() bool) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan error, 1)
	go func() { stopped <- c.Start(ctx) }()
	require.Eventually(t, done, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-stopped)
}

func TestConsumerBacksOffAfterFetchError(t *testing.T) {
	r := &scriptedReader{results: []fetchResult{
		{err: errors.New("broker unavailable")},
		{msg: kafka.Message{Offset: 7, Value: []byte("x")}},
	}}
	var handled int
	var mu sync.Mutex
	c := newTestConsumer(r, func(context.Context, []byte, []byte) error {
		mu.Lock()
		handled++
		mu.Unlock()
		return nil
	}, 50*time.Millisecond)

	runUntil(t, c, func() bool {
		r.mu.Lock()
		defer r.mu.Unlock()
		return len(r.committed) == 1
	})

	r.mu.Lock()
	defer r.mu.Unlock()
	require.GreaterOrEqual(t, len(r.fetchedAt), 2)
	assert.GreaterOrEqual(t, r.fetchedAt[1].Sub(r.fetchedAt[0]), 50*time.Millisecond)
	assert.Equal(t, []int64{7}, r.committed)
	assert.Equal(t, 1, handled)
	assert.True(t, r.closed)
}

func TestConsumerSkipsCommitOnHandlerError(t *testing.T) {
	r := &scriptedReader{results: []fetchResult{
		{msg: kafka.Message{Offset: 1, Value: []byte("bad")}},
		{msg: kafka.Message{Offset: 2, Value: []byte("good")}},
	}}
	c := newTestConsumer(r, func(_ context.Context, _ []byte, value []byte) error {
		if string(value) == "bad" {
			return errors.New("pipeline failed")
		}
		return nil
	}, time.Millisecond)

	runUntil(t, c, func() bool {
		r.mu.Lock()
		defer r.mu.Unlock()
		return len(r.committed) == 1
	})

	r.mu.Lock()
	defer r.mu.Unlock()
	assert.Equal(t, []int64{2}, r.committed)
}

func TestConsumerStopsDuringBackoff(t *testing.T) {
	r := &scriptedReader{results: []fetchResult{{err: errors.New("broker unavailable")}}}
	c := newTestConsumer(r, func(context.Context, []byte, []byte) error { return nil }, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan error, 1)
	go func() { stopped <- c.Start(ctx) }()
	require.Eventually(t, func() bool {
		r.mu.Lock()
		defer r.mu.Unlock()
		return len(r.fetchedAt) == 1
	}, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-stopped:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop while backing off")
	}
}
