package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeReader serves queued fetch results, then blocks until ctx ends.
type fakeReader struct {
	mu        sync.Mutex
	queue     []fetchResult
	committed []int64
}

type fetchResult struct {
	msg kafka.Message
	err error
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	f.mu.Lock()
	if len(f.queue) > 0 {
		next := f.queue[0]
		f.queue = f.queue[1:]
		f.mu.Unlock()
		return next.msg, next.err
	}
	f.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (f *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range msgs {
		f.committed = append(f.committed, m.Offset)
	}
	return nil
}

func (f *fakeReader) Close() error { return nil }

func (f *fakeReader) commits() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.committed...)
}

func runConsumer(t *testing.T, c *Consumer, r *fakeReader, wantCommits int) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	require.Eventually(t, func() bool { return len(r.commits()) == wantCommits }, 3*time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("consumer did not stop")
	}
}

func TestConsumerRetriesHandler(t *testing.T) {
	r := &fakeReader{queue: []fetchResult{{msg: kafka.Message{Offset: 1, Value: []byte("a")}}}}
	calls := 0
	c := newConsumer(r, "test", func(context.Context, []byte, []byte) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	c.retryDelay = time.Millisecond

	runConsumer(t, c, r, 1)
	assert.Equal(t, 3, calls)
	assert.EqualValues(t, 1, c.Processed())
	assert.Zero(t, c.Dropped())
}

func TestConsumerCommitsPoisonMessage(t *testing.T) {
	r := &fakeReader{queue: []fetchResult{
		{msg: kafka.Message{Offset: 1}},
		{msg: kafka.Message{Offset: 2}},
	}}
	c := newConsumer(r, "test", func(_ context.Context, _ []byte, _ []byte) error {
		return errors.New("cannot decode")
	})
	c.retryDelay = time.Millisecond

	runConsumer(t, c, r, 2)
	assert.Equal(t, []int64{1, 2}, r.commits())
	assert.EqualValues(t, 2, c.Dropped())
}

func TestConsumerBacksOffOnFetchError(t *testing.T) {
	r := &fakeReader{queue: []fetchResult{
		{err: errors.New("broker unavailable")},
		{msg: kafka.Message{Offset: 9}},
	}}
	c := newConsumer(r, "test", func(context.Context, []byte, []byte) error { return nil })

	runConsumer(t, c, r, 1)
	assert.Equal(t, []int64{9}, r.commits())
}
