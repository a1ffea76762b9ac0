package queue

import (
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestInMemoryQueue_PublishWithoutSubscribers(t *testing.T) {
	q := NewInMemoryQueue(quietLogger())
	err := q.Publish("nobody", 1)
	assert.Error(t, err)
}

func TestInMemoryQueue_DeliversPayload(t *testing.T) {
	q := NewInMemoryQueue(quietLogger())
	got := make(chan any, 1)
	require.NoError(t, q.Subscribe("topic", func(payload any) error {
		got <- payload
		return nil
	}))

	require.NoError(t, q.Publish("topic", 42))

	select {
	case p := <-got:
		assert.Equal(t, 42, p)
	case <-time.After(time.Second):
		t.Fatal("payload was not delivered")
	}
}

func TestInMemoryQueue_RetriesUntilSuccess(t *testing.T) {
	q := NewInMemoryQueue(quietLogger())
	q.Backoff = time.Millisecond

	var attempts int32
	done := make(chan struct{})
	require.NoError(t, q.Subscribe("topic", func(payload any) error {
		if atomic.AddInt32(&attempts, 1) < 3 {
			return errors.New("transient")
		}
		close(done)
		return nil
	}))

	require.NoError(t, q.Publish("topic", "job"))

	select {
	case <-done:
		assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
	case <-time.After(time.Second):
		t.Fatal("job was not retried to success")
	}
}

func TestInMemoryQueue_GivesUpAfterMaxRetries(t *testing.T) {
	q := NewInMemoryQueue(quietLogger())
	q.Backoff = time.Millisecond
	q.MaxRetries = 2

	var attempts int32
	require.NoError(t, q.Subscribe("topic", func(payload any) error {
		atomic.AddInt32(&attempts, 1)
		return errors.New("permanent")
	}))
	require.NoError(t, q.Publish("topic", "job"))

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&attempts) == 3 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestInMemoryQueue_Unsubscribe(t *testing.T) {
	q := NewInMemoryQueue(quietLogger())
	require.NoError(t, q.Subscribe("topic", func(payload any) error { return nil }))
	require.NoError(t, q.Publish("topic", 1))

	require.NoError(t, q.Unsubscribe("topic"))
	assert.Error(t, q.Publish("topic", 2))
}
