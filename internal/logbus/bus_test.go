package logbus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/94faddy/dz-wrokshop/internal/models"
)

func TestRecentReturnsOldestFirstBoundedByCapacity(t *testing.T) {
	b := New(3)
	for i := 0; i < 5; i++ {
		b.Publish(models.LogRecord{Message: string(rune('a' + i))})
	}
	recent := b.Recent(10)
	require.Len(t, recent, 3)
	assert.Equal(t, "c", recent[0].Message)
	assert.Equal(t, "d", recent[1].Message)
	assert.Equal(t, "e", recent[2].Message)
}

func TestSubscribeReceivesLiveRecords(t *testing.T) {
	b := New(10)
	ch := make(chan models.LogRecord, 4)
	unsub := b.Subscribe(ch)
	defer unsub()

	b.Publish(models.LogRecord{Message: "hello"})

	select {
	case rec := <-ch:
		assert.Equal(t, "hello", rec.Message)
	case <-time.After(time.Second):
		t.Fatal("expected a record")
	}
}

func TestSlowSubscriberIsEvictedNotBlocked(t *testing.T) {
	b := New(10)
	ch := make(chan models.LogRecord) // unbuffered, never drained
	b.Subscribe(ch)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			b.Publish(models.LogRecord{Message: "x"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := New(10)
	ch := make(chan models.LogRecord, 4)
	unsub := b.Subscribe(ch)
	unsub()

	b.Publish(models.LogRecord{Message: "after-unsub"})

	select {
	case <-ch:
		t.Fatal("did not expect delivery after unsubscribe")
	case <-time.After(50 * time.Millisecond):
	}
}
