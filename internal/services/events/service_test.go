package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/indago/internal/interfaces"
)

func TestPublishSubscribe(t *testing.T) {
	svc := NewService(nil)

	ch, cancel := svc.Subscribe()
	defer cancel()

	svc.Publish(interfaces.Event{Type: "test", Message: "hello", Timestamp: time.Now()})

	select {
	case event := <-ch:
		assert.Equal(t, "test", event.Type)
		assert.Equal(t, "hello", event.Message)
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
}

func TestCancelStopsDelivery(t *testing.T) {
	svc := NewService(nil)

	ch, cancel := svc.Subscribe()
	require.Equal(t, 1, svc.SubscriberCount())

	cancel()
	assert.Equal(t, 0, svc.SubscriberCount())

	_, open := <-ch
	assert.False(t, open)

	// Publishing after cancel must not panic.
	svc.Publish(interfaces.Event{Type: "test"})
	cancel()
}

func TestSlowSubscriberDoesNotBlockPublisher(t *testing.T) {
	svc := NewService(nil)

	_, cancel := svc.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*3; i++ {
			svc.Publish(interfaces.Event{Type: "burst"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publisher blocked on slow subscriber")
	}
}
