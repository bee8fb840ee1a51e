package broadcast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishThenSubscribeReplaysBuffer(t *testing.T) {
	b := New()
	b.Publish("scan-1", Event{Type: EventPhase, Phase: "Discovery"})
	b.Publish("scan-1", Event{Type: EventStatus, Status: "running"})

	ch, cancel := b.Subscribe("scan-1")
	defer cancel()

	first := <-ch
	second := <-ch
	assert.Equal(t, EventPhase, first.Type)
	assert.Equal(t, EventStatus, second.Type)
}

func TestSubscribeThenPublishDeliversLive(t *testing.T) {
	b := New()
	ch, cancel := b.Subscribe("scan-2")
	defer cancel()

	b.Publish("scan-2", Event{Type: EventLog, Message: "hello"})

	select {
	case ev := <-ch:
		assert.Equal(t, "hello", ev.Message)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for live event")
	}
}

func TestCancelStopsDelivery(t *testing.T) {
	b := New()
	ch, cancel := b.Subscribe("scan-3")
	cancel()

	b.Publish("scan-3", Event{Type: EventLog, Message: "after cancel"})

	_, open := <-ch
	assert.False(t, open)
}

func TestPublishToFullSubscriberDropsItWithoutBlocking(t *testing.T) {
	b := New()
	b.mu.Lock()
	ch := make(chan Event) // unbuffered, no reader: first send fills/blocks
	b.subscribers["scan-4"] = map[chan Event]struct{}{ch: {}}
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.Publish("scan-4", Event{Type: EventLog, Message: "one"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}

	b.mu.RLock()
	_, stillSubscribed := b.subscribers["scan-4"][ch]
	b.mu.RUnlock()
	assert.False(t, stillSubscribed)
}

func TestRingBufferBoundedCapacity(t *testing.T) {
	b := New()
	for i := 0; i < ringBufferCap+50; i++ {
		b.Publish("scan-5", Event{Type: EventLog})
	}
	b.mu.RLock()
	size := len(b.buffers["scan-5"])
	b.mu.RUnlock()
	require.Equal(t, ringBufferCap, size)
}
