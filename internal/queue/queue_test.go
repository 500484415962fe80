package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeRoundTrip(t *testing.T) {
	msg := Message{Type: TypeAttendanceMarked, Body: []byte("subject-1")}

	got, err := deserialize(serialize(msg))
	require.NoError(t, err)
	assert.Equal(t, msg.Type, got.Type)
	assert.Equal(t, msg.Body, got.Body)
}

func TestDeserializeBodyWithSeparator(t *testing.T) {
	// only the first separator splits; the body may contain more
	got, err := deserialize("evt|a|b|c")
	require.NoError(t, err)
	assert.Equal(t, "evt", got.Type)
	assert.Equal(t, []byte("a|b|c"), got.Body)
}

func TestInMemoryPublishConsume(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	q := NewInMemory(4)
	require.NoError(t, q.Publish(ctx, Message{Type: "a"}))
	require.NoError(t, q.Publish(ctx, Message{Type: "b"}))

	out, err := q.Consume(ctx)
	require.NoError(t, err)

	first := <-out
	second := <-out
	assert.Equal(t, "a", first.Type)
	assert.Equal(t, "b", second.Type)
}

func TestInMemoryConsumeStopsWithoutReader(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	q := NewInMemory(4)
	require.NoError(t, q.Publish(context.Background(), Message{Type: "a"}))

	out, err := q.Consume(ctx)
	require.NoError(t, err)
	cancel()

	// even with nobody draining out, cancellation must stop the delivery
	// goroutine and close the channel
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, open := <-out:
			if !open {
				return
			}
		case <-deadline:
			t.Fatal("consume channel never closed after cancel")
		}
	}
}
