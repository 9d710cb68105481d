package messaging_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/serroba/speedsearch/internal/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEvent struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type mockSubscriber struct {
	msgChan      chan *message.Message
	subscribeErr error
	mu           sync.Mutex
	closed       bool
}

func newMockSubscriber() *mockSubscriber {
	return &mockSubscriber{
		msgChan: make(chan *message.Message, 10),
	}
}

func (m *mockSubscriber) Subscribe(_ context.Context, _ string) (<-chan *message.Message, error) {
	if m.subscribeErr != nil {
		return nil, m.subscribeErr
	}

	return m.msgChan, nil
}

func (m *mockSubscriber) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.closed {
		m.closed = true
		close(m.msgChan)
	}

	return nil
}

func okHandler(context.Context, *testEvent, message.Metadata) error { return nil }

func newEventMessage(t *testing.T, event *testEvent) *message.Message {
	t.Helper()

	payload, err := json.Marshal(event)
	require.NoError(t, err)

	return message.NewMessage(uuid.NewString(), payload)
}

// waitOutcome reports whether msg was acked, failing the test on timeout.
func waitOutcome(t *testing.T, msg *message.Message) bool {
	t.Helper()

	select {
	case <-msg.Acked():
		return true
	case <-msg.Nacked():
		return false
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for ack or nack")

		return false
	}
}

func TestConsumer_Start(t *testing.T) {
	t.Run("starts successfully", func(t *testing.T) {
		consumer := messaging.NewConsumer(newMockSubscriber(), "test.topic", okHandler, zap.NewNop())

		err := consumer.Start(context.Background())

		require.NoError(t, err)
		assert.Equal(t, "test.topic", consumer.Topic())

		_ = consumer.Shutdown()
	})

	t.Run("returns error when subscribe fails", func(t *testing.T) {
		sub := &mockSubscriber{subscribeErr: errors.New("subscribe error")}
		consumer := messaging.NewConsumer(sub, "test.topic", okHandler, zap.NewNop())

		err := consumer.Start(context.Background())

		require.Error(t, err)
		assert.Contains(t, err.Error(), "test.topic")
		assert.NoError(t, consumer.Shutdown())
	})
}

func TestConsumer_HandleMessage(t *testing.T) {
	t.Run("acks on successful handling and passes metadata", func(t *testing.T) {
		sub := newMockSubscriber()

		var (
			received  *testEvent
			requestID string
		)

		consumer := messaging.NewConsumer(
			sub,
			"test.topic",
			func(_ context.Context, event *testEvent, metadata message.Metadata) error {
				received = event
				requestID = metadata.Get("request_id")

				return nil
			},
			zap.NewNop(),
		)

		require.NoError(t, consumer.Start(context.Background()))

		msg := newEventMessage(t, &testEvent{ID: "123", Name: "test"})
		msg.Metadata.Set("request_id", "req-1")

		sub.msgChan <- msg

		require.True(t, waitOutcome(t, msg), "message was nacked")
		assert.Equal(t, "123", received.ID)
		assert.Equal(t, "test", received.Name)
		assert.Equal(t, "req-1", requestID)

		_ = consumer.Shutdown()
	})

	t.Run("acks and drops malformed payloads", func(t *testing.T) {
		sub := newMockSubscriber()
		called := false
		consumer := messaging.NewConsumer(
			sub,
			"test.topic",
			func(context.Context, *testEvent, message.Metadata) error {
				called = true

				return nil
			},
			zap.NewNop(),
		)

		require.NoError(t, consumer.Start(context.Background()))

		msg := message.NewMessage(uuid.NewString(), []byte("invalid json"))

		sub.msgChan <- msg

		assert.True(t, waitOutcome(t, msg), "malformed message should not be redelivered")
		assert.False(t, called)

		_ = consumer.Shutdown()
	})

	t.Run("nacks on handler error", func(t *testing.T) {
		sub := newMockSubscriber()
		consumer := messaging.NewConsumer(
			sub,
			"test.topic",
			func(context.Context, *testEvent, message.Metadata) error {
				return errors.New("handler error")
			},
			zap.NewNop(),
		)

		require.NoError(t, consumer.Start(context.Background()))

		msg := newEventMessage(t, &testEvent{ID: "123"})

		sub.msgChan <- msg

		assert.False(t, waitOutcome(t, msg), "message should have been nacked")

		_ = consumer.Shutdown()
	})

	t.Run("nacks when the handler panics", func(t *testing.T) {
		sub := newMockSubscriber()
		consumer := messaging.NewConsumer(
			sub,
			"test.topic",
			func(context.Context, *testEvent, message.Metadata) error {
				panic("boom")
			},
			zap.NewNop(),
		)

		require.NoError(t, consumer.Start(context.Background()))

		msg := newEventMessage(t, &testEvent{ID: "123"})

		sub.msgChan <- msg

		assert.False(t, waitOutcome(t, msg), "message should have been nacked")

		_ = consumer.Shutdown()
	})
}

func TestConsumer_Shutdown(t *testing.T) {
	t.Run("shuts down gracefully", func(t *testing.T) {
		consumer := messaging.NewConsumer(newMockSubscriber(), "test.topic", okHandler, zap.NewNop())

		require.NoError(t, consumer.Start(context.Background()))
		require.NoError(t, consumer.Shutdown())
	})

	t.Run("stops when the subscription closes", func(t *testing.T) {
		sub := newMockSubscriber()
		consumer := messaging.NewConsumer(sub, "test.topic", okHandler, zap.NewNop())

		require.NoError(t, consumer.Start(context.Background()))
		require.NoError(t, sub.Close())
		require.NoError(t, consumer.Shutdown())
	})

	t.Run("is a no-op before start", func(t *testing.T) {
		consumer := messaging.NewConsumer(newMockSubscriber(), "test.topic", okHandler, zap.NewNop())

		assert.NoError(t, consumer.Shutdown())
	})
}
