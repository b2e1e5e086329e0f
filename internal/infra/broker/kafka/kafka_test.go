package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMessageKeysAndHeaders(t *testing.T) {
	msg := buildMessage("hostdesk.property.events.v1", "p-1", []byte(`{}`), map[string]string{"ce-type": "property.created.v1"})
	assert.Equal(t, "hostdesk.property.events.v1", msg.Topic)
	key, err := msg.Key.Encode()
	require.NoError(t, err)
	assert.Equal(t, "p-1", string(key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "ce-type", string(msg.Headers[0].Key))

	unkeyed := buildMessage("t", "", nil, nil)
	assert.Nil(t, unkeyed.Key)
	assert.Empty(t, unkeyed.Headers)
}

func TestPublishSendsPayload(t *testing.T) {
	mock := mocks.NewSyncProducer(t, nil)
	mock.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		if string(val) != `{"id":"evt-1"}` {
			return errors.New("unexpected payload")
		}
		return nil
	})
	mock.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)
	p := &Producer{sync: mock}

	require.NoError(t, p.Publish(context.Background(), "t", "p-1", []byte(`{"id":"evt-1"}`), nil))
	assert.ErrorIs(t, p.Publish(context.Background(), "t", "p-1", []byte(`{}`), nil), sarama.ErrOutOfBrokers)
	require.NoError(t, p.Close())
}

func TestPublishHonoursCancelledContext(t *testing.T) {
	p := &Producer{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Publish(ctx, "t", "k", nil, nil), context.Canceled)
}
