package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	queue  []*Message
	sent   []string
	failed map[string]time.Time
}

func (s *fakeStore) Claim(ctx context.Context, workerID string) (*Message, error) {
	if len(s.queue) == 0 {
		return nil, nil
	}
	msg := s.queue[0]
	s.queue = s.queue[1:]
	return msg, nil
}

func (s *fakeStore) MarkSent(ctx context.Context, id string) error {
	s.sent = append(s.sent, id)
	return nil
}

func (s *fakeStore) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	if s.failed == nil {
		s.failed = map[string]time.Time{}
	}
	s.failed[id] = next
	return nil
}

type published struct {
	topic   string
	key     string
	payload []byte
	headers map[string]string
}

type fakeProducer struct {
	out  []published
	fail bool
}

func (p *fakeProducer) Publish(ctx context.Context, topic, key string, payload []byte, headers map[string]string) error {
	if p.fail {
		return errors.New("broker down")
	}
	p.out = append(p.out, published{topic: topic, key: key, payload: payload, headers: headers})
	return nil
}

func TestWorkerDrainPublishesCloudEvents(t *testing.T) {
	at := time.Date(2025, 4, 25, 12, 0, 0, 0, time.UTC)
	store := &fakeStore{queue: []*Message{{
		ID:         "evt-1",
		Name:       "booking.created",
		Aggregate:  "b-1",
		Key:        "p-1",
		Payload:    []byte(`{"booking_id":"b-1"}`),
		OccurredAt: at,
	}}}
	producer := &fakeProducer{}
	w := &Worker{Store: store, Producer: producer, TopicPrefix: "hostdesk."}

	sent, err := w.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	require.Len(t, producer.out, 1)

	msg := producer.out[0]
	assert.Equal(t, "hostdesk.booking.events.v1", msg.topic)
	assert.Equal(t, "p-1", msg.key)
	assert.Equal(t, "application/cloudevents+json", msg.headers["content-type"])
	assert.Equal(t, "evt-1", msg.headers["ce-id"])

	var evt map[string]any
	require.NoError(t, json.Unmarshal(msg.payload, &evt))
	assert.Equal(t, "1.0", evt["specversion"])
	assert.Equal(t, "booking.created.v1", evt["type"])
	assert.Equal(t, "app://hostdesk", evt["source"])
	assert.Equal(t, map[string]any{"booking_id": "b-1"}, evt["data"])
	assert.Equal(t, []string{"evt-1"}, store.sent)
}

func TestWorkerSchedulesRetryOnFailure(t *testing.T) {
	now := time.Date(2025, 4, 25, 12, 0, 0, 0, time.UTC)
	store := &fakeStore{queue: []*Message{
		{ID: "evt-1", Name: "property.status_changed", Aggregate: "p-1", Payload: []byte(`{}`), Attempts: 1},
		{ID: "evt-2", Name: "property.status_changed", Aggregate: "p-1", Payload: []byte(`not json`)},
	}}
	w := &Worker{
		Store:    store,
		Producer: &fakeProducer{fail: true},
		Backoff:  []time.Duration{time.Second, time.Minute},
		Now:      func() time.Time { return now },
	}

	sent, err := w.Drain(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Empty(t, store.sent)
	assert.Equal(t, now.Add(time.Minute), store.failed["evt-1"])
	assert.Equal(t, now.Add(time.Second), store.failed["evt-2"])
}

func TestWorkerRequiresDependencies(t *testing.T) {
	w := &Worker{}
	assert.ErrorIs(t, w.Run(context.Background()), ErrWorkerNotConfigured)
}

func TestTopicFor(t *testing.T) {
	w := &Worker{}
	assert.Equal(t, "task.events.v1", w.TopicFor("task.conflict_flagged"))
	assert.Equal(t, "misc.events.v1", w.TopicFor("misc"))
}
