package memory

import (
	"context"
	"sync"
	"time"

	appoutbox "hostdesk/internal/app/outbox"
	"hostdesk/internal/infra/outbox"
)

// OutboxStore holds committed event records until the relay marks them sent.
type OutboxStore struct {
	mu   sync.Mutex
	rows []*outboxRow
}

type outboxRow struct {
	msg       outbox.Message
	state     string
	next      time.Time
	claimedBy string
	lastError string
}

func NewOutboxStore() *OutboxStore {
	return &OutboxStore{}
}

func (s *OutboxStore) append(records ...appoutbox.EventRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range records {
		s.rows = append(s.rows, &outboxRow{msg: outbox.FromRecord(rec), state: outbox.StateNew})
	}
}

// Claim hands out the oldest due record.
func (s *OutboxStore) Claim(ctx context.Context, workerID string) (*outbox.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for _, row := range s.rows {
		if row.state != outbox.StateNew && row.state != outbox.StateFailed {
			continue
		}
		if row.next.After(now) {
			continue
		}
		row.state = outbox.StateClaimed
		row.claimedBy = workerID
		msg := row.msg
		return &msg, nil
	}
	return nil, nil
}

func (s *OutboxStore) MarkSent(ctx context.Context, id string) error {
	return s.update(id, func(row *outboxRow) {
		row.state = outbox.StateSent
	})
}

func (s *OutboxStore) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	return s.update(id, func(row *outboxRow) {
		row.state = outbox.StateFailed
		row.next = next
		row.lastError = errMsg
		row.msg.Attempts++
	})
}

func (s *OutboxStore) update(id string, fn func(row *outboxRow)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.rows {
		if row.msg.ID == id {
			fn(row)
			return nil
		}
	}
	return outbox.ErrMessageNotFound
}

// Records returns every committed record in commit order.
func (s *OutboxStore) Records() []outbox.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]outbox.Message, len(s.rows))
	for i, row := range s.rows {
		out[i] = row.msg
	}
	return out
}

// State reports the relay state of one record.
func (s *OutboxStore) State(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.rows {
		if row.msg.ID == id {
			return row.state
		}
	}
	return ""
}

var _ outbox.Store = (*OutboxStore)(nil)
