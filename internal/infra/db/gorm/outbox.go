package gorm

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	appoutbox "hostdesk/internal/app/outbox"
	"hostdesk/internal/infra/outbox"
)

type outboxModel struct {
	ID          string            `gorm:"column:id;primaryKey"`
	Name        string            `gorm:"column:name"`
	Aggregate   string            `gorm:"column:aggregate"`
	Key         string            `gorm:"column:partition_key"`
	Payload     []byte            `gorm:"column:payload"`
	Headers     map[string]string `gorm:"column:headers;type:text;serializer:json"`
	OccurredAt  time.Time         `gorm:"column:occurred_at"`
	State       string            `gorm:"column:state;index:idx_outbox_due,priority:1"`
	NextAttempt time.Time         `gorm:"column:next_attempt_at;index:idx_outbox_due,priority:2"`
	Attempts    int               `gorm:"column:attempts"`
	ClaimedBy   string            `gorm:"column:claimed_by"`
	LastError   string            `gorm:"column:last_error"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime:false"`
	Seq         int64             `gorm:"column:seq;index"`
}

func (outboxModel) TableName() string { return "outbox" }

func newOutboxModel(rec appoutbox.EventRecord, seq int64) outboxModel {
	now := time.Now().UTC()
	return outboxModel{
		ID:          rec.ID,
		Name:        rec.Name,
		Aggregate:   rec.Aggregate,
		Key:         rec.Key,
		Payload:     rec.Payload,
		Headers:     rec.Headers,
		OccurredAt:  rec.OccurredAt.UTC(),
		State:       outbox.StateNew,
		NextAttempt: now,
		CreatedAt:   now,
		Seq:         seq,
	}
}

func (m outboxModel) message() *outbox.Message {
	return &outbox.Message{
		ID:         m.ID,
		Name:       m.Name,
		Aggregate:  m.Aggregate,
		Key:        m.Key,
		Payload:    m.Payload,
		OccurredAt: m.OccurredAt.UTC(),
		Headers:    m.Headers,
		Attempts:   m.Attempts,
	}
}

// OutboxStore is the relay side of the outbox table.
type OutboxStore struct {
	DB  *gorm.DB
	Now func() time.Time
}

func (s *OutboxStore) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Claim hands out the oldest due record. A record taken by another worker
// between the read and the update is skipped.
func (s *OutboxStore) Claim(ctx context.Context, workerID string) (*outbox.Message, error) {
	db := s.DB.WithContext(ctx)
	var m outboxModel
	err := db.Where("state IN ? AND next_attempt_at <= ?", []string{outbox.StateNew, outbox.StateFailed}, s.now()).
		Order("seq, id").
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	res := db.Model(&outboxModel{}).
		Where("id = ? AND state = ?", m.ID, m.State).
		Updates(map[string]any{"state": outbox.StateClaimed, "claimed_by": workerID})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return m.message(), nil
}

func (s *OutboxStore) MarkSent(ctx context.Context, id string) error {
	return s.update(ctx, id, map[string]any{"state": outbox.StateSent})
}

func (s *OutboxStore) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	return s.update(ctx, id, map[string]any{
		"state":           outbox.StateFailed,
		"next_attempt_at": next.UTC(),
		"last_error":      errMsg,
		"attempts":        gorm.Expr("attempts + 1"),
	})
}

func (s *OutboxStore) update(ctx context.Context, id string, values map[string]any) error {
	res := s.DB.WithContext(ctx).Model(&outboxModel{}).Where("id = ?", id).Updates(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return outbox.ErrMessageNotFound
	}
	return nil
}

// State reports the relay state of one record.
func (s *OutboxStore) State(ctx context.Context, id string) (string, error) {
	var m outboxModel
	if err := s.DB.WithContext(ctx).Select("state").First(&m, "id = ?", id).Error; err != nil {
		return "", notFound(err, outbox.ErrMessageNotFound)
	}
	return m.State, nil
}

var _ outbox.Store = (*OutboxStore)(nil)
