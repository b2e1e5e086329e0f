package gorm

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"hostdesk/internal/app/middleware"
)

type idempotencyModel struct {
	Key        string    `gorm:"column:idem_key;primaryKey"`
	Command    string    `gorm:"column:command"`
	Payload    []byte    `gorm:"column:payload"`
	Error      string    `gorm:"column:error"`
	ErrorKind  string    `gorm:"column:error_kind"`
	Pending    bool      `gorm:"column:pending"`
	OccurredAt time.Time `gorm:"column:occurred_at"`
	ExpiresAt  time.Time `gorm:"column:expires_at;index"`
}

func (idempotencyModel) TableName() string { return "idempotency_keys" }

// IdempotencyStore keeps replay records in the idempotency_keys table.
// Expired rows are deleted when read.
type IdempotencyStore struct {
	DB  *gorm.DB
	Now func() time.Time
}

func (s *IdempotencyStore) Get(ctx context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	db := s.DB.WithContext(ctx)
	var m idempotencyModel
	err := db.First(&m, "idem_key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return middleware.IdempotencyRecord{}, false, nil
	}
	if err != nil {
		return middleware.IdempotencyRecord{}, false, err
	}
	if !m.ExpiresAt.IsZero() && !s.now().Before(m.ExpiresAt) {
		if err := db.Delete(&idempotencyModel{}, "idem_key = ?", key).Error; err != nil {
			return middleware.IdempotencyRecord{}, false, err
		}
		return middleware.IdempotencyRecord{}, false, nil
	}
	return middleware.IdempotencyRecord{
		Key:        m.Key,
		Command:    m.Command,
		Payload:    m.Payload,
		Error:      m.Error,
		ErrorKind:  m.ErrorKind,
		Pending:    m.Pending,
		OccurredAt: m.OccurredAt.UTC(),
		ExpiresAt:  m.ExpiresAt.UTC(),
	}, true, nil
}

func (s *IdempotencyStore) Save(ctx context.Context, rec middleware.IdempotencyRecord) error {
	m := toIdempotencyModel(rec)
	return s.DB.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&m).Error
}

// Reserve relies on the primary key: of two racing inserts only one lands.
func (s *IdempotencyStore) Reserve(ctx context.Context, rec middleware.IdempotencyRecord) (bool, error) {
	db := s.DB.WithContext(ctx)
	err := db.Where("idem_key = ? AND expires_at > ? AND expires_at <= ?", rec.Key, time.Time{}, s.now().UTC()).
		Delete(&idempotencyModel{}).Error
	if err != nil {
		return false, err
	}
	m := toIdempotencyModel(rec)
	res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&m)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	return s.DB.WithContext(ctx).Where("idem_key = ? AND pending = ?", key, true).
		Delete(&idempotencyModel{}).Error
}

func toIdempotencyModel(rec middleware.IdempotencyRecord) idempotencyModel {
	return idempotencyModel{
		Key:        rec.Key,
		Command:    rec.Command,
		Payload:    rec.Payload,
		Error:      rec.Error,
		ErrorKind:  rec.ErrorKind,
		Pending:    rec.Pending,
		OccurredAt: rec.OccurredAt.UTC(),
		ExpiresAt:  rec.ExpiresAt.UTC(),
	}
}

func (s *IdempotencyStore) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

var _ middleware.IdempotencyStore = (*IdempotencyStore)(nil)

type inboxModel struct {
	EventID    string    `gorm:"column:event_id;primaryKey"`
	Consumer   string    `gorm:"column:consumer;primaryKey"`
	ReceivedAt time.Time `gorm:"column:received_at"`
}

func (inboxModel) TableName() string { return "inbox" }

// Inbox records consumed event ids per consumer.
type Inbox struct {
	DB       *gorm.DB
	Consumer string
}

func (i *Inbox) Seen(ctx context.Context, eventID string) (bool, error) {
	var n int64
	err := i.DB.WithContext(ctx).Model(&inboxModel{}).
		Where("event_id = ? AND consumer = ?", eventID, i.Consumer).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (i *Inbox) Mark(ctx context.Context, eventID string) error {
	row := inboxModel{EventID: eventID, Consumer: i.Consumer, ReceivedAt: time.Now().UTC()}
	return i.DB.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
}
