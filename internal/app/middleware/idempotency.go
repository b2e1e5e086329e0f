package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"time"

	"hostdesk/internal/app/commands"
	"hostdesk/internal/domain/availability"
	"hostdesk/internal/domain/shared/fault"
)

// IdempotentCommand is implemented by commands carrying a client supplied key.
type IdempotentCommand interface {
	commands.Command
	IdempotencyKey() string
	ResultPrototype() any
}

// IdempotencyRecord is the stored outcome of one key. A pending record
// reserves the key while its command runs.
type IdempotencyRecord struct {
	Key        string
	Command    string
	Payload    []byte
	Error      string
	ErrorKind  string
	Pending    bool
	OccurredAt time.Time
	ExpiresAt  time.Time
}

// IdempotencyStore hides records past their ExpiresAt from Get and lets
// Reserve take over their key.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (IdempotencyRecord, bool, error)
	// Reserve stores rec unless a live record already holds its key.
	Reserve(ctx context.Context, rec IdempotencyRecord) (bool, error)
	Save(ctx context.Context, rec IdempotencyRecord) error
	// Release drops a pending reservation of key.
	Release(ctx context.Context, key string) error
}

// ReservationLease bounds how long a crashed request can hold its key.
const ReservationLease = 2 * time.Minute

var (
	errMissingPrototype = errors.New("middleware: idempotent command requires result prototype")
	ErrKeyReused        = fault.Validation("middleware: idempotency key reused for a different command")
	ErrKeyInFlight      = fault.New(fault.KindConflict, "middleware: a request with this idempotency key is still running")
)

// Idempotency replays the stored outcome of a previously seen key. Records
// live for ttl; zero keeps them forever. Only successes and definitive
// domain failures are stored; anything else frees the key for a retry.
func Idempotency(store IdempotencyStore, ttl time.Duration) CommandMiddleware {
	if store == nil {
		panic("middleware: idempotency store required")
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			idCmd, ok := cmd.(IdempotentCommand)
			if !ok || idCmd.IdempotencyKey() == "" {
				return next.Dispatch(ctx, cmd)
			}
			key := idCmd.IdempotencyKey()
			now := time.Now().UTC()
			rec, found, err := store.Get(ctx, key)
			if err != nil {
				return nil, err
			}
			if found {
				return replay(rec, idCmd)
			}
			reserved, err := store.Reserve(ctx, IdempotencyRecord{
				Key:        key,
				Command:    cmd.Key(),
				Pending:    true,
				OccurredAt: now,
				ExpiresAt:  now.Add(ReservationLease),
			})
			if err != nil {
				return nil, err
			}
			if !reserved {
				// Lost the race: replay the winner if it already finished.
				rec, found, err := store.Get(ctx, key)
				if err != nil {
					return nil, err
				}
				if found {
					return replay(rec, idCmd)
				}
				return nil, ErrKeyInFlight
			}

			result, err := next.Dispatch(ctx, cmd)
			// The outcome is recorded even when the caller has gone away.
			storeCtx := context.WithoutCancel(ctx)
			if err != nil && !definitive(err) {
				if relErr := store.Release(storeCtx, key); relErr != nil {
					return nil, errors.Join(err, relErr)
				}
				return nil, err
			}
			record := IdempotencyRecord{Key: key, Command: cmd.Key(), OccurredAt: now}
			if ttl > 0 {
				record.ExpiresAt = now.Add(ttl)
			}
			if err != nil {
				record.Error = err.Error()
				record.ErrorKind = string(fault.KindOf(err))
				var conflict *availability.ConflictError
				if errors.As(err, &conflict) {
					payload, encErr := json.Marshal(conflict.Conflicts)
					if encErr != nil {
						return nil, errors.Join(err, encErr)
					}
					record.Payload = payload
				}
				if saveErr := store.Save(storeCtx, record); saveErr != nil {
					return nil, errors.Join(err, saveErr)
				}
				return nil, err
			}
			if result != nil {
				payload, encErr := json.Marshal(result)
				if encErr != nil {
					return nil, encErr
				}
				record.Payload = payload
			}
			if saveErr := store.Save(storeCtx, record); saveErr != nil {
				return nil, saveErr
			}
			return result, nil
		})
	}
}

// definitive reports whether err is a domain outcome a retry would repeat.
// Cancellation, store failures and concurrent-update conflicts are not.
func definitive(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var conflict *availability.ConflictError
	if errors.As(err, &conflict) {
		return true
	}
	switch fault.KindOf(err) {
	case fault.KindValidation, fault.KindInvalidOperation, fault.KindNotFound:
		return true
	}
	return false
}

func replay(rec IdempotencyRecord, cmd IdempotentCommand) (any, error) {
	if rec.Command != "" && rec.Command != cmd.Key() {
		return nil, ErrKeyReused
	}
	if rec.Pending {
		return nil, ErrKeyInFlight
	}
	if rec.Error != "" {
		kind := fault.Kind(rec.ErrorKind)
		if kind == fault.KindConflict && len(rec.Payload) > 0 {
			var conflicts []availability.Conflict
			if err := json.Unmarshal(rec.Payload, &conflicts); err != nil {
				return nil, err
			}
			return nil, &availability.ConflictError{Conflicts: conflicts}
		}
		return nil, fault.New(kind, rec.Error)
	}
	proto := cmd.ResultPrototype()
	if proto == nil {
		return nil, errMissingPrototype
	}
	if len(rec.Payload) > 0 {
		if err := json.Unmarshal(rec.Payload, proto); err != nil {
			return nil, err
		}
	}
	rv := reflect.ValueOf(proto)
	if rv.Kind() == reflect.Ptr && !rv.IsNil() {
		return rv.Interface(), nil
	}
	return proto, nil
}
