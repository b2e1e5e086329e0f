package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	appoutbox "hostdesk/internal/app/outbox"
	"hostdesk/internal/app/uow"
	"hostdesk/internal/domain/booking"
	"hostdesk/internal/domain/property"
	"hostdesk/internal/domain/tasks"
)

var (
	ErrUnitOfWorkNotConfigured = errors.New("mongo: unit of work factory missing database")
	ErrUnitClosed              = errors.New("mongo: unit of work already finished")
	ErrReadOnly                = errors.New("mongo: write in read-only unit of work")
)

const (
	writeConflictCode         = 112
	transientTransactionLabel = "TransientTransactionError"
)

// Factory wires Mongo transactions into the generic UnitOfWork interface.
type Factory struct {
	DB *mongo.Database
}

// Begin starts a MongoDB session/transaction.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	session, err := f.DB.Client().StartSession()
	if err != nil {
		return nil, err
	}
	txnOpts := options.Transaction().SetReadConcern(f.DB.ReadConcern()).SetWriteConcern(f.DB.WriteConcern())
	if err := session.StartTransaction(txnOpts); err != nil {
		session.EndSession(ctx)
		return nil, err
	}
	u := &Unit{db: f.DB, session: session, readOnly: opts.ReadOnly}
	u.outbox = appoutbox.NewStaged(u.writeOutbox)
	return u, nil
}

type Unit struct {
	db       *mongo.Database
	session  mongo.Session
	readOnly bool
	done     bool
	outbox   *appoutbox.Staged
}

func (u *Unit) Properties() property.Repository {
	return propertyRepo{u: u, col: u.db.Collection(propertiesCollection)}
}

func (u *Unit) Bookings() booking.Repository {
	return bookingRepo{u: u, col: u.db.Collection(bookingsCollection)}
}

func (u *Unit) Cleaning() tasks.Repository {
	return taskRepo{u: u, col: u.db.Collection(cleaningCollection), typ: tasks.TypeCleaning}
}

func (u *Unit) Maintenance() tasks.Repository {
	return taskRepo{u: u, col: u.db.Collection(maintenanceCollection), typ: tasks.TypeMaintenance}
}

func (u *Unit) Outbox() appoutbox.Outbox { return u.outbox }

// Lock bumps a counter on the property document. A second transaction doing
// the same before this one ends gets a write conflict and aborts.
func (u *Unit) Lock(ctx context.Context, id property.ID) error {
	if u.done {
		return ErrUnitClosed
	}
	_, err := u.db.Collection(propertiesCollection).UpdateOne(u.sessionContext(ctx), bson.M{"_id": string(id)}, bson.M{"$inc": bson.M{"lock": 1}})
	return translate(err)
}

func (u *Unit) Commit(ctx context.Context) error {
	if u.done {
		return ErrUnitClosed
	}
	u.done = true
	defer u.session.EndSession(ctx)
	if u.readOnly {
		return u.session.AbortTransaction(ctx)
	}
	if err := ctx.Err(); err != nil {
		_ = u.session.AbortTransaction(context.Background())
		return err
	}
	return translate(u.session.CommitTransaction(ctx))
}

func (u *Unit) Rollback(ctx context.Context) error {
	if u.done {
		return nil
	}
	u.done = true
	defer u.session.EndSession(ctx)
	return u.session.AbortTransaction(ctx)
}

// InjectContext ensures Mongo session is available in context for downstream repos.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return mongo.NewSessionContext(ctx, u.session)
}

// sessionContext binds ctx to the unit's session when the caller has not.
func (u *Unit) sessionContext(ctx context.Context) context.Context {
	if mongo.SessionFromContext(ctx) != nil {
		return ctx
	}
	return mongo.NewSessionContext(ctx, u.session)
}

func (u *Unit) writable() error {
	if u.done {
		return ErrUnitClosed
	}
	if u.readOnly {
		return ErrReadOnly
	}
	return nil
}

func (u *Unit) writeOutbox(ctx context.Context, records []appoutbox.EventRecord) error {
	if err := u.writable(); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}
	base := time.Now().UnixNano()
	docs := make([]any, 0, len(records))
	for i, rec := range records {
		docs = append(docs, newEventDocument(rec, base+int64(i)))
	}
	_, err := u.db.Collection(outboxCollection).InsertMany(u.sessionContext(ctx), docs)
	return translate(err)
}

// translate turns transaction write conflicts into the domain conflict so
// callers see a retryable 409 instead of a driver error.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var se mongo.ServerError
	if errors.As(err, &se) && (se.HasErrorLabel(transientTransactionLabel) || se.HasErrorCode(writeConflictCode)) {
		return errors.Join(property.ErrConcurrentUpdate, err)
	}
	return err
}

var _ uow.Factory = Factory{}
