package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"hostdesk/internal/domain/booking"
	"hostdesk/internal/domain/property"
	"hostdesk/internal/domain/shared/daterange"
	"hostdesk/internal/domain/shared/money"
	"hostdesk/internal/domain/tasks"
)

// saveVersioned upserts doc only while the stored version still equals
// version. A mismatch on an existing document collides on _id.
func saveVersioned(ctx context.Context, col *mongo.Collection, id string, version int64, doc any, conflict error) error {
	filter := bson.M{"_id": id, "version": version}
	res, err := col.UpdateOne(ctx, filter, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return conflict
		}
		return translate(err)
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return conflict
	}
	return nil
}

func findOne(ctx context.Context, col *mongo.Collection, id string, out any, notFound error) error {
	err := col.FindOne(ctx, bson.M{"_id": id}).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return notFound
	}
	return err
}

func ownerFilter(propertyID property.ID) bson.M {
	if propertyID == "" {
		return bson.M{}
	}
	return bson.M{"property_id": string(propertyID)}
}

type propertyRepo struct {
	u   *Unit
	col *mongo.Collection
}

func (r propertyRepo) ByID(ctx context.Context, id property.ID) (*property.Property, error) {
	var doc propertyDocument
	if err := findOne(r.u.sessionContext(ctx), r.col, string(id), &doc, property.ErrNotFound); err != nil {
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r propertyRepo) List(ctx context.Context) ([]*property.Property, error) {
	ctx = r.u.sessionContext(ctx)
	cur, err := r.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []propertyDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*property.Property, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.toAggregate())
	}
	return out, nil
}

func (r propertyRepo) Save(ctx context.Context, p *property.Property) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	doc := newPropertyDocument(p)
	doc.Version = p.Version + 1
	if err := saveVersioned(r.u.sessionContext(ctx), r.col, doc.ID, p.Version, doc, property.ErrConcurrentUpdate); err != nil {
		return err
	}
	p.Version = doc.Version
	return nil
}

func (r propertyRepo) Delete(ctx context.Context, id property.ID) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	res, err := r.col.DeleteOne(r.u.sessionContext(ctx), bson.M{"_id": string(id)})
	if err != nil {
		return translate(err)
	}
	if res.DeletedCount == 0 {
		return property.ErrNotFound
	}
	return nil
}

type bookingRepo struct {
	u   *Unit
	col *mongo.Collection
}

func (r bookingRepo) ByID(ctx context.Context, id booking.ID) (*booking.Booking, error) {
	var doc bookingDocument
	if err := findOne(r.u.sessionContext(ctx), r.col, string(id), &doc, booking.ErrNotFound); err != nil {
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r bookingRepo) Save(ctx context.Context, b *booking.Booking) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	doc := newBookingDocument(b)
	doc.Version = b.Version + 1
	if err := saveVersioned(r.u.sessionContext(ctx), r.col, doc.ID, b.Version, doc, booking.ErrConcurrentUpdate); err != nil {
		return err
	}
	b.Version = doc.Version
	return nil
}

func (r bookingRepo) List(ctx context.Context, propertyID property.ID) ([]*booking.Booking, error) {
	ctx = r.u.sessionContext(ctx)
	cur, err := r.col.Find(ctx, ownerFilter(propertyID), options.Find().SetSort(bson.D{{Key: "stay.check_in", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []bookingDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*booking.Booking, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.toAggregate())
	}
	return out, nil
}

func (r bookingRepo) DeleteByProperty(ctx context.Context, propertyID property.ID) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	_, err := r.col.DeleteMany(r.u.sessionContext(ctx), bson.M{"property_id": string(propertyID)})
	return translate(err)
}

type taskRepo struct {
	u   *Unit
	col *mongo.Collection
	typ tasks.Type
}

func (r taskRepo) ByID(ctx context.Context, id tasks.ID) (*tasks.Task, error) {
	var doc taskDocument
	if err := findOne(r.u.sessionContext(ctx), r.col, string(id), &doc, tasks.ErrNotFound); err != nil {
		return nil, err
	}
	return doc.toAggregate(r.typ), nil
}

func (r taskRepo) Save(ctx context.Context, t *tasks.Task) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	doc := newTaskDocument(t)
	doc.Version = t.Version + 1
	if err := saveVersioned(r.u.sessionContext(ctx), r.col, doc.ID, t.Version, doc, tasks.ErrConcurrentUpdate); err != nil {
		return err
	}
	t.Version = doc.Version
	return nil
}

func (r taskRepo) List(ctx context.Context, propertyID property.ID) ([]*tasks.Task, error) {
	ctx = r.u.sessionContext(ctx)
	cur, err := r.col.Find(ctx, ownerFilter(propertyID), options.Find().SetSort(bson.D{{Key: "window.start", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []taskDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*tasks.Task, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.toAggregate(r.typ))
	}
	return out, nil
}

func (r taskRepo) DeleteByProperty(ctx context.Context, propertyID property.ID) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	_, err := r.col.DeleteMany(r.u.sessionContext(ctx), bson.M{"property_id": string(propertyID)})
	return translate(err)
}

type propertyDocument struct {
	ID                 string   `bson:"_id"`
	Name               string   `bson:"name"`
	Location           string   `bson:"location"`
	DailyRate          rateDoc  `bson:"daily_rate"`
	Bedrooms           int      `bson:"bedrooms"`
	Bathrooms          int      `bson:"bathrooms"`
	MaxGuests          int      `bson:"max_guests"`
	Status             string   `bson:"status"`
	StatusSource       string   `bson:"status_source"`
	IsActivelyListed   bool     `bson:"is_actively_listed"`
	ListedOn           []string `bson:"listed_on"`
	AutoListWhenVacant bool     `bson:"auto_list_when_vacant"`
	CreatedAt          int64    `bson:"created_at"`
	UpdatedAt          int64    `bson:"updated_at"`
	Version            int64    `bson:"version"`
}

type rateDoc struct {
	Amount   int64  `bson:"amount"`
	Currency string `bson:"currency"`
}

func newPropertyDocument(p *property.Property) propertyDocument {
	listed := make([]string, 0, len(p.ListedOn))
	for _, platform := range p.ListedOn {
		listed = append(listed, string(platform))
	}
	return propertyDocument{
		ID:                 string(p.ID),
		Name:               p.Name,
		Location:           p.Location,
		DailyRate:          rateDoc{Amount: p.DailyRate.Amount, Currency: p.DailyRate.Currency},
		Bedrooms:           p.Bedrooms,
		Bathrooms:          p.Bathrooms,
		MaxGuests:          p.MaxGuests,
		Status:             string(p.Status),
		StatusSource:       string(p.StatusSource),
		IsActivelyListed:   p.IsActivelyListed,
		ListedOn:           listed,
		AutoListWhenVacant: p.AutoListWhenVacant,
		CreatedAt:          p.CreatedAt.UnixMilli(),
		UpdatedAt:          p.UpdatedAt.UnixMilli(),
		Version:            p.Version,
	}
}

func (d propertyDocument) toAggregate() *property.Property {
	listed := make([]property.Platform, 0, len(d.ListedOn))
	for _, name := range d.ListedOn {
		listed = append(listed, property.Platform(name))
	}
	return &property.Property{
		ID:                 property.ID(d.ID),
		Name:               d.Name,
		Location:           d.Location,
		DailyRate:          money.Money{Amount: d.DailyRate.Amount, Currency: d.DailyRate.Currency},
		Bedrooms:           d.Bedrooms,
		Bathrooms:          d.Bathrooms,
		MaxGuests:          d.MaxGuests,
		Status:             property.Status(d.Status),
		StatusSource:       property.StatusSource(d.StatusSource),
		IsActivelyListed:   d.IsActivelyListed,
		ListedOn:           listed,
		AutoListWhenVacant: d.AutoListWhenVacant,
		CreatedAt:          timestampToTime(d.CreatedAt),
		UpdatedAt:          timestampToTime(d.UpdatedAt),
		Version:            d.Version,
	}
}

type bookingDocument struct {
	ID                 string       `bson:"_id"`
	PropertyID         string       `bson:"property_id"`
	Guest              guestDoc     `bson:"guest"`
	Stay               stayDocument `bson:"stay"`
	Adults             int          `bson:"adults"`
	Children           int          `bson:"children"`
	Status             string       `bson:"status"`
	PaymentStatus      string       `bson:"payment_status"`
	Notes              string       `bson:"notes,omitempty"`
	CancellationReason string       `bson:"cancellation_reason,omitempty"`
	CreatedAt          int64        `bson:"created_at"`
	UpdatedAt          int64        `bson:"updated_at"`
	Version            int64        `bson:"version"`
}

type guestDoc struct {
	Name  string `bson:"name"`
	Email string `bson:"email,omitempty"`
	Phone string `bson:"phone,omitempty"`
}

type stayDocument struct {
	CheckIn  int64 `bson:"check_in"`
	CheckOut int64 `bson:"check_out"`
}

func newBookingDocument(b *booking.Booking) bookingDocument {
	return bookingDocument{
		ID:                 string(b.ID),
		PropertyID:         string(b.PropertyID),
		Guest:              guestDoc{Name: b.Guest.Name, Email: b.Guest.Email, Phone: b.Guest.Phone},
		Stay:               stayDocument{CheckIn: b.Stay.Start.UnixMilli(), CheckOut: b.Stay.End.UnixMilli()},
		Adults:             b.Adults,
		Children:           b.Children,
		Status:             string(b.Status),
		PaymentStatus:      string(b.PaymentStatus),
		Notes:              b.Notes,
		CancellationReason: b.CancellationReason,
		CreatedAt:          b.CreatedAt.UnixMilli(),
		UpdatedAt:          b.UpdatedAt.UnixMilli(),
		Version:            b.Version,
	}
}

func (d bookingDocument) toAggregate() *booking.Booking {
	return &booking.Booking{
		ID:                 booking.ID(d.ID),
		PropertyID:         property.ID(d.PropertyID),
		Guest:              booking.Guest{Name: d.Guest.Name, Email: d.Guest.Email, Phone: d.Guest.Phone},
		Stay:               daterange.DateRange{Start: timestampToTime(d.Stay.CheckIn), End: timestampToTime(d.Stay.CheckOut)},
		Adults:             d.Adults,
		Children:           d.Children,
		Status:             booking.Status(d.Status),
		PaymentStatus:      booking.PaymentStatus(d.PaymentStatus),
		Notes:              d.Notes,
		CancellationReason: d.CancellationReason,
		CreatedAt:          timestampToTime(d.CreatedAt),
		UpdatedAt:          timestampToTime(d.UpdatedAt),
		Version:            d.Version,
	}
}

type taskDocument struct {
	ID              string     `bson:"_id"`
	PropertyID      string     `bson:"property_id"`
	Window          windowDocument `bson:"window"`
	Staff           string     `bson:"staff,omitempty"`
	Status          string     `bson:"status"`
	Notes           string     `bson:"notes,omitempty"`
	Description     string     `bson:"description,omitempty"`
	Priority        string     `bson:"priority,omitempty"`
	Kind            string     `bson:"kind,omitempty"`
	ConflictFlagged bool       `bson:"conflict_flagged"`
	CreatedAt       int64      `bson:"created_at"`
	UpdatedAt       int64      `bson:"updated_at"`
	Version         int64      `bson:"version"`
}

type windowDocument struct {
	Start int64 `bson:"start"`
	End   int64 `bson:"end"`
}

func newTaskDocument(t *tasks.Task) taskDocument {
	return taskDocument{
		ID:              string(t.ID),
		PropertyID:      string(t.PropertyID),
		Window:          windowDocument{Start: t.Window.Start.UnixMilli(), End: t.Window.End.UnixMilli()},
		Staff:           t.Staff,
		Status:          string(t.Status),
		Notes:           t.Notes,
		Description:     t.Description,
		Priority:        string(t.Priority),
		Kind:            string(t.Kind),
		ConflictFlagged: t.ConflictFlagged,
		CreatedAt:       t.CreatedAt.UnixMilli(),
		UpdatedAt:       t.UpdatedAt.UnixMilli(),
		Version:         t.Version,
	}
}

func (d taskDocument) toAggregate(typ tasks.Type) *tasks.Task {
	return &tasks.Task{
		ID:              tasks.ID(d.ID),
		Type:            typ,
		PropertyID:      property.ID(d.PropertyID),
		Window:          daterange.DateRange{Start: timestampToTime(d.Window.Start), End: timestampToTime(d.Window.End)},
		Staff:           d.Staff,
		Status:          tasks.Status(d.Status),
		Notes:           d.Notes,
		Description:     d.Description,
		Priority:        tasks.Priority(d.Priority),
		Kind:            tasks.Kind(d.Kind),
		ConflictFlagged: d.ConflictFlagged,
		CreatedAt:       timestampToTime(d.CreatedAt),
		UpdatedAt:       timestampToTime(d.UpdatedAt),
		Version:         d.Version,
	}
}

func timestampToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
