package feeds

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/IBM/sarama"

	appcalendar "hostdesk/internal/app/handlers/calendar"
	"hostdesk/internal/app/queries"
	"hostdesk/internal/domain/property"
	"hostdesk/internal/infra/storage/s3"
)

// Inbox deduplicates redelivered events. An event is marked only after its
// feed was written, so a failed write is retried on redelivery.
type Inbox interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Mark(ctx context.Context, eventID string) error
}

// Publisher rewrites a property's feed whenever one of its events arrives.
type Publisher struct {
	Queries queries.Bus
	Store   s3.ObjectStore
	Inbox   Inbox
	Prefix  string
	Clock   func() time.Time
	Logger  *slog.Logger
}

var ErrPublisherNotConfigured = errors.New("feeds: publisher missing dependencies")

type envelope struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		PropertyID string `json:"property_id"`
	} `json:"data"`
}

// Handle consumes one relayed CloudEvent.
func (p *Publisher) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	return p.HandleEvent(ctx, msg.Value)
}

func (p *Publisher) HandleEvent(ctx context.Context, payload []byte) error {
	if p.Queries == nil || p.Store == nil {
		return ErrPublisherNotConfigured
	}
	var evt envelope
	if err := json.Unmarshal(payload, &evt); err != nil {
		p.logger().WarnContext(ctx, "feeds: dropping malformed event", slog.String("error", err.Error()))
		return nil
	}
	propertyID := evt.Data.PropertyID
	if propertyID == "" {
		return nil
	}
	dedup := p.Inbox != nil && evt.ID != ""
	if dedup {
		seen, err := p.Inbox.Seen(ctx, evt.ID)
		if err != nil {
			return err
		}
		if seen {
			return nil
		}
	}
	var err error
	if strings.HasPrefix(evt.Type, "property.deleted") {
		err = p.remove(ctx, propertyID)
	} else {
		err = p.Publish(ctx, propertyID)
	}
	if err != nil || !dedup {
		return err
	}
	return p.Inbox.Mark(ctx, evt.ID)
}

// Publish renders and uploads the current feed of one property.
func (p *Publisher) Publish(ctx context.Context, propertyID string) error {
	feed, err := queries.Ask[appcalendar.FeedQuery, *appcalendar.Feed](ctx, p.Queries, appcalendar.FeedQuery{PropertyID: propertyID})
	if errors.Is(err, property.ErrNotFound) {
		return p.remove(ctx, propertyID)
	}
	if err != nil {
		return fmt.Errorf("feeds: load %s: %w", propertyID, err)
	}
	url, err := p.Store.Put(ctx, p.Key(propertyID), Render(feed, p.now()), ContentType)
	if err != nil {
		return err
	}
	p.logger().InfoContext(ctx, "calendar feed published",
		slog.String("property_id", propertyID),
		slog.Int("events", len(feed.Events)),
		slog.String("url", url))
	return nil
}

func (p *Publisher) remove(ctx context.Context, propertyID string) error {
	if err := p.Store.Remove(ctx, p.Key(propertyID)); err != nil {
		return err
	}
	p.logger().InfoContext(ctx, "calendar feed removed", slog.String("property_id", propertyID))
	return nil
}

// Key is the object key of a property's feed.
func (p *Publisher) Key(propertyID string) string {
	prefix := p.Prefix
	if prefix == "" {
		prefix = "calendars"
	}
	return path.Join(prefix, propertyID+".ics")
}

func (p *Publisher) now() time.Time {
	if p.Clock != nil {
		return p.Clock()
	}
	return time.Now()
}

func (p *Publisher) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}
