package property

import (
	"context"
	"errors"
	"strings"
	"time"

	"hostdesk/internal/domain/shared/events"
	"hostdesk/internal/domain/shared/fault"
	"hostdesk/internal/domain/shared/money"
)

var (
	ErrNotFound         = fault.NotFound("property: not found")
	ErrNameRequired     = fault.Validation("property: name is required")
	ErrInvalidRate      = fault.Validation("property: daily rate must be a positive amount")
	ErrInvalidCurrency  = fault.Validation("property: currency must be a three letter code")
	ErrInvalidCapacity  = fault.Validation("property: bedrooms, bathrooms and max guests must be non-negative")
	ErrInvalidStatus    = fault.Validation("property: unknown status")
	ErrUnknownPlatform  = fault.Validation("property: platform is not in the catalogue")
	ErrListingInactive  = fault.InvalidOperation("property: listing is not active")
	ErrReferenced       = fault.InvalidOperation("property: still referenced by bookings or tasks")
	ErrConcurrentUpdate = fault.New(fault.KindConflict, "property: concurrent update detected")
)

type ID string

type Status string

const (
	StatusAvailable   Status = "Available"
	StatusOccupied    Status = "Occupied"
	StatusMaintenance Status = "Maintenance"
	StatusRenovation  Status = "Renovation"
)

func ParseStatus(raw string) (Status, error) {
	for _, s := range []Status{StatusAvailable, StatusOccupied, StatusMaintenance, StatusRenovation} {
		if strings.EqualFold(raw, string(s)) {
			return s, nil
		}
	}
	return "", ErrInvalidStatus
}

// StatusSource records whether the stored status came from the calendar or a person.
type StatusSource string

const (
	SourceDerived StatusSource = "derived"
	SourceManual  StatusSource = "manual"
)

type Property struct {
	ID        ID
	Name      string
	Location  string
	DailyRate money.Money
	Bedrooms  int
	Bathrooms int
	MaxGuests int

	Status       Status
	StatusSource StatusSource

	IsActivelyListed   bool
	ListedOn           []Platform
	AutoListWhenVacant bool

	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int64
	events.Recorder
}

type Repository interface {
	ByID(ctx context.Context, id ID) (*Property, error)
	List(ctx context.Context) ([]*Property, error)
	Save(ctx context.Context, p *Property) error
	Delete(ctx context.Context, id ID) error
}

type CreateParams struct {
	ID                 ID
	Name               string
	Location           string
	DailyRate          money.Money
	Bedrooms           int
	Bathrooms          int
	MaxGuests          int
	AutoListWhenVacant bool
	CreatedAt          time.Time
}

func New(params CreateParams) (*Property, error) {
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	rate, err := money.NewPositive(params.DailyRate.Amount, params.DailyRate.Currency)
	switch {
	case errors.Is(err, money.ErrInvalidCurrency):
		return nil, ErrInvalidCurrency
	case err != nil:
		return nil, ErrInvalidRate
	}
	if params.Bedrooms < 0 || params.Bathrooms < 0 || params.MaxGuests < 0 {
		return nil, ErrInvalidCapacity
	}
	now := params.CreatedAt.UTC()
	p := &Property{
		ID:                 params.ID,
		Name:               name,
		Location:           strings.TrimSpace(params.Location),
		DailyRate:          rate,
		Bedrooms:           params.Bedrooms,
		Bathrooms:          params.Bathrooms,
		MaxGuests:          params.MaxGuests,
		Status:             StatusAvailable,
		StatusSource:       SourceDerived,
		AutoListWhenVacant: params.AutoListWhenVacant,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	p.Record(Created{PropertyID: p.ID, Name: p.Name, At: now})
	return p, nil
}

// SetStatus stores a status and its source and reports the previous status.
// Vacancy handling is the caller's concern.
func (p *Property) SetStatus(status Status, source StatusSource, now time.Time) (Status, bool) {
	prev := p.Status
	sourceChanged := p.StatusSource != source
	p.StatusSource = source
	if prev == status {
		if sourceChanged {
			p.UpdatedAt = now.UTC()
		}
		return prev, false
	}
	p.Status = status
	p.UpdatedAt = now.UTC()
	p.Record(StatusChanged{PropertyID: p.ID, From: prev, To: status, Source: source, At: p.UpdatedAt})
	return prev, true
}

// SetActive toggles the active flag. Deactivating clears every selected platform.
func (p *Property) SetActive(active bool, now time.Time) {
	if p.IsActivelyListed == active && (active || len(p.ListedOn) == 0) {
		return
	}
	p.IsActivelyListed = active
	if !active {
		p.ListedOn = nil
	}
	p.listingChanged(now)
}

// TogglePlatform flips one platform and reports the stored platforms it
// dropped because the catalogue no longer offers them.
func (p *Property) TogglePlatform(catalog Catalog, name string, now time.Time) ([]Platform, error) {
	if !p.IsActivelyListed {
		return nil, ErrListingInactive
	}
	platform, ok := catalog.Resolve(name)
	if !ok {
		return nil, ErrUnknownPlatform
	}
	set := p.selection()
	if p.IsListedOn(platform) {
		delete(set, platform)
	} else {
		set[platform] = struct{}{}
	}
	kept, dropped := catalog.retain(set)
	p.ListedOn = kept
	p.listingChanged(now, dropped...)
	return dropped, nil
}

func (p *Property) SelectAllPlatforms(catalog Catalog, now time.Time) error {
	if !p.IsActivelyListed {
		return ErrListingInactive
	}
	p.ListedOn = catalog.Platforms()
	p.listingChanged(now)
	return nil
}

func (p *Property) DeselectAllPlatforms(now time.Time) error {
	if !p.IsActivelyListed {
		return ErrListingInactive
	}
	p.ListedOn = nil
	p.listingChanged(now)
	return nil
}

// SetPlatforms replaces the selection. A non-empty selection requires an active listing.
func (p *Property) SetPlatforms(catalog Catalog, names []string, now time.Time) error {
	set := make(map[Platform]struct{}, len(names))
	for _, name := range names {
		platform, ok := catalog.Resolve(name)
		if !ok {
			return ErrUnknownPlatform
		}
		set[platform] = struct{}{}
	}
	if len(set) > 0 && !p.IsActivelyListed {
		return ErrListingInactive
	}
	p.ListedOn = catalog.order(set)
	p.listingChanged(now)
	return nil
}

func (p *Property) SetAutoListWhenVacant(enabled bool, now time.Time) {
	if p.AutoListWhenVacant == enabled {
		return
	}
	p.AutoListWhenVacant = enabled
	p.listingChanged(now)
}

// OnVacancy activates the listing on the full catalogue when auto-listing is enabled.
func (p *Property) OnVacancy(catalog Catalog, now time.Time) bool {
	if !p.AutoListWhenVacant {
		return false
	}
	p.IsActivelyListed = true
	p.ListedOn = catalog.Platforms()
	p.UpdatedAt = now.UTC()
	p.Record(ListingAutoActivated{PropertyID: p.ID, Platforms: p.Platforms(), At: p.UpdatedAt})
	return true
}

func (p *Property) IsListedOn(platform Platform) bool {
	for _, on := range p.ListedOn {
		if on == platform {
			return true
		}
	}
	return false
}

func (p *Property) Platforms() []Platform {
	out := make([]Platform, len(p.ListedOn))
	copy(out, p.ListedOn)
	return out
}

func (p *Property) MarkDeleted(cascade bool, now time.Time) {
	p.Record(Deleted{PropertyID: p.ID, Cascade: cascade, At: now.UTC()})
}

func (p *Property) selection() map[Platform]struct{} {
	set := make(map[Platform]struct{}, len(p.ListedOn))
	for _, on := range p.ListedOn {
		set[on] = struct{}{}
	}
	return set
}

func (p *Property) listingChanged(now time.Time, dropped ...Platform) {
	p.UpdatedAt = now.UTC()
	p.Record(ListingChanged{
		PropertyID:         p.ID,
		Active:             p.IsActivelyListed,
		Platforms:          p.Platforms(),
		Dropped:            dropped,
		AutoListWhenVacant: p.AutoListWhenVacant,
		At:                 p.UpdatedAt,
	})
}

// Clone returns a copy with no pending events.
func (p *Property) Clone() *Property {
	out := *p
	out.ListedOn = p.Platforms()
	out.Recorder = events.Recorder{}
	return &out
}
