package property

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostdesk/internal/domain/shared/fault"
	"hostdesk/internal/domain/shared/money"
)

var now = time.Date(2025, time.April, 20, 12, 0, 0, 0, time.UTC)

func newProperty(t *testing.T) *Property {
	t.Helper()
	p, err := New(CreateParams{
		ID:        "prop-1",
		Name:      " Sea View ",
		Location:  "Lisbon",
		DailyRate: money.Must(12000, "EUR"),
		Bedrooms:  2,
		Bathrooms: 1,
		MaxGuests: 4,
		CreatedAt: now,
	})
	require.NoError(t, err)
	return p
}

func TestNewValidates(t *testing.T) {
	_, err := New(CreateParams{Name: "", DailyRate: money.Must(100, "EUR")})
	assert.ErrorIs(t, err, ErrNameRequired)

	_, err = New(CreateParams{Name: "x", DailyRate: money.Must(0, "EUR")})
	assert.ErrorIs(t, err, ErrInvalidRate)

	_, err = New(CreateParams{Name: "x", DailyRate: money.Money{Amount: 100, Currency: "EURO"}})
	assert.ErrorIs(t, err, ErrInvalidCurrency)

	lower, err := New(CreateParams{Name: "x", DailyRate: money.Money{Amount: 100, Currency: " eur "}})
	require.NoError(t, err)
	assert.Equal(t, "EUR", lower.DailyRate.Currency)

	_, err = New(CreateParams{Name: "x", DailyRate: money.Must(100, "EUR"), MaxGuests: -1})
	assert.ErrorIs(t, err, ErrInvalidCapacity)
	assert.Equal(t, fault.KindValidation, fault.KindOf(err))

	p := newProperty(t)
	assert.Equal(t, "Sea View", p.Name)
	assert.Equal(t, StatusAvailable, p.Status)
	assert.Equal(t, SourceDerived, p.StatusSource)
	assert.False(t, p.IsActivelyListed)
	assert.Len(t, p.PendingEvents(), 1)
}

func TestListingRequiresActive(t *testing.T) {
	p := newProperty(t)
	catalog := DefaultCatalog()

	_, err := p.TogglePlatform(catalog, "Airbnb", now)
	assert.ErrorIs(t, err, ErrListingInactive)
	assert.ErrorIs(t, p.SelectAllPlatforms(catalog, now), ErrListingInactive)
	assert.ErrorIs(t, p.DeselectAllPlatforms(now), ErrListingInactive)
	assert.Equal(t, fault.KindInvalidOperation, fault.KindOf(p.DeselectAllPlatforms(now)))
}

func TestToggleAndDeactivate(t *testing.T) {
	p := newProperty(t)
	catalog := DefaultCatalog()
	p.SetActive(true, now)
	toggle := func(name string) error {
		_, err := p.TogglePlatform(catalog, name, now)
		return err
	}

	require.NoError(t, toggle("vrbo"))
	require.NoError(t, toggle("Airbnb"))
	assert.Equal(t, []Platform{"Airbnb", "VRBO"}, p.ListedOn)

	require.NoError(t, toggle("Airbnb"))
	assert.Equal(t, []Platform{"VRBO"}, p.ListedOn)

	assert.ErrorIs(t, toggle("Craigslist"), ErrUnknownPlatform)

	p.SetActive(false, now)
	assert.False(t, p.IsActivelyListed)
	assert.Empty(t, p.ListedOn)
}

func TestToggleReportsPlatformsLeftTheCatalogue(t *testing.T) {
	p := newProperty(t)
	p.SetActive(true, now)
	require.NoError(t, p.SelectAllPlatforms(DefaultCatalog(), now))
	p.DrainEvents()

	narrowed := NewCatalog([]string{"Airbnb", "VRBO"})
	dropped, err := p.TogglePlatform(narrowed, "airbnb", now)
	require.NoError(t, err)
	assert.Equal(t, []Platform{"Agoda", "Booking.com", "Expedia", "TripAdvisor"}, dropped)
	assert.Equal(t, []Platform{"VRBO"}, p.ListedOn)

	evs := p.DrainEvents()
	require.Len(t, evs, 1)
	changed, ok := evs[0].(ListingChanged)
	require.True(t, ok)
	assert.Equal(t, dropped, changed.Dropped)

	dropped, err = p.TogglePlatform(narrowed, "Airbnb", now)
	require.NoError(t, err)
	assert.Empty(t, dropped)
}

func TestSetActiveTrueKeepsSelection(t *testing.T) {
	p := newProperty(t)
	catalog := DefaultCatalog()
	p.SetActive(true, now)
	require.NoError(t, p.SelectAllPlatforms(catalog, now))
	p.SetActive(true, now)
	assert.Len(t, p.ListedOn, len(DefaultPlatforms))
}

func TestSetPlatforms(t *testing.T) {
	p := newProperty(t)
	catalog := DefaultCatalog()

	assert.ErrorIs(t, p.SetPlatforms(catalog, []string{"Airbnb"}, now), ErrListingInactive)
	require.NoError(t, p.SetPlatforms(catalog, nil, now))

	p.SetActive(true, now)
	require.NoError(t, p.SetPlatforms(catalog, []string{"Agoda", "Airbnb", "agoda"}, now))
	assert.Equal(t, []Platform{"Airbnb", "Agoda"}, p.ListedOn)
	assert.ErrorIs(t, p.SetPlatforms(catalog, []string{"Nope"}, now), ErrUnknownPlatform)
}

func TestOnVacancy(t *testing.T) {
	p := newProperty(t)
	catalog := NewCatalog([]string{"Airbnb", "VRBO"})

	assert.False(t, p.OnVacancy(catalog, now))
	assert.False(t, p.IsActivelyListed)

	p.SetAutoListWhenVacant(true, now)
	assert.False(t, p.IsActivelyListed, "enabling the flag is not retroactive")
	assert.True(t, p.OnVacancy(catalog, now))
	assert.True(t, p.IsActivelyListed)
	assert.Equal(t, []Platform{"Airbnb", "VRBO"}, p.ListedOn)
}

func TestSetStatus(t *testing.T) {
	p := newProperty(t)
	p.DrainEvents()

	prev, changed := p.SetStatus(StatusOccupied, SourceManual, now)
	assert.True(t, changed)
	assert.Equal(t, StatusAvailable, prev)
	assert.Equal(t, SourceManual, p.StatusSource)

	_, changed = p.SetStatus(StatusOccupied, SourceDerived, now)
	assert.False(t, changed)
	assert.Equal(t, SourceDerived, p.StatusSource)
	assert.Len(t, p.DrainEvents(), 1)
}

func TestCatalog(t *testing.T) {
	c := NewCatalog([]string{" Airbnb ", "airbnb", "", "VRBO"})
	assert.Equal(t, []Platform{"Airbnb", "VRBO"}, c.Platforms())
	assert.True(t, c.Contains("vrbo"))

	assert.Equal(t, DefaultPlatforms, NewCatalog(nil).Platforms())
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("renovation")
	require.NoError(t, err)
	assert.Equal(t, StatusRenovation, s)

	_, err = ParseStatus("Closed")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}
