package availability

import (
	"fmt"
	"time"

	"hostdesk/internal/domain/property"
)

// DeriveStatus computes the status the calendar implies at asOf. A live
// booking wins over renovation, renovation over maintenance.
func DeriveStatus(s Snapshot, asOf time.Time) property.Status {
	for _, b := range s.Bookings {
		if b.Occupies() && b.Stay.ContainsTime(asOf) {
			return property.StatusOccupied
		}
	}
	maintenance := false
	for _, t := range s.Maintenance {
		if !t.Active() || !t.Window.ContainsTime(asOf) {
			continue
		}
		if t.IsRenovation() {
			return property.StatusRenovation
		}
		maintenance = true
	}
	if maintenance {
		return property.StatusMaintenance
	}
	return property.StatusAvailable
}

// Transition describes what ApplyStatusChange did.
type Transition struct {
	From       property.Status
	To         property.Status
	Changed    bool
	AutoListed bool
}

// ApplyStatusChange stores status on p. Entering Available runs the vacancy
// hook when auto-listing is enabled at that moment; leaving Available has no
// listing effect.
func ApplyStatusChange(p *property.Property, status property.Status, source property.StatusSource, catalog property.Catalog, now time.Time) Transition {
	from, changed := p.SetStatus(status, source, now)
	tr := Transition{From: from, To: status, Changed: changed}
	if changed && status == property.StatusAvailable {
		tr.AutoListed = p.OnVacancy(catalog, now)
	}
	return tr
}

// IntegrityWarning reports a stored status that disagrees with the calendar.
type IntegrityWarning struct {
	PropertyID property.ID
	Stored     property.Status
	Derived    property.Status
	Source     property.StatusSource
}

func (w IntegrityWarning) Message() string {
	return fmt.Sprintf("stored status %s (%s) differs from calendar status %s", w.Stored, w.Source, w.Derived)
}

// Check compares stored and derived status.
func Check(p *property.Property, derived property.Status) *IntegrityWarning {
	if p.Status == derived {
		return nil
	}
	return &IntegrityWarning{PropertyID: p.ID, Stored: p.Status, Derived: derived, Source: p.StatusSource}
}

type Outcome struct {
	Derived    property.Status
	Warning    *IntegrityWarning
	Corrected  bool
	Transition Transition
}

// Reconcile corrects derived-source mismatches. Manual overrides are only
// reported unless force is set.
func Reconcile(p *property.Property, derived property.Status, force bool, catalog property.Catalog, now time.Time) Outcome {
	warning := Check(p, derived)
	out := Outcome{Derived: derived, Warning: warning}
	if warning == nil {
		if force && p.StatusSource == property.SourceManual {
			out.Transition = ApplyStatusChange(p, derived, property.SourceDerived, catalog, now)
		}
		return out
	}
	if p.StatusSource == property.SourceManual && !force {
		return out
	}
	out.Transition = ApplyStatusChange(p, derived, property.SourceDerived, catalog, now)
	out.Corrected = true
	return out
}
