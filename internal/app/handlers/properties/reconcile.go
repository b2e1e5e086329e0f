package properties

import (
	"context"
	"log/slog"
	"sort"

	"hostdesk/internal/app/dto"
	"hostdesk/internal/app/handlers/support"
	"hostdesk/internal/domain/availability"
	"hostdesk/internal/domain/property"
)

// ReconcileCommand recomputes the derived status of one property, or of all
// of them when PropertyID is empty.
type ReconcileCommand struct {
	PropertyID string
	Force      bool
	support.Idempotency
}

func (ReconcileCommand) Key() string { return "property.reconcile" }

func (ReconcileCommand) ResultPrototype() any { return &dto.ReconcileReport{} }

type ReconcileHandler struct {
	support.Base
}

func (h *ReconcileHandler) Handle(ctx context.Context, cmd ReconcileCommand) (*dto.ReconcileReport, error) {
	unit, err := support.Unit(ctx)
	if err != nil {
		return nil, err
	}
	ids := []property.ID{property.ID(cmd.PropertyID)}
	if cmd.PropertyID == "" {
		all, err := unit.Properties().List(ctx)
		if err != nil {
			return nil, err
		}
		ids = ids[:0]
		for _, p := range all {
			ids = append(ids, p.ID)
		}
		// Locks are always taken in id order.
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	}

	report := &dto.ReconcileReport{Entries: make([]dto.ReconcileEntry, 0, len(ids))}
	for _, id := range ids {
		entry, err := h.reconcileOne(ctx, cmd.Force, id)
		if err != nil {
			return nil, err
		}
		report.Checked++
		if entry.Corrected {
			report.Corrected++
		}
		report.Entries = append(report.Entries, entry)
	}
	h.Log().InfoContext(ctx, "reconcile finished",
		slog.Int("checked", report.Checked),
		slog.Int("corrected", report.Corrected),
		slog.Bool("force", cmd.Force))
	return report, nil
}

func (h *ReconcileHandler) reconcileOne(ctx context.Context, force bool, id property.ID) (dto.ReconcileEntry, error) {
	unit, err := support.Unit(ctx)
	if err != nil {
		return dto.ReconcileEntry{}, err
	}
	p, err := support.LockProperty(ctx, unit, id)
	if err != nil {
		return dto.ReconcileEntry{}, err
	}
	snap, err := support.LoadSnapshot(ctx, unit, id)
	if err != nil {
		return dto.ReconcileEntry{}, err
	}
	stored, source := p.Status, p.StatusSource
	outcome := availability.Reconcile(p, availability.DeriveStatus(snap, h.Now()), force, h.Catalog, h.Now())
	h.LogWarning(ctx, outcome.Warning)
	if outcome.Corrected || outcome.Transition.Changed || p.StatusSource != source {
		if err := unit.Properties().Save(ctx, p); err != nil {
			return dto.ReconcileEntry{}, err
		}
		h.LogTransition(ctx, p, outcome.Transition)
		if err := h.Persist(ctx, unit, p); err != nil {
			return dto.ReconcileEntry{}, err
		}
	}
	entry := dto.ReconcileEntry{
		PropertyID: string(id),
		Stored:     string(stored),
		Derived:    string(outcome.Derived),
		Corrected:  outcome.Corrected,
		AutoListed: outcome.Transition.AutoListed,
	}
	if outcome.Warning != nil {
		w := dto.MapWarning(*outcome.Warning)
		entry.Warning = &w
	}
	return entry, nil
}
