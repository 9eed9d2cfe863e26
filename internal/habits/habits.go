// Package habits manages the user's list of habit definitions.
package habits

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/dukerupert/lifeos/internal/dispatch"
	"github.com/dukerupert/lifeos/internal/model"
	"github.com/dukerupert/lifeos/internal/remote"
	"github.com/dukerupert/lifeos/internal/store"
)

var ErrEmptyLabel = errors.New("habit label is empty")

type Registry struct {
	local    *store.LocalStore
	remote   remote.Store
	dispatch *dispatch.Dispatcher
	logger   *slog.Logger
}

func New(local *store.LocalStore, rs remote.Store, d *dispatch.Dispatcher, logger *slog.Logger) *Registry {
	if rs == nil {
		rs = remote.Disabled{}
	}
	return &Registry{
		local:    local,
		remote:   rs,
		dispatch: d,
		logger:   logger.With("component", "habits"),
	}
}

// DeriveID lowercases label and replaces every character outside [a-z0-9]
// with a hyphen.
func DeriveID(label string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(label) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('-')
		}
	}
	return b.String()
}

// Load returns the remote list when signed in, refreshing the local cache,
// then the local list, then the built-in defaults.
func (r *Registry) Load(ctx context.Context) []model.HabitDefinition {
	if id, err := r.remote.CurrentUser(ctx); err == nil {
		list, err := r.remote.GetSettings(ctx, id.UserID)
		if err == nil {
			if err := r.local.SaveHabits(list); err != nil {
				r.logger.Warn("cache remote habits", "error", err)
			}
			return list
		}
		if !errors.Is(err, remote.ErrNotFound) {
			r.logger.Warn("remote habits failed, using local copy", "error", err)
		}
	}

	list, err := r.local.LoadHabits()
	switch {
	case err == nil:
		return list
	case errors.Is(err, store.ErrNotFound):
	case errors.Is(err, store.ErrCorrupt):
		r.logger.Warn("ignoring corrupt habit list", "error", err)
	default:
		r.logger.Error("local habits read failed", "error", err)
	}
	return model.DefaultHabits()
}

// Save writes the local list and pushes it to the remote settings row in the
// background when signed in.
func (r *Registry) Save(ctx context.Context, list []model.HabitDefinition) error {
	if err := r.local.SaveHabits(list); err != nil {
		return err
	}
	id, err := r.remote.CurrentUser(ctx)
	if err != nil {
		return nil
	}
	snapshot := make([]model.HabitDefinition, len(list))
	copy(snapshot, list)
	r.dispatch.Go(ctx, "upsert_settings", id.UserID, func(ctx context.Context) error {
		return r.remote.UpsertSettings(ctx, id.UserID, snapshot)
	})
	return nil
}

// Add appends a habit for label, deriving the id from the label as given.
// An existing id leaves the list unchanged and unsaved. Whitespace-only
// labels are rejected.
func (r *Registry) Add(ctx context.Context, label string) ([]model.HabitDefinition, error) {
	if strings.TrimSpace(label) == "" {
		return nil, ErrEmptyLabel
	}
	current := r.Load(ctx)
	id := DeriveID(label)
	for _, h := range current {
		if h.ID == id {
			return current, nil
		}
	}
	updated := append(current, model.HabitDefinition{ID: id, Label: label})
	if err := r.Save(ctx, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// Remove drops every habit with id and persists the result, even when
// nothing matched.
func (r *Registry) Remove(ctx context.Context, id string) ([]model.HabitDefinition, error) {
	current := r.Load(ctx)
	updated := make([]model.HabitDefinition, 0, len(current))
	for _, h := range current {
		if h.ID != id {
			updated = append(updated, h)
		}
	}
	if err := r.Save(ctx, updated); err != nil {
		return nil, err
	}
	return updated, nil
}
