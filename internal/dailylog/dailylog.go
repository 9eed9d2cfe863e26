// Package dailylog loads and saves one day's habit record. The local copy is
// written first on every save and is the fallback for every read; the remote
// backend is used only while a session is present.
package dailylog

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dukerupert/lifeos/internal/dispatch"
	"github.com/dukerupert/lifeos/internal/model"
	"github.com/dukerupert/lifeos/internal/remote"
	"github.com/dukerupert/lifeos/internal/store"
)

// Source tells where a loaded record came from.
type Source string

const (
	SourceRemote Source = "remote"
	SourceLocal  Source = "local"
	SourceNone   Source = "none"
)

type Store struct {
	local    *store.LocalStore
	remote   remote.Store
	dispatch *dispatch.Dispatcher
	logger   *slog.Logger
}

func New(local *store.LocalStore, rs remote.Store, d *dispatch.Dispatcher, logger *slog.Logger) *Store {
	if rs == nil {
		rs = remote.Disabled{}
	}
	return &Store{
		local:    local,
		remote:   rs,
		dispatch: d,
		logger:   logger.With("component", "dailylog"),
	}
}

// Load never fails: a missing or broken copy yields an empty record.
func (s *Store) Load(ctx context.Context, dateKey string) (model.DailyLogRecord, Source) {
	if id, err := s.remote.CurrentUser(ctx); err == nil {
		record, err := s.remote.GetDailyLog(ctx, id.UserID, dateKey)
		if err == nil {
			return record, SourceRemote
		}
		if errors.Is(err, remote.ErrNotFound) {
			s.logger.Debug("no remote record, using local copy", "date", dateKey)
		} else {
			s.logger.Warn("remote load failed, using local copy", "date", dateKey, "error", err)
		}
	}

	record, err := s.local.LoadLog(dateKey)
	switch {
	case err == nil:
		return record, SourceLocal
	case errors.Is(err, store.ErrNotFound):
	case errors.Is(err, store.ErrCorrupt):
		s.logger.Warn("ignoring corrupt local record", "date", dateKey, "error", err)
	default:
		s.logger.Error("local load failed", "date", dateKey, "error", err)
	}
	return model.DailyLogRecord{}, SourceNone
}

// Save writes the local copy and, with a session, upserts the remote row. Only
// a local failure is returned; a remote failure goes to the dispatcher's
// reporter and leaves the local write in place.
func (s *Store) Save(ctx context.Context, dateKey string, record model.DailyLogRecord) error {
	if err := s.local.SaveLog(dateKey, record); err != nil {
		return err
	}

	id, err := s.remote.CurrentUser(ctx)
	if err != nil {
		return nil
	}
	s.dispatch.Run(ctx, "upsert_daily_log", dateKey, func(ctx context.Context) error {
		return s.remote.UpsertDailyLog(ctx, id.UserID, dateKey, record)
	})
	return nil
}

// Subscribe watches the remote row for dateKey. Without a session or backend
// it returns a subscription that never fires.
func (s *Store) Subscribe(ctx context.Context, dateKey string, fn remote.UpdateFunc) remote.Subscription {
	id, err := s.remote.CurrentUser(ctx)
	if err != nil {
		return remote.NoopSubscription{}
	}
	sub, err := s.remote.Subscribe(ctx, id.UserID, dateKey, fn)
	if err != nil {
		s.logger.Warn("subscribe failed", "date", dateKey, "error", err)
		return remote.NoopSubscription{}
	}
	return sub
}

// Toggle flips the done flag of habitID, creating the entry when missing.
func (s *Store) Toggle(ctx context.Context, dateKey, habitID string) (model.DailyLogRecord, error) {
	record, _ := s.Load(ctx, dateKey)
	record = record.Clone()
	entry := record[habitID]
	entry.Done = !entry.Done
	record[habitID] = entry
	if err := s.Save(ctx, dateKey, record); err != nil {
		return nil, err
	}
	return record, nil
}

// SetNote replaces the note of habitID, keeping its done flag.
func (s *Store) SetNote(ctx context.Context, dateKey, habitID, note string) (model.DailyLogRecord, error) {
	record, _ := s.Load(ctx, dateKey)
	record = record.Clone()
	entry := record[habitID]
	entry.Note = note
	record[habitID] = entry
	if err := s.Save(ctx, dateKey, record); err != nil {
		return nil, err
	}
	return record, nil
}
