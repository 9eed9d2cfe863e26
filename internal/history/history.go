// Package history builds the trailing window of daily records used by the
// stats views.
package history

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dukerupert/lifeos/internal/datekey"
	"github.com/dukerupert/lifeos/internal/model"
	"github.com/dukerupert/lifeos/internal/remote"
	"github.com/dukerupert/lifeos/internal/store"
)

type Aggregator struct {
	local  *store.LocalStore
	remote remote.Store
	loc    *time.Location
	now    func() time.Time
	logger *slog.Logger
}

func New(local *store.LocalStore, rs remote.Store, loc *time.Location, logger *slog.Logger) *Aggregator {
	if rs == nil {
		rs = remote.Disabled{}
	}
	if loc == nil {
		loc = time.Local
	}
	return &Aggregator{
		local:  local,
		remote: rs,
		loc:    loc,
		now:    time.Now,
		logger: logger.With("component", "history"),
	}
}

// Keys returns the window's DateKeys, oldest first, ending today.
func (a *Aggregator) Keys(days int) []string {
	return datekey.Window(a.now().In(a.loc), days)
}

// GetHistory returns the records of the last days days including today. With
// a session it issues one remote range query; otherwise, or when that query
// fails, it reads each day from the local copy. Days without a record are
// absent from the result.
func (a *Aggregator) GetHistory(ctx context.Context, days int) model.HistoryWindow {
	return a.GetHistoryFor(ctx, a.Keys(days))
}

// GetHistoryFor is GetHistory over keys from an earlier Keys call, so a
// caller that also scores the keys sees the same window across midnight.
// keys must be consecutive and oldest first.
func (a *Aggregator) GetHistoryFor(ctx context.Context, keys []string) model.HistoryWindow {
	if len(keys) == 0 {
		return model.HistoryWindow{}
	}

	if id, err := a.remote.CurrentUser(ctx); err == nil {
		window, err := a.fromRemote(ctx, id.UserID, keys)
		if err == nil {
			return window
		}
		a.logger.Warn("remote history failed, reading local copy", "days", len(keys), "error", err)
	}
	return a.fromLocal(keys)
}

func (a *Aggregator) fromRemote(ctx context.Context, userID string, keys []string) (model.HistoryWindow, error) {
	rows, err := a.remote.ListDailyLogs(ctx, userID, keys[0], keys[len(keys)-1])
	if err != nil {
		return nil, err
	}
	inWindow := make(map[string]bool, len(keys))
	for _, k := range keys {
		inWindow[k] = true
	}
	window := make(model.HistoryWindow, len(rows))
	for _, row := range rows {
		if !inWindow[row.Date] {
			continue
		}
		record := row.Record
		if record == nil {
			record = model.DailyLogRecord{}
		}
		window[row.Date] = record
	}
	return window, nil
}

func (a *Aggregator) fromLocal(keys []string) model.HistoryWindow {
	window := make(model.HistoryWindow)
	for _, key := range keys {
		record, err := a.local.LoadLog(key)
		switch {
		case err == nil:
			window[key] = record
		case errors.Is(err, store.ErrNotFound):
		case errors.Is(err, store.ErrCorrupt):
			a.logger.Warn("ignoring corrupt local record", "date", key, "error", err)
		default:
			a.logger.Error("local history read failed", "date", key, "error", err)
		}
	}
	return window
}
