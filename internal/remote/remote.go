// Package remote defines the capability the data layer needs from the
// authenticated backend: per-user daily log rows, a settings row holding the
// habit list, current-user lookup, and change notifications.
package remote

import (
	"context"
	"errors"

	"github.com/dukerupert/lifeos/internal/model"
)

var (
	// ErrNotFound reports that the backend has no row for the key.
	ErrNotFound = errors.New("remote: not found")
	// ErrNoSession reports that the caller is not signed in.
	ErrNoSession = errors.New("remote: no session")
	// ErrUnavailable reports that no backend is configured.
	ErrUnavailable = errors.New("remote: unavailable")
)

// Identity is the signed-in user as seen by the backend.
type Identity struct {
	UserID string
	Email  string
}

// Row is one daily log row returned by a range query.
type Row struct {
	Date   string
	Record model.DailyLogRecord
}

// UpdateFunc receives the new record whenever a watched row changes.
type UpdateFunc func(model.DailyLogRecord)

// Subscription is an open change-notification channel.
type Subscription interface {
	Close() error
}

// Store is the backend capability. Implementations must treat
// UpsertDailyLog and UpsertSettings as idempotent overwrites keyed by
// (userID, date) and userID respectively.
type Store interface {
	CurrentUser(ctx context.Context) (Identity, error)
	GetDailyLog(ctx context.Context, userID, date string) (model.DailyLogRecord, error)
	UpsertDailyLog(ctx context.Context, userID, date string, record model.DailyLogRecord) error
	ListDailyLogs(ctx context.Context, userID, start, end string) ([]Row, error)
	GetSettings(ctx context.Context, userID string) ([]model.HabitDefinition, error)
	UpsertSettings(ctx context.Context, userID string, habits []model.HabitDefinition) error
	Subscribe(ctx context.Context, userID, date string, fn UpdateFunc) (Subscription, error)
}

// NoopSubscription is returned when there is nothing to watch.
type NoopSubscription struct{}

func (NoopSubscription) Close() error { return nil }
