package remote

import (
	"context"

	"github.com/dukerupert/lifeos/internal/model"
)

// Disabled is the Store used when no backend is configured. Every call fails
// with ErrUnavailable, so callers take their local path without branching on
// configuration.
type Disabled struct{}

var _ Store = Disabled{}

func (Disabled) CurrentUser(context.Context) (Identity, error) {
	return Identity{}, ErrUnavailable
}

func (Disabled) GetDailyLog(context.Context, string, string) (model.DailyLogRecord, error) {
	return nil, ErrUnavailable
}

func (Disabled) UpsertDailyLog(context.Context, string, string, model.DailyLogRecord) error {
	return ErrUnavailable
}

func (Disabled) ListDailyLogs(context.Context, string, string, string) ([]Row, error) {
	return nil, ErrUnavailable
}

func (Disabled) GetSettings(context.Context, string) ([]model.HabitDefinition, error) {
	return nil, ErrUnavailable
}

func (Disabled) UpsertSettings(context.Context, string, []model.HabitDefinition) error {
	return ErrUnavailable
}

func (Disabled) Subscribe(context.Context, string, string, UpdateFunc) (Subscription, error) {
	return NoopSubscription{}, nil
}
