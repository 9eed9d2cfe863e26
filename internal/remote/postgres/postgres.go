// Package postgres implements remote.Store on a Postgres database. Daily logs
// live in daily_logs keyed by (user_id, date), the habit list in
// user_settings, and row changes are pushed over LISTEN/NOTIFY.
package postgres

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/dukerupert/lifeos/internal/model"
	"github.com/dukerupert/lifeos/internal/remote"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// Channel is the notification channel written by the daily_logs trigger.
const Channel = "daily_log_changes"

//go:embed migrations/*.sql
var migrations embed.FS

type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

var _ remote.Store = (*Store)(nil)

// New connects to databaseURL and applies pending migrations.
func New(ctx context.Context, databaseURL string, logger *slog.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{pool: pool, logger: logger.With("component", "remote")}, nil
}

func migrate(ctx context.Context, pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("migrations dir: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) CurrentUser(ctx context.Context) (remote.Identity, error) {
	return remote.SessionIdentity(ctx)
}

func (s *Store) GetDailyLog(ctx context.Context, userID, date string) (model.DailyLogRecord, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM daily_logs WHERE user_id = $1 AND date = $2::date`,
		userID, date,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, remote.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get daily log %s: %w", date, err)
	}
	return decodeRecord(data)
}

func (s *Store) UpsertDailyLog(ctx context.Context, userID, date string, record model.DailyLogRecord) error {
	data, err := encodeRecord(record)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO daily_logs (user_id, date, data, updated_at)
		 VALUES ($1, $2::date, $3, now())
		 ON CONFLICT (user_id, date) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		userID, date, data,
	)
	if err != nil {
		return fmt.Errorf("upsert daily log %s: %w", date, err)
	}
	return nil
}

func (s *Store) ListDailyLogs(ctx context.Context, userID, start, end string) ([]remote.Row, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT date::text, data FROM daily_logs
		 WHERE user_id = $1 AND date >= $2::date AND date <= $3::date
		 ORDER BY date`,
		userID, start, end,
	)
	if err != nil {
		return nil, fmt.Errorf("list daily logs: %w", err)
	}
	defer rows.Close()

	result := []remote.Row{}
	for rows.Next() {
		var date string
		var data []byte
		if err := rows.Scan(&date, &data); err != nil {
			return nil, fmt.Errorf("scan daily log: %w", err)
		}
		record, err := decodeRecord(data)
		if err != nil {
			s.logger.Warn("skipping undecodable daily log", "date", date, "error", err)
			continue
		}
		result = append(result, remote.Row{Date: date, Record: record})
	}
	return result, rows.Err()
}

func (s *Store) GetSettings(ctx context.Context, userID string) ([]model.HabitDefinition, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `SELECT systems FROM user_settings WHERE user_id = $1`, userID).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, remote.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	var habits []model.HabitDefinition
	if err := json.Unmarshal(data, &habits); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	return habits, nil
}

func (s *Store) UpsertSettings(ctx context.Context, userID string, habits []model.HabitDefinition) error {
	if habits == nil {
		habits = []model.HabitDefinition{}
	}
	data, err := json.Marshal(habits)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO user_settings (user_id, systems, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (user_id) DO UPDATE SET systems = EXCLUDED.systems, updated_at = now()`,
		userID, data,
	)
	if err != nil {
		return fmt.Errorf("upsert settings: %w", err)
	}
	return nil
}

func encodeRecord(record model.DailyLogRecord) ([]byte, error) {
	if record == nil {
		record = model.DailyLogRecord{}
	}
	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("encode daily log: %w", err)
	}
	return data, nil
}

func decodeRecord(data []byte) (model.DailyLogRecord, error) {
	record := model.DailyLogRecord{}
	if len(data) == 0 || string(data) == "null" {
		return record, nil
	}
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("decode daily log: %w", err)
	}
	return record, nil
}
