package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dukerupert/lifeos/internal/model"
)

const (
	logKeyPrefix = "lifeos-"
	habitsKey    = "lifeos-systems"
)

var (
	// ErrNotFound reports that no value is stored under a key.
	ErrNotFound = errors.New("not found")
	// ErrCorrupt reports a stored value that does not decode.
	ErrCorrupt = errors.New("corrupt stored value")
)

// LogKey returns the local storage key for a day's record.
func LogKey(dateKey string) string {
	return logKeyPrefix + dateKey
}

// HabitsKey returns the local storage key for the habit list.
func HabitsKey() string {
	return habitsKey
}

// LocalStore is the durable key/value copy of the profile's data.
type LocalStore struct {
	db *sql.DB
}

func NewLocalStore(db *sql.DB) *LocalStore {
	return &LocalStore{db: db}
}

// Get returns the raw value under key. found is false when nothing is stored.
func (s *LocalStore) Get(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM local_storage WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %q: %w", key, err)
	}
	return value, true, nil
}

func (s *LocalStore) Set(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO local_storage (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

func (s *LocalStore) Delete(key string) error {
	if _, err := s.db.Exec(`DELETE FROM local_storage WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}

// Clear removes every stored value and returns how many were removed.
func (s *LocalStore) Clear() (int64, error) {
	result, err := s.db.Exec(`DELETE FROM local_storage`)
	if err != nil {
		return 0, fmt.Errorf("clear local storage: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// All returns every stored key/value pair.
func (s *LocalStore) All() (map[string]string, error) {
	rows, err := s.db.Query(`SELECT key, value FROM local_storage ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list local storage: %w", err)
	}
	defer rows.Close()

	all := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan local storage: %w", err)
		}
		all[key] = value
	}
	return all, rows.Err()
}

// ReplaceAll swaps the entire contents for entries in one transaction.
func (s *LocalStore) ReplaceAll(entries map[string]string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM local_storage`); err != nil {
		return fmt.Errorf("clear before replace: %w", err)
	}
	now := time.Now().UTC()
	for key, value := range entries {
		if _, err := tx.Exec(`INSERT INTO local_storage (key, value, updated_at) VALUES (?, ?, ?)`, key, value, now); err != nil {
			return fmt.Errorf("insert %q: %w", key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace: %w", err)
	}
	return nil
}

// LoadLog returns the stored record for dateKey, ErrNotFound when there is
// none, or an error wrapping ErrCorrupt when the stored payload is malformed.
func (s *LocalStore) LoadLog(dateKey string) (model.DailyLogRecord, error) {
	key := LogKey(dateKey)
	var record model.DailyLogRecord
	if err := s.loadJSON(key, &record); err != nil {
		return nil, err
	}
	if record == nil {
		record = model.DailyLogRecord{}
	}
	return record, nil
}

func (s *LocalStore) SaveLog(dateKey string, record model.DailyLogRecord) error {
	if record == nil {
		record = model.DailyLogRecord{}
	}
	return s.saveJSON(LogKey(dateKey), record)
}

// LoadHabits returns the stored habit list, with the same error contract as LoadLog.
func (s *LocalStore) LoadHabits() ([]model.HabitDefinition, error) {
	var habits []model.HabitDefinition
	if err := s.loadJSON(habitsKey, &habits); err != nil {
		return nil, err
	}
	if habits == nil {
		habits = []model.HabitDefinition{}
	}
	return habits, nil
}

func (s *LocalStore) SaveHabits(habits []model.HabitDefinition) error {
	if habits == nil {
		habits = []model.HabitDefinition{}
	}
	return s.saveJSON(habitsKey, habits)
}

func (s *LocalStore) loadJSON(key string, v any) error {
	raw, found, err := s.Get(key)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("%s: %w: %v", key, ErrCorrupt, err)
	}
	return nil
}

func (s *LocalStore) saveJSON(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return s.Set(key, string(data))
}
