package postgres

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/dukerupert/lifeos/internal/model"
	"github.com/dukerupert/lifeos/internal/remote"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
)

func TestParseNotification(t *testing.T) {
	n, err := ParseNotification(`{"user_id":"u1","date":"2025-01-01"}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if diff := cmp.Diff(Notification{UserID: "u1", Date: "2025-01-01"}, n); diff != "" {
		t.Errorf("notification mismatch (-want +got):\n%s", diff)
	}
}

func TestParseNotificationMissingKey(t *testing.T) {
	if _, err := ParseNotification(`{"user_id":"u1"}`); err == nil {
		t.Error("expected error for payload without date")
	}
}

func TestParseNotificationInvalid(t *testing.T) {
	if _, err := ParseNotification(`not json`); err == nil {
		t.Error("expected error for invalid payload")
	}
}

func TestDecodeRecordNull(t *testing.T) {
	rec, err := decodeRecord([]byte("null"))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec == nil || len(rec) != 0 {
		t.Errorf("record = %v, want empty", rec)
	}
}

func setupPostgresTest(t *testing.T) (*Store, string) {
	t.Helper()
	url := os.Getenv("LIFEOS_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("LIFEOS_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	s, err := New(ctx, url, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	userID := "test-" + uuid.NewString()
	t.Cleanup(func() {
		s.pool.Exec(ctx, `DELETE FROM daily_logs WHERE user_id = $1`, userID)
		s.pool.Exec(ctx, `DELETE FROM user_settings WHERE user_id = $1`, userID)
		s.Close()
	})
	return s, userID
}

func TestPostgresDailyLogRoundTrip(t *testing.T) {
	s, userID := setupPostgresTest(t)
	ctx := context.Background()

	if _, err := s.GetDailyLog(ctx, userID, "2025-01-01"); !errors.Is(err, remote.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	rec := model.DailyLogRecord{"gym": {Done: true, Note: "legs"}}
	if err := s.UpsertDailyLog(ctx, userID, "2025-01-01", rec); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.UpsertDailyLog(ctx, userID, "2025-01-01", rec); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	got, err := s.GetDailyLog(ctx, userID, "2025-01-01")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if diff := cmp.Diff(rec, got); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}

	rows, err := s.ListDailyLogs(ctx, userID, "2024-12-01", "2025-01-31")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 || rows[0].Date != "2025-01-01" {
		t.Errorf("rows = %+v, want one row for 2025-01-01", rows)
	}
}

func TestPostgresSettings(t *testing.T) {
	s, userID := setupPostgresTest(t)
	ctx := context.Background()

	if _, err := s.GetSettings(ctx, userID); !errors.Is(err, remote.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	habits := []model.HabitDefinition{{ID: "gym", Label: "Gym"}}
	if err := s.UpsertSettings(ctx, userID, habits); err != nil {
		t.Fatalf("upsert settings: %v", err)
	}
	got, err := s.GetSettings(ctx, userID)
	if err != nil {
		t.Fatalf("get settings: %v", err)
	}
	if diff := cmp.Diff(habits, got); diff != "" {
		t.Errorf("habits mismatch (-want +got):\n%s", diff)
	}
}

func TestPostgresSubscribe(t *testing.T) {
	s, userID := setupPostgresTest(t)
	ctx := context.Background()

	updates := make(chan model.DailyLogRecord, 1)
	sub, err := s.Subscribe(ctx, userID, "2025-01-01", func(r model.DailyLogRecord) {
		updates <- r
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()

	rec := model.DailyLogRecord{"sleep": {Done: true}}
	if err := s.UpsertDailyLog(ctx, userID, "2025-01-01", rec); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	select {
	case got := <-updates:
		if diff := cmp.Diff(rec, got); diff != "" {
			t.Errorf("update mismatch (-want +got):\n%s", diff)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for notification")
	}
}

// largeRecord builds a record whose JSON encoding is well past the 8000 byte
// NOTIFY payload limit.
func largeRecord() model.DailyLogRecord {
	rec := model.DailyLogRecord{}
	for _, h := range model.DefaultHabits() {
		rec[h.ID] = model.LogEntry{Done: true, Note: strings.Repeat("n", 700)}
	}
	return rec
}

func TestPostgresLargeRecordSyncs(t *testing.T) {
	s, userID := setupPostgresTest(t)
	ctx := context.Background()

	updates := make(chan model.DailyLogRecord, 1)
	sub, err := s.Subscribe(ctx, userID, "2025-02-01", func(r model.DailyLogRecord) {
		updates <- r
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()

	rec := largeRecord()
	if err := s.UpsertDailyLog(ctx, userID, "2025-02-01", rec); err != nil {
		t.Fatalf("upsert large record: %v", err)
	}
	got, err := s.GetDailyLog(ctx, userID, "2025-02-01")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if diff := cmp.Diff(rec, got); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}

	select {
	case got := <-updates:
		if diff := cmp.Diff(rec, got); diff != "" {
			t.Errorf("update mismatch (-want +got):\n%s", diff)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for notification")
	}
}
