package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dukerupert/lifeos/internal/auth"
	"github.com/dukerupert/lifeos/internal/backup"
	"github.com/dukerupert/lifeos/internal/dailylog"
	"github.com/dukerupert/lifeos/internal/database"
	"github.com/dukerupert/lifeos/internal/dispatch"
	"github.com/dukerupert/lifeos/internal/habits"
	"github.com/dukerupert/lifeos/internal/history"
	"github.com/dukerupert/lifeos/internal/model"
	"github.com/dukerupert/lifeos/internal/remote"
	"github.com/dukerupert/lifeos/internal/stats"
	"github.com/dukerupert/lifeos/internal/store"
	"github.com/dukerupert/lifeos/internal/websocket"
)

type testEnv struct {
	mux   *http.ServeMux
	local *store.LocalStore
	mem   *remote.Memory
	daily *DailyLogHandler
}

func setupHandlerTest(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	local := store.NewLocalStore(db)
	mem := remote.NewMemory()
	d := dispatch.New(logger, nil, time.Second)
	t.Cleanup(d.Wait)
	hub := websocket.NewHub(logger)

	logs := dailylog.New(local, mem, d, logger)
	registry := habits.New(local, mem, d, logger)
	agg := history.New(local, mem, time.UTC, logger)
	mgr := backup.NewManager(backup.Config{}, local, store.NewBackupStore(db), nil, logger)

	daily := NewDailyLogHandler(logs, registry, hub, time.UTC, logger)
	habitH := NewHabitHandler(registry, hub, logger)
	statsH := NewStatsHandler(agg, registry)
	backupH := NewBackupHandler(mgr, hub, logger)
	localH := NewLocalDataHandler(local, hub, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/today", daily.Today)
	mux.HandleFunc("GET /api/logs/{date}", daily.Get)
	mux.HandleFunc("PUT /api/logs/{date}", daily.Put)
	mux.HandleFunc("POST /api/logs/{date}/habits/{id}/toggle", daily.Toggle)
	mux.HandleFunc("PUT /api/logs/{date}/habits/{id}/note", daily.SetNote)
	mux.HandleFunc("GET /api/habits", habitH.List)
	mux.HandleFunc("POST /api/habits", habitH.Create)
	mux.HandleFunc("DELETE /api/habits/{id}", habitH.Delete)
	mux.HandleFunc("GET /api/history", statsH.History)
	mux.HandleFunc("GET /api/stats", statsH.Stats)
	mux.HandleFunc("GET /api/backups/status", backupH.Status)
	mux.HandleFunc("POST /api/backups", backupH.Run)
	mux.HandleFunc("DELETE /api/local-data", localH.Clear)

	return &testEnv{mux: mux, local: local, mem: mem, daily: daily}
}

func (e *testEnv) do(t *testing.T, ctx context.Context, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf).WithContext(ctx)
	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestTodayUsesConfiguredClock(t *testing.T) {
	env := setupHandlerTest(t)
	env.daily.now = func() time.Time { return time.Date(2025, 3, 9, 23, 0, 0, 0, time.UTC) }

	rec := env.do(t, context.Background(), "GET", "/api/today", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	got := decode[dayResponse](t, rec)
	if got.Date != "2025-03-09" {
		t.Errorf("date = %q, want 2025-03-09", got.Date)
	}
	if got.Source != dailylog.SourceNone || got.Score != 0 {
		t.Errorf("source/score = %q/%d", got.Source, got.Score)
	}
	if got.Message != "A quiet reset is still progress." {
		t.Errorf("message = %q", got.Message)
	}
	if len(got.Habits) != len(model.DefaultHabits()) {
		t.Errorf("habits = %d, want defaults", len(got.Habits))
	}
}

func TestToggleAndNote(t *testing.T) {
	env := setupHandlerTest(t)
	ctx := context.Background()

	rec := env.do(t, ctx, "POST", "/api/logs/2025-01-01/habits/gym/toggle", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("toggle status = %d, body = %s", rec.Code, rec.Body.String())
	}
	got := decode[dayResponse](t, rec)
	if !got.Record["gym"].Done {
		t.Error("gym not done after toggle")
	}
	if got.Score != 8 {
		t.Errorf("score = %d, want 8 (1 of 12)", got.Score)
	}

	rec = env.do(t, ctx, "PUT", "/api/logs/2025-01-01/habits/gym/note", map[string]string{"note": "legs"})
	if rec.Code != http.StatusOK {
		t.Fatalf("note status = %d", rec.Code)
	}

	stored, err := env.local.LoadLog("2025-01-01")
	if err != nil {
		t.Fatalf("load stored: %v", err)
	}
	if stored["gym"] != (model.LogEntry{Done: true, Note: "legs"}) {
		t.Errorf("stored = %+v", stored["gym"])
	}
}

func TestPutAndGetLog(t *testing.T) {
	env := setupHandlerTest(t)
	ctx := auth.WithSession(context.Background(), auth.Session{UserID: "u1"})

	body := model.DailyLogRecord{"gym": {Done: true}, "sleep": {Done: true}, "water": {Done: false}}
	if rec := env.do(t, ctx, "PUT", "/api/logs/2025-01-02", body); rec.Code != http.StatusOK {
		t.Fatalf("put status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if _, err := env.mem.GetDailyLog(ctx, "u1", "2025-01-02"); err != nil {
		t.Errorf("remote row missing: %v", err)
	}

	got := decode[dayResponse](t, env.do(t, ctx, "GET", "/api/logs/2025-01-02", nil))
	if got.Source != dailylog.SourceRemote {
		t.Errorf("source = %q, want remote", got.Source)
	}
	if got.Score != 17 {
		t.Errorf("score = %d, want 17 (2 of 12)", got.Score)
	}
}

func TestInvalidDate(t *testing.T) {
	env := setupHandlerTest(t)

	for _, path := range []string{"/api/logs/2025-13-01", "/api/logs/today"} {
		if rec := env.do(t, context.Background(), "GET", path, nil); rec.Code != http.StatusBadRequest {
			t.Errorf("GET %s status = %d, want 400", path, rec.Code)
		}
	}
	if rec := env.do(t, context.Background(), "PUT", "/api/logs/2025-01-01", "{bad"); rec.Code != http.StatusBadRequest {
		t.Errorf("bad JSON status = %d, want 400", rec.Code)
	}
}

func TestHabitEndpoints(t *testing.T) {
	env := setupHandlerTest(t)
	ctx := context.Background()

	rec := env.do(t, ctx, "POST", "/api/habits", map[string]string{"label": "Read Books"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}
	list := decode[[]model.HabitDefinition](t, rec)
	if list[len(list)-1].ID != "read-books" {
		t.Errorf("last = %+v", list[len(list)-1])
	}

	if rec := env.do(t, ctx, "POST", "/api/habits", map[string]string{"label": " "}); rec.Code != http.StatusBadRequest {
		t.Errorf("empty label status = %d, want 400", rec.Code)
	}

	rec = env.do(t, ctx, "DELETE", "/api/habits/read-books", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if got := decode[[]model.HabitDefinition](t, rec); len(got) != len(model.DefaultHabits()) {
		t.Errorf("len after delete = %d", len(got))
	}
}

func TestStatsEndpoint(t *testing.T) {
	env := setupHandlerTest(t)
	ctx := context.Background()

	env.local.SaveHabits([]model.HabitDefinition{{ID: "gym", Label: "Gym"}, {ID: "sleep", Label: "Sleep"}})
	today := time.Now().UTC().Format("2006-01-02")
	env.local.SaveLog(today, model.DailyLogRecord{"gym": {Done: true}, "sleep": {Done: true}})

	rec := env.do(t, ctx, "GET", "/api/stats?days=7", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	report := decode[stats.Report](t, rec)
	if report.Days != 7 || len(report.Scores) != 7 {
		t.Errorf("days = %d, scores = %d", report.Days, len(report.Scores))
	}
	if report.Today != 100 || report.Summary.Streak != 1 || report.Summary.Missed != 6 {
		t.Errorf("report = %+v", report)
	}

	if rec := env.do(t, ctx, "GET", "/api/history?days=0", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("days=0 status = %d, want 400", rec.Code)
	}
	if rec := env.do(t, ctx, "GET", "/api/history?days=366", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("days=366 status = %d, want 400", rec.Code)
	}
}

func TestClearLocalData(t *testing.T) {
	env := setupHandlerTest(t)

	env.local.SaveLog("2025-01-01", model.DailyLogRecord{"gym": {Done: true}})
	env.local.SaveHabits(model.DefaultHabits())

	rec := env.do(t, context.Background(), "DELETE", "/api/local-data", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := decode[map[string]int](t, rec); got["cleared"] != 2 {
		t.Errorf("cleared = %d, want 2", got["cleared"])
	}
	all, _ := env.local.All()
	if len(all) != 0 {
		t.Errorf("entries left = %d", len(all))
	}
}

func TestBackupNotConfigured(t *testing.T) {
	env := setupHandlerTest(t)

	if rec := env.do(t, context.Background(), "POST", "/api/backups", map[string]string{"passphrase": "p"}); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
	rec := env.do(t, context.Background(), "GET", "/api/backups/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	got := decode[map[string]backup.Status](t, rec)
	if got["status"].State != backup.StateDisabled {
		t.Errorf("state = %q, want disabled", got["status"].State)
	}
}
