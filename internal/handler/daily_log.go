package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/lifeos/internal/dailylog"
	"github.com/dukerupert/lifeos/internal/datekey"
	"github.com/dukerupert/lifeos/internal/habits"
	"github.com/dukerupert/lifeos/internal/model"
	"github.com/dukerupert/lifeos/internal/stats"
	"github.com/dukerupert/lifeos/internal/websocket"
)

type DailyLogHandler struct {
	logs     *dailylog.Store
	registry *habits.Registry
	hub      *websocket.Hub
	loc      *time.Location
	now      func() time.Time
	logger   *slog.Logger
}

func NewDailyLogHandler(logs *dailylog.Store, registry *habits.Registry, hub *websocket.Hub, loc *time.Location, logger *slog.Logger) *DailyLogHandler {
	if loc == nil {
		loc = time.Local
	}
	return &DailyLogHandler{logs: logs, registry: registry, hub: hub, loc: loc, now: time.Now, logger: logger}
}

type dayResponse struct {
	Date    string                  `json:"date"`
	Record  model.DailyLogRecord    `json:"record"`
	Source  dailylog.Source         `json:"source,omitempty"`
	Score   int                     `json:"score"`
	Message string                  `json:"message"`
	Habits  []model.HabitDefinition `json:"habits"`
}

type noteRequest struct {
	Note string `json:"note"`
}

func (h *DailyLogHandler) broadcast(date string, score int) {
	if h.hub != nil {
		h.hub.Broadcast(websocket.NewMessage("daily_log", "saved", date, map[string]any{"score": score}))
	}
}

func (h *DailyLogHandler) respond(w http.ResponseWriter, r *http.Request, status int, date string, record model.DailyLogRecord, src dailylog.Source) {
	list := h.registry.Load(r.Context())
	score := stats.Score(record, len(list))
	writeJSON(w, status, dayResponse{
		Date:    date,
		Record:  record,
		Source:  src,
		Score:   score,
		Message: stats.Message(score),
		Habits:  list,
	})
}

// Today returns today's record in the configured timezone.
func (h *DailyLogHandler) Today(w http.ResponseWriter, r *http.Request) {
	date := datekey.Today(h.now(), h.loc)
	record, src := h.logs.Load(r.Context(), date)
	h.respond(w, r, http.StatusOK, date, record, src)
}

func (h *DailyLogHandler) Get(w http.ResponseWriter, r *http.Request) {
	date, ok := parseDateParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid date")
		return
	}
	record, src := h.logs.Load(r.Context(), date)
	h.respond(w, r, http.StatusOK, date, record, src)
}

// Put replaces the whole record for a day.
func (h *DailyLogHandler) Put(w http.ResponseWriter, r *http.Request) {
	date, ok := parseDateParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid date")
		return
	}
	var record model.DailyLogRecord
	if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if record == nil {
		record = model.DailyLogRecord{}
	}

	if err := h.logs.Save(r.Context(), date, record); err != nil {
		h.logger.Error("save daily log", "date", date, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save daily log")
		return
	}
	h.saved(w, r, date, record)
}

func (h *DailyLogHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	date, ok := parseDateParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid date")
		return
	}
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "habit id is required")
		return
	}

	record, err := h.logs.Toggle(r.Context(), date, id)
	if err != nil {
		h.logger.Error("toggle habit", "date", date, "habit", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save daily log")
		return
	}
	h.saved(w, r, date, record)
}

func (h *DailyLogHandler) SetNote(w http.ResponseWriter, r *http.Request) {
	date, ok := parseDateParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid date")
		return
	}
	id := r.PathValue("id")
	var req noteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	record, err := h.logs.SetNote(r.Context(), date, id, req.Note)
	if err != nil {
		h.logger.Error("set note", "date", date, "habit", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save daily log")
		return
	}
	h.saved(w, r, date, record)
}

func (h *DailyLogHandler) saved(w http.ResponseWriter, r *http.Request, date string, record model.DailyLogRecord) {
	list := h.registry.Load(r.Context())
	score := stats.Score(record, len(list))
	h.broadcast(date, score)
	writeJSON(w, http.StatusOK, dayResponse{
		Date:    date,
		Record:  record,
		Score:   score,
		Message: stats.Message(score),
		Habits:  list,
	})
}
