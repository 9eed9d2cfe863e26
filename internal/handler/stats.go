package handler

import (
	"net/http"

	"github.com/dukerupert/lifeos/internal/habits"
	"github.com/dukerupert/lifeos/internal/history"
	"github.com/dukerupert/lifeos/internal/stats"
)

type StatsHandler struct {
	history  *history.Aggregator
	registry *habits.Registry
}

func NewStatsHandler(h *history.Aggregator, registry *habits.Registry) *StatsHandler {
	return &StatsHandler{history: h, registry: registry}
}

// History returns the raw window of records keyed by date.
func (h *StatsHandler) History(w http.ResponseWriter, r *http.Request) {
	days, err := parseDays(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	keys := h.history.Keys(days)
	writeJSON(w, http.StatusOK, map[string]any{
		"days":    days,
		"keys":    keys,
		"history": h.history.GetHistoryFor(r.Context(), keys),
	})
}

// Stats returns scores and summary figures for the window.
func (h *StatsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	days, err := parseDays(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	keys := h.history.Keys(days)
	window := h.history.GetHistoryFor(r.Context(), keys)
	report := stats.BuildReport(window, keys, h.registry.Load(r.Context()))
	writeJSON(w, http.StatusOK, report)
}
