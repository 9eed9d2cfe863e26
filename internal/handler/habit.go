package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/lifeos/internal/habits"
	"github.com/dukerupert/lifeos/internal/websocket"
)

type HabitHandler struct {
	registry *habits.Registry
	hub      *websocket.Hub
	logger   *slog.Logger
}

func NewHabitHandler(registry *habits.Registry, hub *websocket.Hub, logger *slog.Logger) *HabitHandler {
	return &HabitHandler{registry: registry, hub: hub, logger: logger}
}

func (h *HabitHandler) broadcast(action string, count int) {
	if h.hub != nil {
		h.hub.Broadcast(websocket.NewMessage("habits", action, "", map[string]any{"count": count}))
	}
}

type habitRequest struct {
	Label string `json:"label"`
}

func (h *HabitHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.registry.Load(r.Context()))
}

func (h *HabitHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req habitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	list, err := h.registry.Add(r.Context(), req.Label)
	if errors.Is(err, habits.ErrEmptyLabel) {
		writeError(w, http.StatusBadRequest, "label is required")
		return
	}
	if err != nil {
		h.logger.Error("add habit", "label", req.Label, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to add habit")
		return
	}

	h.broadcast("updated", len(list))
	writeJSON(w, http.StatusCreated, list)
}

func (h *HabitHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "habit id is required")
		return
	}

	list, err := h.registry.Remove(r.Context(), id)
	if err != nil {
		h.logger.Error("remove habit", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to remove habit")
		return
	}

	h.broadcast("updated", len(list))
	writeJSON(w, http.StatusOK, list)
}
