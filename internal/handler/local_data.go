package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/lifeos/internal/store"
	"github.com/dukerupert/lifeos/internal/websocket"
)

// LocalDataHandler wipes the local copy. Remote rows are left alone.
type LocalDataHandler struct {
	local  *store.LocalStore
	hub    *websocket.Hub
	logger *slog.Logger
}

func NewLocalDataHandler(local *store.LocalStore, hub *websocket.Hub, logger *slog.Logger) *LocalDataHandler {
	return &LocalDataHandler{local: local, hub: hub, logger: logger}
}

func (h *LocalDataHandler) Clear(w http.ResponseWriter, r *http.Request) {
	n, err := h.local.Clear()
	if err != nil {
		h.logger.Error("clear local data", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to clear local data")
		return
	}
	h.logger.Info("local data cleared", "entries", n)
	if h.hub != nil {
		h.hub.Broadcast(websocket.NewMessage("local_data", "cleared", "", map[string]any{"entries": n}))
	}
	writeJSON(w, http.StatusOK, map[string]any{"cleared": n})
}
