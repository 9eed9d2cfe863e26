package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/lifeos/internal/backup"
	"github.com/dukerupert/lifeos/internal/model"
	"github.com/dukerupert/lifeos/internal/websocket"
)

type BackupHandler struct {
	mgr    *backup.Manager
	hub    *websocket.Hub
	logger *slog.Logger
}

func NewBackupHandler(mgr *backup.Manager, hub *websocket.Hub, logger *slog.Logger) *BackupHandler {
	return &BackupHandler{mgr: mgr, hub: hub, logger: logger}
}

type backupRequest struct {
	Passphrase string `json:"passphrase"`
}

type restoreRequest struct {
	Key        string `json:"key"`
	Passphrase string `json:"passphrase"`
}

func (h *BackupHandler) Status(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"status": h.mgr.Status()}
	if h.mgr.Enabled() {
		list, err := h.mgr.List(20)
		if err != nil {
			h.logger.Error("list backups", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to list backups")
			return
		}
		if list == nil {
			list = []model.Backup{}
		}
		resp["backups"] = list
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *BackupHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req backupRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
	}

	rec, err := h.mgr.RunNow(r.Context(), req.Passphrase)
	if err != nil {
		h.writeBackupError(w, "run backup", err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (h *BackupHandler) Restore(w http.ResponseWriter, r *http.Request) {
	var req restoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Key == "" {
		writeError(w, http.StatusBadRequest, "key is required")
		return
	}

	n, err := h.mgr.Restore(r.Context(), req.Key, req.Passphrase)
	if err != nil {
		h.writeBackupError(w, "restore backup", err)
		return
	}
	if h.hub != nil {
		h.hub.Broadcast(websocket.NewMessage("backup", "restored", req.Key, map[string]any{"entries": n}))
	}
	writeJSON(w, http.StatusOK, map[string]any{"key": req.Key, "entries": n})
}

func (h *BackupHandler) writeBackupError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, backup.ErrNotConfigured):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, backup.ErrNoPassphrase), errors.Is(err, backup.ErrBadSnapshot):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, backup.ErrDecrypt):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, backup.ErrInProgress):
		writeError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error(op, "error", err)
		writeError(w, http.StatusBadGateway, "backup storage error")
	}
}
