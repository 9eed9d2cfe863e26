package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/dukerupert/lifeos/internal/datekey"
)

const (
	defaultDays = 30
	maxDays     = 365
)

var errInvalidDays = errors.New("days must be between 1 and 365")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// parseDateParam reads and validates the {date} path value.
func parseDateParam(r *http.Request) (string, bool) {
	date := r.PathValue("date")
	return date, datekey.Valid(date)
}

// parseDays reads the days query parameter, defaulting to 30.
func parseDays(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("days")
	if raw == "" {
		return defaultDays, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > maxDays {
		return 0, errInvalidDays
	}
	return n, nil
}
