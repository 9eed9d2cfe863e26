package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/lifeos/internal/auth"
	"github.com/dukerupert/lifeos/internal/backup"
	"github.com/dukerupert/lifeos/internal/dailylog"
	"github.com/dukerupert/lifeos/internal/dispatch"
	"github.com/dukerupert/lifeos/internal/habits"
	"github.com/dukerupert/lifeos/internal/handler"
	"github.com/dukerupert/lifeos/internal/history"
	"github.com/dukerupert/lifeos/internal/middleware"
	"github.com/dukerupert/lifeos/internal/remote"
	"github.com/dukerupert/lifeos/internal/store"
	ws "github.com/dukerupert/lifeos/internal/websocket"
)

// Options carries the settings New needs beyond its collaborators.
type Options struct {
	Location      *time.Location
	JWTSecret     string
	AccessToken   string
	RemoteTimeout time.Duration
	Backup        backup.Config
}

type Server struct {
	hub           *ws.Hub
	remote        remote.Store
	logs          *dailylog.Store
	verifier      *auth.Verifier
	accessToken   string
	dailyLogH     *handler.DailyLogHandler
	habitH        *handler.HabitHandler
	statsH        *handler.StatsHandler
	backupH       *handler.BackupHandler
	localDataH    *handler.LocalDataHandler
	rateLimiter   *middleware.RateLimiter
	backupManager *backup.Manager
	dispatcher    *dispatch.Dispatcher
	logger        *slog.Logger
}

func New(db *sql.DB, rs remote.Store, opts Options, logger *slog.Logger) *Server {
	if rs == nil {
		rs = remote.Disabled{}
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}

	hub := ws.NewHub(logger)
	local := store.NewLocalStore(db)

	// Remote write failures never fail a request; they are pushed to
	// dashboards so the user knows the copy is only local.
	dispatcher := dispatch.New(logger, dispatch.ReporterFunc(func(f dispatch.Failure) {
		hub.Broadcast(ws.NewMessage("sync", "failed", f.Key, map[string]any{
			"op":    f.Op,
			"error": f.Err.Error(),
		}))
	}), opts.RemoteTimeout)

	logs := dailylog.New(local, rs, dispatcher, logger)
	registry := habits.New(local, rs, dispatcher, logger)
	agg := history.New(local, rs, loc, logger)

	backupMgr := backup.NewManager(opts.Backup, local, store.NewBackupStore(db), func(s backup.Status) {
		hub.Broadcast(ws.NewMessage("backup", string(s.State), s.LastKey, map[string]any{
			"in_progress": s.InProgress,
			"error":       s.Error,
		}))
	}, logger)

	return &Server{
		hub:           hub,
		remote:        rs,
		logs:          logs,
		verifier:      auth.NewVerifier(opts.JWTSecret),
		accessToken:   opts.AccessToken,
		dailyLogH:     handler.NewDailyLogHandler(logs, registry, hub, loc, logger.With("component", "daily_log")),
		habitH:        handler.NewHabitHandler(registry, hub, logger.With("component", "habit")),
		statsH:        handler.NewStatsHandler(agg, registry),
		backupH:       handler.NewBackupHandler(backupMgr, hub, logger.With("component", "backup_handler")),
		localDataH:    handler.NewLocalDataHandler(local, hub, logger.With("component", "local_data")),
		rateLimiter:   middleware.NewRateLimiter(),
		backupManager: backupMgr,
		dispatcher:    dispatcher,
		logger:        logger,
	}
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// BackupManager returns the backup manager.
func (s *Server) BackupManager() *backup.Manager {
	return s.backupManager
}

// Dispatcher returns the remote write dispatcher so shutdown can drain it.
func (s *Server) Dispatcher() *dispatch.Dispatcher {
	return s.dispatcher
}

// Hub returns the websocket hub.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()
	outerMux.HandleFunc("GET /health", s.healthHandler)

	apiMux := http.NewServeMux()
	s.registerRoutes(apiMux)

	authMiddleware := middleware.Authenticate(s.verifier, s.accessToken, s.logger.With("component", "auth"))
	outerMux.Handle("/", authMiddleware(apiMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"clients": s.hub.ClientCount(),
	})
}

func (s *Server) sessionHandler(w http.ResponseWriter, r *http.Request) {
	id, err := s.remote.CurrentUser(r.Context())
	if err != nil {
		s.logger.Warn("current user lookup failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "remote unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"user_id": id.UserID, "email": id.Email})
}

func (s *Server) rateLimited(h http.HandlerFunc, limit int) http.HandlerFunc {
	rl := middleware.RateLimit(s.rateLimiter, middleware.RealIP, limit, time.Minute)
	return rl(h).ServeHTTP
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.Handle("GET /api/session", middleware.RequireSession(http.HandlerFunc(s.sessionHandler)))

	// Daily logs
	mux.HandleFunc("GET /api/today", s.dailyLogH.Today)
	mux.HandleFunc("GET /api/logs/{date}", s.dailyLogH.Get)
	mux.HandleFunc("PUT /api/logs/{date}", s.dailyLogH.Put)
	mux.HandleFunc("POST /api/logs/{date}/habits/{id}/toggle", s.dailyLogH.Toggle)
	mux.HandleFunc("PUT /api/logs/{date}/habits/{id}/note", s.dailyLogH.SetNote)

	// Habits
	mux.HandleFunc("GET /api/habits", s.habitH.List)
	mux.HandleFunc("POST /api/habits", s.habitH.Create)
	mux.HandleFunc("DELETE /api/habits/{id}", s.habitH.Delete)

	// Stats
	mux.HandleFunc("GET /api/history", s.statsH.History)
	mux.HandleFunc("GET /api/stats", s.statsH.Stats)

	// Backups and local data
	mux.HandleFunc("GET /api/backups/status", s.backupH.Status)
	mux.HandleFunc("POST /api/backups", s.rateLimited(s.backupH.Run, 5))
	mux.HandleFunc("POST /api/backups/restore", s.rateLimited(s.backupH.Restore, 5))
	mux.HandleFunc("DELETE /api/local-data", s.rateLimited(s.localDataH.Clear, 5))

	// WebSocket
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.logs, s.logger))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
