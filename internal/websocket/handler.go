package websocket

import (
	"context"
	"log/slog"
	"net/http"

	ws "github.com/coder/websocket"
	"github.com/dukerupert/lifeos/internal/datekey"
	"github.com/dukerupert/lifeos/internal/model"
	"github.com/dukerupert/lifeos/internal/remote"
)

// Subscriber opens a change feed for one day's record.
type Subscriber interface {
	Subscribe(ctx context.Context, dateKey string, fn remote.UpdateFunc) remote.Subscription
}

// HandleWebSocket upgrades connections and runs them as hub clients. A
// "date" query parameter also subscribes the connection to remote changes
// of that day, forwarded as daily_log_remote messages.
func HandleWebSocket(hub *Hub, subs Subscriber, logger *slog.Logger) http.HandlerFunc {
	logger = logger.With("component", "websocket")
	return func(w http.ResponseWriter, r *http.Request) {
		date := r.URL.Query().Get("date")
		if date != "" && !datekey.Valid(date) {
			http.Error(w, "invalid date", http.StatusBadRequest)
			return
		}

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			InsecureSkipVerify: true, // dashboard may be served from another local origin
		})
		if err != nil {
			logger.Error("accept", "error", err)
			return
		}

		client := NewClient(hub, conn)
		hub.Register(client)

		if date != "" && subs != nil {
			sub := subs.Subscribe(r.Context(), date, func(record model.DailyLogRecord) {
				hub.SendTo(client, NewMessage("daily_log", "remote", date, map[string]any{"record": record}))
			})
			defer sub.Close()
		}

		logger.Debug("client connected", "client", client.ID(), "date", date)
		client.Run(r.Context())
		logger.Debug("client disconnected", "client", client.ID())
	}
}
