package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dukerupert/lifeos/internal/remote"
	"github.com/jackc/pgx/v5"
)

// Notification is the payload the daily_logs trigger sends on Channel. It
// names the changed row only; the record itself is read back from the table.
type Notification struct {
	UserID string `json:"user_id"`
	Date   string `json:"date"`
}

// ParseNotification decodes a trigger payload.
func ParseNotification(payload string) (Notification, error) {
	var n Notification
	if err := json.Unmarshal([]byte(payload), &n); err != nil {
		return Notification{}, fmt.Errorf("decode notification: %w", err)
	}
	if n.UserID == "" || n.Date == "" {
		return Notification{}, errors.New("decode notification: missing user_id or date")
	}
	return n, nil
}

const fetchTimeout = 10 * time.Second

// subscription owns a dedicated connection taken out of the pool. Each
// subscription listens independently, so closing one never affects another.
type subscription struct {
	conn   *pgx.Conn
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (s *subscription) Close() error {
	var err error
	s.once.Do(func() {
		s.cancel()
		<-s.done
		err = s.conn.Close(context.Background())
	})
	return err
}

// Subscribe listens for changes to the (userID, date) row. fn runs on the
// listener goroutine.
func (s *Store) Subscribe(ctx context.Context, userID, date string, fn remote.UpdateFunc) (remote.Subscription, error) {
	pooled, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire listener: %w", err)
	}
	conn := pooled.Hijack()

	if _, err := conn.Exec(ctx, "LISTEN "+Channel); err != nil {
		conn.Close(context.Background())
		return nil, fmt.Errorf("listen: %w", err)
	}

	listenCtx, cancel := context.WithCancel(context.Background())
	sub := &subscription{conn: conn, cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(sub.done)
		for {
			note, err := conn.WaitForNotification(listenCtx)
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					s.logger.Error("listener stopped", "date", date, "error", err)
				}
				return
			}
			n, err := ParseNotification(note.Payload)
			if err != nil {
				s.logger.Warn("ignoring notification", "error", err)
				continue
			}
			if n.UserID != userID || n.Date != date {
				continue
			}
			fetchCtx, cancel := context.WithTimeout(listenCtx, fetchTimeout)
			record, err := s.GetDailyLog(fetchCtx, userID, date)
			cancel()
			if err != nil {
				s.logger.Warn("read changed daily log", "date", date, "error", err)
				continue
			}
			fn(record)
		}
	}()

	return sub, nil
}
