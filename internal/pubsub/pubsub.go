package pubsub

import (
	"context"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/lib/pq"
	"github.com/taskdeck/taskdeck/internal/config"
	"github.com/taskdeck/taskdeck/internal/db"
)

const channel = "role_assignment_changes"

// ChangeEvent is one role assignment change, as notified by the user_roles
// triggers. Payload format: "operation:user_id:role".
type ChangeEvent struct {
	Operation string // INSERT or DELETE
	UserID    string
	Role      string
}

// ChangeHandler is a callback for role assignment changes.
type ChangeHandler func(event ChangeEvent)

// PubSub follows role assignment changes via Postgres LISTEN/NOTIFY.
// Authorization is never cached, so there is nothing to invalidate here;
// the feed exists so operators can see membership changes as they land.
type PubSub struct {
	connStr  string
	listener *pq.Listener
	handlers []ChangeHandler
	mu       sync.RWMutex
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewPubSub(conf *config.Config) *PubSub {
	ctx, cancel := context.WithCancel(context.Background())

	return &PubSub{
		connStr:  db.ConnString(conf),
		handlers: make([]ChangeHandler, 0),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Subscribe adds a handler for role assignment changes.
func (ps *PubSub) Subscribe(handler ChangeHandler) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.handlers = append(ps.handlers, handler)
}

// Start begins listening for notifications.
func (ps *PubSub) Start() error {
	reportProblem := func(ev pq.ListenerEventType, err error) {
		if err != nil {
			slog.Error("Change feed listener error", slog.Any("error", err))
		}
		switch ev {
		case pq.ListenerEventConnectionAttemptFailed:
			slog.Warn("Change feed connection attempt failed, will retry")
		case pq.ListenerEventDisconnected:
			slog.Warn("Change feed disconnected, will attempt reconnect")
		case pq.ListenerEventReconnected:
			slog.Info("Change feed reconnected")
		}
	}

	ps.listener = pq.NewListener(ps.connStr, 10*time.Second, time.Minute, reportProblem)

	if err := ps.listener.Listen(channel); err != nil {
		return err
	}

	slog.Info("Change feed listening for role assignment changes")

	go ps.processNotifications()

	return nil
}

// Stop closes the listener.
func (ps *PubSub) Stop() {
	ps.cancel()
	if ps.listener != nil {
		ps.listener.Close()
	}
}

func (ps *PubSub) processNotifications() {
	for {
		select {
		case <-ps.ctx.Done():
			return
		case notification := <-ps.listener.Notify:
			if notification == nil {
				// Connection lost, handled by the listener callback.
				continue
			}

			parts := strings.SplitN(notification.Extra, ":", 3)
			if len(parts) != 3 {
				slog.Warn("Invalid notification payload", slog.String("payload", notification.Extra))
				continue
			}

			ps.notifyHandlers(ChangeEvent{
				Operation: parts[0],
				UserID:    parts[1],
				Role:      parts[2],
			})
		}
	}
}

func (ps *PubSub) notifyHandlers(event ChangeEvent) {
	ps.mu.RLock()
	handlers := make([]ChangeHandler, len(ps.handlers))
	copy(handlers, ps.handlers)
	ps.mu.RUnlock()

	for _, handler := range handlers {
		handler(event)
	}
}
