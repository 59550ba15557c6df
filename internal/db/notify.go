package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// Notifier publishes "record complete" events over Postgres LISTEN/NOTIFY
// so that a prescriber-side tool can pick up finished sessions.
type Notifier struct {
	DB      *sql.DB
	DSN     string
	Channel string
}

// NewNotifier constructs a new Notifier.  The channel should match the
// POSTGRES_NOTIFY_CHANNEL environment variable.  dsn is only needed by
// Listen, which holds its own connection.
func NewNotifier(db *sql.DB, dsn, channel string) *Notifier {
	return &Notifier{DB: db, DSN: dsn, Channel: channel}
}

// NotifyComplete sends the session id on the channel.
func (n *Notifier) NotifyComplete(ctx context.Context, sessionID string) error {
	// NOTIFY does not take bind parameters; pg_notify does
	_, err := n.DB.ExecContext(ctx, `SELECT pg_notify($1, $2)`, n.Channel, sessionID)
	return err
}

// Listen yields session ids published on the channel until ctx is
// cancelled.  The listener reconnects on its own after connection loss.
func (n *Notifier) Listen(ctx context.Context) (<-chan string, error) {
	log := logrus.WithField("channel", n.Channel)
	l := pq.NewListener(n.DSN, 2*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			log.WithError(err).Warn("notification listener event")
		}
	})
	if err := l.Listen(n.Channel); err != nil {
		l.Close()
		return nil, err
	}

	ch := make(chan string)
	go func() {
		defer close(ch)
		defer l.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case note := <-l.Notify:
				if note == nil {
					// connection re-established, events may have been missed
					log.Info("notification listener reconnected")
					continue
				}
				select {
				case ch <- note.Extra:
				case <-ctx.Done():
					return
				}
			case <-time.After(90 * time.Second):
				go func() {
					if err := l.Ping(); err != nil {
						log.WithError(err).Warn("notification listener ping failed")
					}
				}()
			}
		}
	}()
	return ch, nil
}
