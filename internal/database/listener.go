// internal/database/listener.go
package database

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ghost-vault/internal/model"
)

const listenerRetryDelay = 2 * time.Second

// Publisher receives status changes read from StatusChannel.
type Publisher interface {
	Publish(change model.StatusChange)
}

// Listener relays StatusChannel notifications from Postgres to a Publisher,
// so changes committed by any instance reach local subscribers.
type Listener struct {
	pool      *pgxpool.Pool
	publisher Publisher
	logger    *slog.Logger
}

// NewListener creates a Listener.
func NewListener(pool *pgxpool.Pool, publisher Publisher, logger *slog.Logger) *Listener {
	return &Listener{pool: pool, publisher: publisher, logger: logger.With("channel", StatusChannel)}
}

// Start listens until ctx is done, reconnecting after connection failures.
func (l *Listener) Start(ctx context.Context) {
	l.logger.Info("Starting status listener")
	for {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			l.logger.Info("Status listener shutting down", "reason", ctx.Err())
			return
		}
		l.logger.Error("Status listener connection lost, retrying", "error", err, "delay", listenerRetryDelay)

		select {
		case <-time.After(listenerRetryDelay):
		case <-ctx.Done():
			return
		}
	}
}

func (l *Listener) listen(ctx context.Context) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	// A connection that has issued LISTEN must not go back to the pool.
	pgConn := conn.Hijack()
	defer pgConn.Close(context.Background())

	if _, err := pgConn.Exec(ctx, "LISTEN "+pgx.Identifier{StatusChannel}.Sanitize()); err != nil {
		return err
	}

	for {
		n, err := pgConn.WaitForNotification(ctx)
		if err != nil {
			return err
		}
		l.handle(n.Payload)
	}
}

func (l *Listener) handle(payload string) {
	var change model.StatusChange
	if err := json.Unmarshal([]byte(payload), &change); err != nil {
		l.logger.Warn("Discarding malformed status notification", "error", err)
		return
	}
	if change.ProjectID == "" || change.RequesterID == "" {
		l.logger.Warn("Discarding status notification without key", "payload", payload)
		return
	}
	l.publisher.Publish(change)
}
