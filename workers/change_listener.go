package workers

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/Nisanth-2025/hyperXP/services"

	"github.com/jackc/pgx/v5"
)

const (
	listenRetryMin = time.Second
	listenRetryMax = 30 * time.Second
)

// ChangeListener turns Postgres NOTIFY messages on the change channel into
// hub events, so every instance sees commits made by any instance.
type ChangeListener struct {
	DSN     string
	Channel string
	Hub     *services.SeatHub
}

func NewChangeListener(dsn string, hub *services.SeatHub) *ChangeListener {
	return &ChangeListener{DSN: dsn, Channel: services.ChangeChannel, Hub: hub}
}

// Run listens until ctx is done, reconnecting with back-off. Notifications
// sent while disconnected are lost; SSE clients refresh on reconnect.
func (l *ChangeListener) Run(ctx context.Context) {
	delay := listenRetryMin
	for {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			log.Println("Change listener stopped.")
			return
		}
		log.Printf("❌ [LISTEN] %v (reconnecting in %s)", err, delay)

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		delay *= 2
		if delay > listenRetryMax {
			delay = listenRetryMax
		}
	}
}

func (l *ChangeListener) listen(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, l.DSN)
	if err != nil {
		return err
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.Channel}.Sanitize()); err != nil {
		return err
	}
	log.Printf("✅ [LISTEN] subscribed to %s", l.Channel)

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}
		l.dispatch(n.Payload)
	}
}

func (l *ChangeListener) dispatch(payload string) {
	var ev services.ChangeEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		log.Printf("⚠️ [LISTEN] dropping malformed notification: %v", err)
		return
	}
	l.Hub.Publish(ev)
}
