package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/Nisanth-2025/hyperXP/metrics"
	"github.com/Nisanth-2025/hyperXP/models"
	"github.com/Nisanth-2025/hyperXP/services"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	// A claimed row is retried by another dispatcher if it is not settled
	// within this window.
	claimLease     = 30 * time.Second
	publishTimeout = 5 * time.Second
	maxRetryDelay  = time.Minute
)

// OutboxDispatcher relays payment_outbox rows to the broker.
type OutboxDispatcher struct {
	DB        *gorm.DB
	Publisher Publisher
	BatchSize int
	Interval  time.Duration
	Now       func() time.Time
}

// Envelope is the message body consumers receive.
type Envelope struct {
	ID          string          `json:"id"`
	EventType   string          `json:"event_type"`
	AggregateID string          `json:"aggregate_id"`
	Payload     json.RawMessage `json:"payload"`
	CreatedAt   time.Time       `json:"created_at"`
}

func NewOutboxDispatcher(db *gorm.DB, publisher Publisher, batchSize int, interval time.Duration) *OutboxDispatcher {
	return &OutboxDispatcher{DB: db, Publisher: publisher, BatchSize: batchSize, Interval: interval}
}

func (d *OutboxDispatcher) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now().UTC()
}

// Job schedules the dispatcher with the shared scheduler.
func (d *OutboxDispatcher) Job() services.Job {
	return services.Job{
		Name:  "outbox-dispatch",
		Every: d.Interval,
		Run: func(ctx context.Context) {
			if _, err := d.DispatchOnce(ctx); err != nil {
				log.Printf("❌ [OUTBOX] dispatch failed: %v", err)
			}
		},
	}
}

// DispatchOnce claims one batch, publishes it and settles each row. It
// returns how many rows were published.
func (d *OutboxDispatcher) DispatchOnce(ctx context.Context) (int, error) {
	rows, err := d.claim(ctx)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, row := range rows {
		if err := d.publishOne(ctx, row); err != nil {
			log.Printf("⚠️ [OUTBOX] publish %s (%s) failed: %v", row.ID, row.EventType, err)
			metrics.OutboxPublishedTotal.WithLabelValues("retry").Inc()
			continue
		}
		sent++
		metrics.OutboxPublishedTotal.WithLabelValues("sent").Inc()
	}
	if sent > 0 {
		log.Printf("📤 [OUTBOX] published %d/%d event(s)", sent, len(rows))
	}
	return sent, nil
}

// claim marks due rows as processing. On Postgres SKIP LOCKED lets several
// dispatchers share the table; the sqlite dialect drops the locking clause.
func (d *OutboxDispatcher) claim(ctx context.Context) ([]models.OutboxEvent, error) {
	now := d.now()
	var rows []models.OutboxEvent

	err := d.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status IN ? AND next_retry <= ?",
				[]string{models.OutboxStatusPending, models.OutboxStatusProcessing}, now).
			Order("created_at ASC").
			Limit(d.BatchSize).
			Find(&rows).Error; err != nil {
			return fmt.Errorf("query outbox: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}

		ids := make([]string, len(rows))
		for i, row := range rows {
			ids[i] = row.ID
		}
		return tx.Model(&models.OutboxEvent{}).
			Where("id IN ?", ids).
			Updates(map[string]any{
				"status":     models.OutboxStatusProcessing,
				"next_retry": now.Add(claimLease),
			}).Error
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (d *OutboxDispatcher) publishOne(ctx context.Context, row models.OutboxEvent) error {
	body, err := json.Marshal(Envelope{
		ID:          row.ID,
		EventType:   row.EventType,
		AggregateID: row.AggregateID,
		Payload:     json.RawMessage(row.Payload),
		CreatedAt:   row.CreatedAt,
	})
	if err != nil {
		return d.markFailure(ctx, row, err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := d.Publisher.Publish(pubCtx, row.EventType, row.ID, body); err != nil {
		return d.markFailure(ctx, row, err)
	}

	return d.DB.WithContext(ctx).Model(&models.OutboxEvent{}).
		Where("id = ?", row.ID).
		Updates(map[string]any{
			"status":     models.OutboxStatusSent,
			"last_error": "",
		}).Error
}

func (d *OutboxDispatcher) markFailure(ctx context.Context, row models.OutboxEvent, publishErr error) error {
	attempts := row.Attempts + 1
	if err := d.DB.WithContext(ctx).Model(&models.OutboxEvent{}).
		Where("id = ?", row.ID).
		Updates(map[string]any{
			"status":     models.OutboxStatusPending,
			"attempts":   attempts,
			"last_error": publishErr.Error(),
			"next_retry": d.now().Add(RetryDelay(attempts)),
		}).Error; err != nil {
		return fmt.Errorf("update retry: %w", err)
	}
	return publishErr
}

// RetryDelay is 1s·2^(attempts-1), capped at one minute.
func RetryDelay(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	if attempts > 7 {
		return maxRetryDelay
	}
	delay := time.Duration(1<<(attempts-1)) * time.Second
	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}
	return delay
}
