package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/Nisanth-2025/hyperXP/metrics"
	"github.com/Nisanth-2025/hyperXP/models"

	"github.com/google/uuid"
)

// Reconciliation alert kinds
const (
	AlertOrderWithoutRegistration = "order_without_registration"
	AlertConfirmationStoreFailure = "confirmation_store_failure"
	AlertOversold                 = "oversold"
)

// ReconciliationAlert describes captured or capturable money whose seat
// record could not be written normally.
type ReconciliationAlert struct {
	Kind           string    `json:"kind"`
	RegistrationID string    `json:"registration_id,omitempty"`
	TournamentID   string    `json:"tournament_id,omitempty"`
	OrderID        string    `json:"razorpay_order_id,omitempty"`
	PaymentID      string    `json:"razorpay_payment_id,omitempty"`
	Detail         string    `json:"detail,omitempty"`
	RaisedAt       time.Time `json:"raised_at"`
}

// AlertSink is durable storage outside the database, used when the
// database itself is what failed.
type AlertSink interface {
	Put(ctx context.Context, key string, payload []byte) error
}

// Alerter records reconciliation alerts.
type Alerter interface {
	Alert(ctx context.Context, a ReconciliationAlert)
}

// Reconciler writes alerts to the outbox, falling back to the sink.
type Reconciler struct {
	Store RegistrationStore
	Sink  AlertSink
}

func NewReconciler(store RegistrationStore, sink AlertSink) *Reconciler {
	return &Reconciler{Store: store, Sink: sink}
}

// Alert never fails the caller; every path ends in at least a log line.
func (r *Reconciler) Alert(ctx context.Context, a ReconciliationAlert) {
	if a.RaisedAt.IsZero() {
		a.RaisedAt = time.Now().UTC()
	}
	metrics.ReconciliationAlertsTotal.WithLabelValues(a.Kind).Inc()
	log.Printf("🚨 [RECONCILE] %s registration=%s tournament=%s order=%s payment=%s: %s",
		a.Kind, a.RegistrationID, a.TournamentID, a.OrderID, a.PaymentID, a.Detail)

	aggregate := a.RegistrationID
	if aggregate == "" {
		aggregate = a.OrderID
	}
	err := r.Store.RecordEvent(ctx, models.EventReconciliationNeeded, aggregate, a)
	if err == nil {
		return
	}
	log.Printf("❌ [RECONCILE] outbox write failed: %v", err)

	if r.Sink == nil {
		log.Printf("🚨 [RECONCILE] no fallback sink configured; alert exists only in this log")
		return
	}
	payload, _ := json.Marshal(a)
	key := fmt.Sprintf("reconciliation/%s/%s-%s.json", a.RaisedAt.Format("2006-01-02"), a.Kind, uuid.NewString())
	if err := r.Sink.Put(ctx, key, payload); err != nil {
		log.Printf("❌ [RECONCILE] fallback sink write failed: %v", err)
		return
	}
	log.Printf("✅ [RECONCILE] alert archived to %s", key)
}
