package services

import (
	"encoding/json"
	"fmt"

	"github.com/Nisanth-2025/hyperXP/models"

	"gorm.io/gorm"
)

// Change-feed tables and operations.
const (
	TableTournaments   = "tournaments"
	TableRegistrations = "registrations"

	OpInsert = "INSERT"
	OpUpdate = "UPDATE"
)

// ChangeChannel is the Postgres NOTIFY channel carrying ChangeEvents.
const ChangeChannel = "hyperxp_changes"

// ChangeEvent is one committed row change. Exactly one of Tournament or
// Registration is set.
type ChangeEvent struct {
	Table        string                     `json:"table"`
	Op           string                     `json:"op"`
	Tournament   *models.SeatUpdate         `json:"tournament,omitempty"`
	Registration *models.RegistrationUpdate `json:"registration,omitempty"`
}

// TournamentID returns the tournament the change belongs to.
func (e ChangeEvent) TournamentID() string {
	switch {
	case e.Tournament != nil:
		return e.Tournament.TournamentID
	case e.Registration != nil:
		return e.Registration.TournamentID
	}
	return ""
}

// ChangeFeed publishes store changes. NotifyTx runs inside the writing
// transaction; AfterCommit runs once it has committed.
type ChangeFeed interface {
	NotifyTx(tx *gorm.DB, ev ChangeEvent) error
	AfterCommit(ev ChangeEvent)
}

// HubFeed delivers changes to the in-process hub after commit. Used when
// a single instance serves all clients.
type HubFeed struct {
	Hub *SeatHub
}

func (HubFeed) NotifyTx(*gorm.DB, ChangeEvent) error { return nil }

func (f HubFeed) AfterCommit(ev ChangeEvent) {
	f.Hub.Publish(ev)
}

// PgNotifyFeed emits pg_notify inside the transaction, so Postgres delivers
// the change to every listening instance only if the write commits.
type PgNotifyFeed struct{}

func (PgNotifyFeed) NotifyTx(tx *gorm.DB, ev ChangeEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode change event: %w", err)
	}
	if err := tx.Exec("SELECT pg_notify(?, ?)", ChangeChannel, string(payload)).Error; err != nil {
		return fmt.Errorf("pg_notify: %w", err)
	}
	return nil
}

func (PgNotifyFeed) AfterCommit(ChangeEvent) {}
