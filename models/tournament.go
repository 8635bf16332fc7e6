package models

import (
	"encoding/json"
	"time"

	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// Tournament statuses
const (
	TournamentStatusUpcoming = "upcoming"
	TournamentStatusFull     = "full"
	TournamentStatusClosed   = "closed"
)

// Tournament is a seat-limited paid event. Seats are only ever taken by
// confirmed registrations (see ConfirmedCount).
type Tournament struct {
	ID             string    `json:"id" gorm:"primaryKey"`
	Slug           string    `json:"slug" gorm:"index"`
	Title          string    `json:"title" gorm:"not null"`
	Description    string    `json:"description"`
	EntryFee       int64     `json:"entry_fee" gorm:"not null"` // whole currency units, e.g. rupees
	TotalSeats     int       `json:"total_seats" gorm:"not null"`
	AvailableSeats int       `json:"available_seats" gorm:"not null"`
	TournamentDate time.Time `json:"tournament_date" gorm:"not null;index"`
	PrizePool      PrizePool `json:"prize_pool" gorm:"embedded;embeddedPrefix:prize_"`
	Status         string    `json:"status" gorm:"type:varchar(16);default:'upcoming'"`

	// Number of completed registrations; the last assigned seat number.
	ConfirmedCount int `json:"-" gorm:"not null;default:0"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// PrizePool holds the podium amounts in whole currency units.
type PrizePool struct {
	First  int64 `json:"first" gorm:"default:0"`
	Second int64 `json:"second" gorm:"default:0"`
	Third  int64 `json:"third" gorm:"default:0"`
}

// Total is the sum of all podium prizes.
func (p PrizePool) Total() int64 {
	return p.First + p.Second + p.Third
}

// MarshalJSON adds the computed total the front-end displays.
func (p PrizePool) MarshalJSON() ([]byte, error) {
	type prize struct {
		First  int64 `json:"first"`
		Second int64 `json:"second"`
		Third  int64 `json:"third"`
		Total  int64 `json:"total"`
	}
	return json.Marshal(prize{First: p.First, Second: p.Second, Third: p.Third, Total: p.Total()})
}

// BeforeCreate derives the URL slug from the title when none is set.
func (t *Tournament) BeforeCreate(tx *gorm.DB) error {
	if t.Slug == "" {
		t.Slug = slug.Make(t.Title)
	}
	if t.Status == "" {
		t.Status = TournamentStatusUpcoming
	}
	return nil
}

// IsBookable reports whether new payment orders may be created.
func (t *Tournament) IsBookable() bool {
	return t.AvailableSeats > 0 && t.Status != TournamentStatusClosed
}

// SeatUpdate is the change-feed payload for a tournament row.
type SeatUpdate struct {
	TournamentID   string `json:"tournament_id"`
	AvailableSeats int    `json:"available_seats"`
	TotalSeats     int    `json:"total_seats"`
	Status         string `json:"status"`
}

// SeatUpdate snapshots the seat counters of t.
func (t *Tournament) SeatUpdate() SeatUpdate {
	return SeatUpdate{
		TournamentID:   t.ID,
		AvailableSeats: t.AvailableSeats,
		TotalSeats:     t.TotalSeats,
		Status:         t.Status,
	}
}
