package models

import (
	"time"

	"github.com/gosimple/slug"
)

const demoTitle = "Free Fire Championship"

// DemoTournamentID identifies the built-in tournament served in demo mode.
const DemoTournamentID = "demo-tournament"

// DemoTournament returns the placeholder tournament used when the store is
// not provisioned. The start time is always one day ahead of now.
func DemoTournament(now time.Time) Tournament {
	return Tournament{
		ID:             DemoTournamentID,
		Slug:           slug.Make(demoTitle),
		Title:          demoTitle,
		Description:    "Ultimate Free Fire tournament with exciting prizes",
		EntryFee:       75,
		TotalSeats:     48,
		AvailableSeats: 48,
		TournamentDate: now.Add(24 * time.Hour).UTC(),
		PrizePool:      PrizePool{First: 1000, Second: 700, Third: 500},
		Status:         TournamentStatusUpcoming,
	}
}
