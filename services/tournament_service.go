package services

import (
	"context"
	"log"
	"time"

	"github.com/Nisanth-2025/hyperXP/models"

	"github.com/gofiber/fiber/v2"
)

// TournamentService serves the public tournament listing and seat counts.
type TournamentService struct {
	Store    RegistrationStore
	Cache    *TournamentCache
	Hub      *SeatHub
	DemoMode bool
	Now      func() time.Time
}

func NewTournamentService(store RegistrationStore, cache *TournamentCache, hub *SeatHub, demoMode bool) *TournamentService {
	return &TournamentService{Store: store, Cache: cache, Hub: hub, DemoMode: demoMode}
}

func (s *TournamentService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Upcoming lists tournaments that have not started yet, soonest first.
func (s *TournamentService) Upcoming(ctx context.Context) ([]models.Tournament, error) {
	now := s.now().UTC()
	return s.Cache.Upcoming(ctx, func(ctx context.Context) ([]models.Tournament, error) {
		return s.Store.ListUpcomingTournaments(ctx, now)
	})
}

// Tournament looks a tournament up by id or slug.
func (s *TournamentService) Tournament(ctx context.Context, idOrSlug string) (*models.Tournament, error) {
	if s.DemoMode && idOrSlug == models.DemoTournamentID {
		t := models.DemoTournament(s.now())
		return &t, nil
	}
	return s.Store.GetTournament(ctx, idOrSlug)
}

// GetTournaments never fails: when the store cannot be read the booking
// page still gets the demo tournament.
func (s *TournamentService) GetTournaments(c *fiber.Ctx) error {
	tournaments, err := s.Upcoming(c.UserContext())
	if err != nil {
		log.Printf("⚠️ [TOURNAMENTS] listing unavailable, serving demo tournament: %v", err)
		tournaments = []models.Tournament{models.DemoTournament(s.now())}
	}
	if tournaments == nil {
		tournaments = []models.Tournament{}
	}
	return c.JSON(models.TournamentsResponse{Success: true, Tournaments: tournaments})
}

func (s *TournamentService) GetTournamentByID(c *fiber.Ctx) error {
	id := c.Params("id")
	t, err := s.Tournament(c.UserContext(), id)
	if err != nil {
		if StatusCode(err) >= fiber.StatusInternalServerError {
			log.Printf("❌ [TOURNAMENTS] fetching %s: %v", id, err)
		}
		return respondError(c, err)
	}
	return c.JSON(models.TournamentResponse{Success: true, Tournament: *t})
}
