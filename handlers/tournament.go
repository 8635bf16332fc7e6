package handlers

import (
	"github.com/Nisanth-2025/hyperXP/services"

	"github.com/gofiber/fiber/v2"
)

func SetupTournamentRoutes(router fiber.Router, tournamentService *services.TournamentService) {
	router.Get("/tournaments", tournamentService.GetTournaments)
	// Registered before /:id so "stream" is not taken as a slug.
	router.Get("/tournaments/stream", tournamentService.StreamSeatsSSE)
	router.Get("/tournaments/:id", tournamentService.GetTournamentByID)
}
