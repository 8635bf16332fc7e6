package services

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/Nisanth-2025/hyperXP/metrics"

	"github.com/gofiber/fiber/v2"
)

const seatStreamKeepAlive = 15 * time.Second

// StreamSeatsSSE pushes live seat counts as Server-Sent Events. Delivery is
// best effort; clients refetch the tournament after reconnecting.
func (s *TournamentService) StreamSeatsSSE(c *fiber.Ctx) error {
	tournamentID := c.Query("tournamentId")

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no") // nginx

	events, cancel := s.Hub.Subscribe(tournamentID)
	done := c.Context().Done()

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()
		metrics.SeatStreamSubscribers.Inc()
		defer metrics.SeatStreamSubscribers.Dec()

		ticker := time.NewTicker(seatStreamKeepAlive)
		defer ticker.Stop()

		w.WriteString(": connected\n\n")
		if err := w.Flush(); err != nil {
			return
		}

		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				if ev.Tournament == nil {
					continue
				}
				payload, err := json.Marshal(ev.Tournament)
				if err != nil {
					log.Printf("⚠️ [SSE] marshal seat update: %v", err)
					continue
				}
				fmt.Fprintf(w, "event: seats\ndata: %s\n\n", payload)
				if err := w.Flush(); err != nil {
					// Client disconnected
					return
				}

			case <-ticker.C:
				w.WriteString(": ping\n\n")
				if err := w.Flush(); err != nil {
					return
				}

			case <-done:
				return
			}
		}
	})

	return nil
}
