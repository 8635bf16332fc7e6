package services

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/Nisanth-2025/hyperXP/models"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const upcomingTournamentsKey = "hyperxp:tournaments:upcoming"

// TournamentCache is a cache-aside layer over the upcoming-tournament
// listing. Concurrent misses are collapsed into one store read. Redis
// failures are logged and the store is read directly.
type TournamentCache struct {
	Client *redis.Client
	TTL    time.Duration

	group singleflight.Group
}

func NewTournamentCache(client *redis.Client, ttl time.Duration) *TournamentCache {
	return &TournamentCache{Client: client, TTL: ttl}
}

// Upcoming returns the cached listing, or calls load and caches its result.
func (c *TournamentCache) Upcoming(ctx context.Context, load func(context.Context) ([]models.Tournament, error)) ([]models.Tournament, error) {
	if c == nil || c.Client == nil {
		return load(ctx)
	}

	if cached, ok := c.get(ctx); ok {
		return cached, nil
	}

	v, err, _ := c.group.Do(upcomingTournamentsKey, func() (any, error) {
		tournaments, err := load(ctx)
		if err != nil {
			return nil, err
		}
		c.set(ctx, tournaments)
		return tournaments, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]models.Tournament), nil
}

func (c *TournamentCache) get(ctx context.Context) ([]models.Tournament, bool) {
	raw, err := c.Client.Get(ctx, upcomingTournamentsKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		log.Printf("⚠️ [CACHE] redis get failed: %v", err)
		return nil, false
	}
	var tournaments []models.Tournament
	if err := json.Unmarshal([]byte(raw), &tournaments); err != nil {
		log.Printf("⚠️ [CACHE] dropping unreadable entry: %v", err)
		return nil, false
	}
	return tournaments, true
}

func (c *TournamentCache) set(ctx context.Context, tournaments []models.Tournament) {
	payload, err := json.Marshal(tournaments)
	if err != nil {
		log.Printf("⚠️ [CACHE] marshal failed: %v", err)
		return
	}
	if err := c.Client.Set(ctx, upcomingTournamentsKey, string(payload), c.TTL).Err(); err != nil {
		log.Printf("⚠️ [CACHE] redis set failed: %v", err)
	}
}

// Invalidate drops the cached listing.
func (c *TournamentCache) Invalidate(ctx context.Context) {
	if c == nil || c.Client == nil {
		return
	}
	if err := c.Client.Del(ctx, upcomingTournamentsKey).Err(); err != nil {
		log.Printf("⚠️ [CACHE] redis del failed: %v", err)
	}
}

// InvalidateOnChange drops the listing whenever a tournament row changes,
// until ctx is done.
func (c *TournamentCache) InvalidateOnChange(ctx context.Context, hub *SeatHub) {
	if c == nil || c.Client == nil || hub == nil {
		return
	}
	events, cancel := hub.Subscribe("")
	go func() {
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				if ev.Table == TableTournaments {
					c.Invalidate(ctx)
				}
			}
		}
	}()
}
