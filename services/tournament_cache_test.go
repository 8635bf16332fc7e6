package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Nisanth-2025/hyperXP/models"

	"github.com/go-redis/redismock/v9"
)

func cachedTournaments() []models.Tournament {
	return []models.Tournament{{
		ID:             "t1",
		Slug:           "t1",
		Title:          "Weekend Cup",
		EntryFee:       50,
		TotalSeats:     10,
		AvailableSeats: 7,
		TournamentDate: time.Date(2030, 1, 2, 15, 0, 0, 0, time.UTC),
		Status:         models.TournamentStatusUpcoming,
	}}
}

func TestTournamentCacheMissLoadsAndStores(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewTournamentCache(db, 5*time.Second)

	want := cachedTournaments()
	payload, _ := json.Marshal(want)
	mock.ExpectGet(upcomingTournamentsKey).RedisNil()
	mock.ExpectSet(upcomingTournamentsKey, string(payload), 5*time.Second).SetVal("OK")

	loads := 0
	got, err := cache.Upcoming(context.Background(), func(context.Context) ([]models.Tournament, error) {
		loads++
		return want, nil
	})
	if err != nil {
		t.Fatalf("Upcoming() error = %v", err)
	}
	if loads != 1 || len(got) != 1 || got[0].ID != "t1" {
		t.Errorf("loads = %d, got = %+v", loads, got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestTournamentCacheHitSkipsStore(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewTournamentCache(db, 5*time.Second)

	payload, _ := json.Marshal(cachedTournaments())
	mock.ExpectGet(upcomingTournamentsKey).SetVal(string(payload))

	got, err := cache.Upcoming(context.Background(), func(context.Context) ([]models.Tournament, error) {
		t.Fatal("store should not be read on a cache hit")
		return nil, nil
	})
	if err != nil {
		t.Fatalf("Upcoming() error = %v", err)
	}
	if len(got) != 1 || got[0].AvailableSeats != 7 {
		t.Errorf("got = %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestTournamentCacheRedisErrorFallsThrough(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewTournamentCache(db, 5*time.Second)

	mock.ExpectGet(upcomingTournamentsKey).SetErr(errors.New("connection refused"))

	got, err := cache.Upcoming(context.Background(), func(context.Context) ([]models.Tournament, error) {
		return cachedTournaments(), nil
	})
	if err != nil || len(got) != 1 {
		t.Fatalf("Upcoming() = %v, %v", got, err)
	}

	storeErr := &StoreError{Op: "list tournaments", Err: errors.New("down")}
	mock.ExpectGet(upcomingTournamentsKey).RedisNil()
	if _, err := cache.Upcoming(context.Background(), func(context.Context) ([]models.Tournament, error) {
		return nil, storeErr
	}); !errors.Is(err, storeErr) {
		t.Errorf("error = %v, want store error", err)
	}
}

func TestTournamentCacheInvalidate(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewTournamentCache(db, time.Second)

	mock.ExpectDel(upcomingTournamentsKey).SetVal(1)
	cache.Invalidate(context.Background())
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}

	var nilCache *TournamentCache
	nilCache.Invalidate(context.Background())
	got, err := nilCache.Upcoming(context.Background(), func(context.Context) ([]models.Tournament, error) {
		return cachedTournaments(), nil
	})
	if err != nil || len(got) != 1 {
		t.Errorf("nil cache Upcoming() = %v, %v", got, err)
	}
}
