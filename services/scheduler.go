package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Job is a named task run on a fixed interval.
type Job struct {
	Name  string
	Every time.Duration
	Run   func(ctx context.Context)
}

// StartScheduler runs every job immediately and then on its interval. A
// job never overlaps itself; a slow run pushes the next one back.
func StartScheduler(ctx context.Context, jobs ...Job) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	for _, job := range jobs {
		run := job.Run
		if _, err := sched.NewJob(
			gocron.DurationJob(job.Every),
			gocron.NewTask(func() { run(ctx) }),
			gocron.WithName(job.Name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
			gocron.WithStartAt(gocron.WithStartImmediately()),
		); err != nil {
			_ = sched.Shutdown()
			return nil, fmt.Errorf("schedule %s: %w", job.Name, err)
		}
		log.Printf("⏱️ [Scheduler] %s every %s", job.Name, job.Every)
	}

	sched.Start()
	return sched, nil
}

// StatusSweepJob closes tournaments whose start time has passed.
func StatusSweepJob(store RegistrationStore) Job {
	return Job{
		Name:  "tournament-status-sweep",
		Every: time.Minute,
		Run: func(ctx context.Context) {
			n, err := store.CloseStartedTournaments(ctx, time.Now().UTC())
			if err != nil {
				log.Printf("[Scheduler] status sweep failed: %v", err)
				return
			}
			if n > 0 {
				log.Printf("✅ [Scheduler] closed %d started tournament(s)", n)
			}
		},
	}
}
