package workflow

import (
	"context"
	"fmt"
	"log"
	"time"
)

const loadAttempts = 3

// Loader loads the gateway's checkout script.
type Loader interface {
	Load(ctx context.Context) error
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context) error

func (f LoaderFunc) Load(ctx context.Context) error { return f(ctx) }

// LoadWithRetry tries l up to attempts times with a fixed delay between
// tries and returns the last error.
func LoadWithRetry(ctx context.Context, l Loader, attempts int, delay time.Duration) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 1; i <= attempts; i++ {
		if err = l.Load(ctx); err == nil {
			return nil
		}
		log.Printf("⚠️ [BOOKING] checkout load attempt %d/%d failed: %v", i, attempts, err)
		if i == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("checkout unavailable after %d attempts: %w", attempts, err)
}
