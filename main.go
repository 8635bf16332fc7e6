package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Nisanth-2025/hyperXP/config"
	"github.com/Nisanth-2025/hyperXP/handlers"
	"github.com/Nisanth-2025/hyperXP/metrics"
	"github.com/Nisanth-2025/hyperXP/models"
	"github.com/Nisanth-2025/hyperXP/services"
	"github.com/Nisanth-2025/hyperXP/utils"
	"github.com/Nisanth-2025/hyperXP/workers"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:     "hyperxp",
		Short:   "HyperXP tournament registration and payment API",
		Version: Version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedDemoCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and background jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			db, _, err := openDatabase(cfg.DatabaseURL)
			if err != nil {
				return err
			}
			if err := services.NewGormStore(db, nil).AutoMigrate(); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			log.Println("✅ Database migrated")
			return nil
		},
	}
}

func seedDemoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed-demo",
		Short: "Store the demo tournament so a fresh database has something bookable",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			db, _, err := openDatabase(cfg.DatabaseURL)
			if err != nil {
				return err
			}
			if err := services.NewGormStore(db, nil).AutoMigrate(); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			t := models.DemoTournament(time.Now())
			t.ID = "free-fire-championship"
			if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&t).Error; err != nil {
				return fmt.Errorf("seed demo tournament: %w", err)
			}
			log.Printf("✅ Seeded tournament %s (%s)", t.ID, t.Title)
			return nil
		},
	}
}

// openDatabase opens Postgres for postgres:// URLs and sqlite for anything
// else. The bool reports whether the database is Postgres.
func openDatabase(dsn string) (*gorm.DB, bool, error) {
	if dsn == "" {
		return nil, false, errors.New("DATABASE_URL environment variable not set")
	}
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err != nil {
			return nil, false, fmt.Errorf("failed to connect to database: %w", err)
		}
		return db, true, nil
	}

	db, err := gorm.Open(sqlite.Open(strings.TrimPrefix(dsn, "sqlite://")), &gorm.Config{})
	if err != nil {
		return nil, false, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, false, err
	}
	// sqlite has no row locks; one connection serializes the seat transaction.
	sqlDB.SetMaxOpenConns(1)
	return db, false, nil
}

func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	metrics.Register()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := services.NewSeatHub()
	defer hub.Close()

	var (
		store services.RegistrationStore = services.NullStore{}
		db    *gorm.DB
	)
	if cfg.DatabaseURL != "" {
		var isPostgres bool
		db, isPostgres, err = openDatabase(cfg.DatabaseURL)
		if err != nil {
			return err
		}

		var feed services.ChangeFeed = services.HubFeed{Hub: hub}
		if isPostgres {
			feed = services.PgNotifyFeed{}
			go workers.NewChangeListener(cfg.DatabaseURL, hub).Run(ctx)
		}

		gormStore := services.NewGormStore(db, feed)
		if err := gormStore.AutoMigrate(); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
		store = gormStore
	} else {
		log.Println("⚠️  DATABASE_URL not set, running without a registration store")
	}

	var cache *services.TournamentCache
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		client := redis.NewClient(opts)
		defer client.Close()
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if err := client.Ping(pingCtx).Err(); err != nil {
			log.Printf("⚠️  Redis unreachable, continuing (cache misses fall through): %v", err)
		}
		cancel()
		cache = services.NewTournamentCache(client, cfg.TournamentCacheTTL)
		cache.InvalidateOnChange(ctx, hub)
	}

	var sink services.AlertSink
	if cfg.R2Enabled() {
		r2, err := utils.NewR2Sink(ctx, cfg.R2AccountID, cfg.R2AccessKeyID, cfg.R2AccessKeySecret, cfg.R2Bucket)
		if err != nil {
			return fmt.Errorf("failed to initialize R2 client: %w", err)
		}
		sink = r2
	}
	reconciler := services.NewReconciler(store, sink)

	gateway := services.NewRazorpayClient(cfg.RazorpayBaseURL, cfg.RazorpayKeyID, cfg.RazorpayKeySecret)
	demoIDs := services.NewDemoIDs(cfg.RazorpayKeySecret)

	orders := &services.OrderService{
		Store:    store,
		Gateway:  gateway,
		Alerter:  reconciler,
		DemoIDs:  demoIDs,
		DemoMode: cfg.DemoMode,
		Currency: cfg.Currency,
	}
	verifier := &services.VerificationService{
		Store:    store,
		Gateway:  gateway,
		Alerter:  reconciler,
		DemoIDs:  demoIDs,
		DemoMode: cfg.DemoMode,
	}

	var jobs []services.Job
	if db != nil {
		jobs = append(jobs, services.StatusSweepJob(store))
		if cfg.RabbitURL != "" {
			publisher, err := workers.NewRabbitPublisher(cfg.RabbitURL, cfg.EventsExchange)
			if err != nil {
				return err
			}
			defer publisher.Close()
			jobs = append(jobs, workers.NewOutboxDispatcher(db, publisher, cfg.OutboxBatch, cfg.OutboxInterval).Job())
		} else {
			log.Println("⚠️  RABBITMQ_URL not set, outbox events stay in payment_outbox")
		}
	}
	sched, err := services.StartScheduler(ctx, jobs...)
	if err != nil {
		return err
	}
	defer sched.Shutdown()

	app := handlers.NewApp(handlers.Services{
		Tournaments:  services.NewTournamentService(store, cache, hub, cfg.DemoMode),
		Payments:     services.NewPaymentService(orders, verifier),
		DemoMode:     cfg.DemoMode,
		MetricsToken: cfg.MetricsToken,
	})

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("Server error: %v", err)
			stop()
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s (demo mode: %t)", cfg.Port, cfg.DemoMode)

	<-ctx.Done()
	log.Println("Shutting down server...")
	// Open SSE streams end when the hub closes.
	hub.Close()
	return app.ShutdownWithTimeout(cfg.ShutdownTimeout)
}
