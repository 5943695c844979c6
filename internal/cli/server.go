package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/broadcast"
	"live-quiz-service/internal/config"
	"live-quiz-service/internal/infra/memory"
	pgfixtures "live-quiz-service/internal/infra/postgres"
	redisstore "live-quiz-service/internal/infra/redis"
	transport "live-quiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	store := buildStore(redisClient, config.TTLDuration(cfg.Questions.CacheTTL, 10*time.Minute))

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	hub := broadcast.NewHub()
	service := app.NewService(store, hub, cfg.Game)

	if pool != nil {
		if err := seedFixtures(ctx, pgfixtures.NewFixtureLoader(pool), store); err != nil {
			log.Printf("fixture seed failed: %v", err)
		}
	}

	// Clears any open-question deadline a dead loop left behind. Skipped on
	// store failure and retried at next startup.
	if err := service.RecoverSessions(ctx); err != nil {
		log.Printf("session recovery skipped: %v", err)
	}

	wsHandler := transport.NewWSHandler(service, hub)
	adminHandler := transport.NewAdminHandler(service, cfg.Admin.Passcode)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	adminHandler.Register(mux)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting live quiz service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// buildStore assembles the entity stores: Redis-backed when configured,
// in-memory otherwise, with the question list cached either way.
func buildStore(redisClient *redis.Client, cacheTTL time.Duration) app.Store {
	if redisClient != nil {
		return app.Store{
			Sessions:     redisstore.NewSessionStore(redisClient),
			Questions:    memory.NewQuestionCache(redisstore.NewQuestionStore(redisClient), cacheTTL),
			Participants: redisstore.NewParticipantStore(redisClient),
			Responses:    redisstore.NewResponseStore(redisClient),
		}
	}
	return app.Store{
		Sessions:     memory.NewSessionStore(),
		Questions:    memory.NewQuestionCache(memory.NewQuestionStore(), cacheTTL),
		Participants: memory.NewParticipantStore(),
		Responses:    memory.NewResponseStore(),
	}
}

// seedFixtures copies authored quizzes from Postgres into the live store.
// Codes that already exist are left alone.
func seedFixtures(ctx context.Context, loader *pgfixtures.FixtureLoader, store app.Store) error {
	codes, err := loader.ListCodes(ctx)
	if err != nil {
		return err
	}
	for _, code := range codes {
		if _, err := store.Sessions.Get(ctx, code); err == nil {
			continue
		}
		fixture, err := loader.LoadFixture(ctx, code)
		if err != nil {
			return err
		}
		if err := store.Sessions.Create(ctx, &fixture.Session); err != nil {
			return err
		}
		for i := range fixture.Questions {
			if err := store.Questions.Create(ctx, &fixture.Questions[i]); err != nil {
				return err
			}
		}
		log.Printf("seeded session %s with %d questions", code, len(fixture.Questions))
	}
	return nil
}
