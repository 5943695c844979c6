package cli

import (
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"live-quiz-service/internal/config"
	pgfixtures "live-quiz-service/internal/infra/postgres"
)

// NewSeedCmd copies quiz fixtures from Postgres into the configured live
// store without starting the server. Only useful with a Redis store; the
// in-memory store cannot outlive the process.
func NewSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Seed quiz fixtures from Postgres into the live store",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured")
			}
			if cfg.Redis.Addr == "" {
				return fmt.Errorf("seed requires a redis store; configure redis.addr")
			}

			pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
			if err != nil {
				return err
			}
			defer pool.Close()

			redisClient := redis.NewClient(&redis.Options{
				Addr:     cfg.Redis.Addr,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			})
			defer redisClient.Close()

			store := buildStore(redisClient, config.TTLDuration(cfg.Questions.CacheTTL, 10*time.Minute))
			return seedFixtures(ctx, pgfixtures.NewFixtureLoader(pool), store)
		},
	}
}
