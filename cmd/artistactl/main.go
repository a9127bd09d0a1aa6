// Command artistactl administers an Artista deployment: schema migrations,
// catalog seeding and account creation.
package main

import (
	"fmt"
	"os"

	"github.com/fekuna/artista-service/config"
	"github.com/fekuna/artista-service/pkg/cache"
	"github.com/fekuna/artista-service/pkg/database/postgres"
	"github.com/fekuna/artista-service/pkg/logger"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "artistactl",
	Short: "Administer the Artista storefront",
	Long: `Administrative commands for the Artista storefront.

Connection settings are read from the environment (and .env when present),
the same way the server reads them.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(migrateCmd, seedCmd, addUserCmd)
}

func main() {
	_ = godotenv.Load()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// deps are the connections shared by the subcommands.
type deps struct {
	cfg    *config.Config
	db     *sqlx.DB
	redis  *cache.RedisClient
	logger logger.ZapLogger
}

func connect(withRedis bool) (*deps, error) {
	cfg := config.LoadEnv()
	d := &deps{
		cfg: cfg,
		logger: logger.NewZapLogger(&logger.ZapLoggerConfig{
			IsDevelopment:     true,
			Encoding:          "console",
			Level:             cfg.Logger.Level,
			DisableStacktrace: true,
		}),
	}

	db, err := postgres.NewPostgres(&postgres.Config{
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		DBName:   cfg.Postgres.DBName,
		SSLMode:  cfg.Postgres.SSLMode,
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	d.db = db

	if withRedis {
		rc, err := cache.NewRedisClient(&cache.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		d.redis = rc
	}
	return d, nil
}

func (d *deps) Close() {
	if d.redis != nil {
		d.redis.Close()
	}
	d.db.Close()
	_ = d.logger.Sync()
}
