// Command migrate brings the database schema up to date. Run it once per
// deployment, before starting the server.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"todoapi/migrations"
	"todoapi/utils"

	"github.com/charmbracelet/log"
)

func main() {
	cfg, err := utils.LoadConfig()
	if err != nil {
		log.Fatal("load config", "err", err)
	}
	utils.SetupLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	if err := cfg.RequireDatabase(); err != nil {
		log.Fatal("invalid config", "err", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := utils.OpenDB(ctx, cfg.DatabaseURL, 2, 0)
	if err != nil {
		log.Fatal("failed to connect to database", "err", err)
	}
	defer dbPool.Close()

	applied, err := utils.Migrate(ctx, dbPool, migrations.FS)
	if err != nil {
		dbPool.Close()
		log.Fatal("migration failed", "err", err)
	}
	if len(applied) == 0 {
		log.Info("schema up to date")
		return
	}
	log.Info("migrations complete", "applied", len(applied))
}
