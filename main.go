package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/robalobadob/memory/internal/auth"
	"github.com/robalobadob/memory/internal/httpserver"
	"github.com/robalobadob/memory/internal/store"
)

const releaseVersion = "0.1.0"

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := &Config{}
	if err := newCmd(cfg, serve).ExecuteContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("memory exited")
	}
}

func setupLogging(cfg *Config) {
	if lvl, err := zerolog.ParseLevel(cfg.logLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if !cfg.production {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func serve(cmd *cobra.Command, cfg *Config) error {
	setupLogging(cfg)
	ctx := cmd.Context()

	db, err := store.OpenSQLite(cfg.dbPath)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := store.Migrate(db); err != nil {
		return err
	}

	mem := store.NewMemoryStore()

	authSvc := auth.NewService(db, auth.Config{
		Secret:     cfg.jwtSecret,
		TTL:        cfg.jwtExpires,
		CookieName: cfg.cookieName,
		Secure:     cfg.production,
	})

	srv := httpserver.New(mem, db, authSvc, httpserver.Options{
		MismatchDelay: cfg.mismatchDelay,
		DailySalt:     cfg.dailySalt,
		ClientOrigin:  cfg.clientOrigin,
		Production:    cfg.production,
	})

	go mem.Reap(ctx, cfg.sessionTimeout, srv.Expire)

	addr := net.JoinHostPort(cfg.bind, strconv.Itoa(cfg.port))
	log.Info().Str("addr", addr).Str("version", releaseVersion).Msg("starting memory server")
	return srv.Start(ctx, addr)
}
