package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/boazFridenberg/memory-game/assets"
	"github.com/boazFridenberg/memory-game/internal/config"
	"github.com/boazFridenberg/memory-game/internal/history"
	"github.com/boazFridenberg/memory-game/internal/httpserver"
	"github.com/boazFridenberg/memory-game/internal/palette"
	"github.com/boazFridenberg/memory-game/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if !cfg.Production() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	if err := palette.Init(); err != nil {
		log.Fatal().Err(err).Msg("failed to load palette")
	}

	dsn := cfg.DBPath
	if cfg.Storage == "memory" {
		dsn = ":memory:"
	}
	db, err := store.OpenDB(dsn)
	if err != nil {
		log.Fatal().Err(err).Str("dsn", dsn).Msg("open db")
	}
	defer db.Close()
	if err := store.Migrate(db, assets.Migrations()); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}

	kv := store.NewKV(cfg.Storage, db)
	book := history.NewBook(func(owner string) history.Repository {
		return history.NewKVRepository(kv, owner)
	})
	sessions := store.NewMemoryStore()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go sweepSessions(ctx, sessions, cfg.SessionTTL)

	srv := httpserver.New(httpserver.Deps{
		Config:   cfg,
		Sessions: sessions,
		History:  book,
		DB:       db,
	})
	addr := ":" + strconv.Itoa(cfg.Port)
	log.Info().Str("addr", addr).Str("storage", cfg.Storage).Msg("starting memory-game server")

	errc := make(chan error, 1)
	go func() { errc <- srv.Start(addr) }()
	select {
	case err := <-errc:
		log.Fatal().Err(err).Msg("server exited")
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	}
}

// sweepSessions drops sessions nobody has touched for ttl.
func sweepSessions(ctx context.Context, m *store.Memory, ttl time.Duration) {
	every := ttl / 4
	if every < time.Second {
		every = time.Second
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := m.Sweep(now, ttl); n > 0 {
				log.Debug().Int("dropped", n).Int("live", m.Len()).Msg("swept idle sessions")
			}
		}
	}
}
