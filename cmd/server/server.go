package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"limitbook/internal/api"
	"limitbook/internal/common"
	"limitbook/internal/config"
	"limitbook/internal/engine"
	"limitbook/internal/fanout"
	"limitbook/internal/simulator"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
	)
	defer stop()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	cfg := config.Load()

	eng := engine.New(logger, cfg.HistoryLimit, common.Equities)
	hub := fanout.NewHub()
	sim := simulator.New(eng, hub, logger)
	srv := api.NewServer(cfg, eng, hub, sim, logger)

	sim.Run(ctx)
	srv.Run(ctx)

	log.Info().Int("port", cfg.Port).Msg("limitbook server started")

	<-ctx.Done()

	if err := srv.Stop(); err != nil {
		log.Error().Err(err).Msg("api server shutdown error")
	}
	if err := sim.Stop(); err != nil {
		log.Error().Err(err).Msg("simulator shutdown error")
	}
}
