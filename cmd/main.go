package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"voice-consensus-engine/internal/app"
	"voice-consensus-engine/internal/config"
	"voice-consensus-engine/internal/consensus"
	"voice-consensus-engine/internal/events"
	"voice-consensus-engine/internal/observability"
	"voice-consensus-engine/internal/service/recompute"
	"voice-consensus-engine/internal/store"
)

func main() {
	cfg := config.Load()

	application := app.New(cfg)
	if err := application.Start(); err != nil {
		log.Fatal().Err(err).Msg("application start failed")
	}
	defer application.Shutdown()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	startCtx, startCancel := context.WithTimeout(ctx, 10*time.Second)
	db, err := store.New(startCtx, cfg.Postgres.URL)
	startCancel()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer db.Close()

	obsServer := observability.NewServer(cfg.Observability.HTTPAddr,
		observability.ReadyCheck{Name: "postgres", Check: db.Ping},
	)
	obsServer.Start()

	engine, err := consensus.New(cfg.Params(), db)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid consensus parameters")
	}

	publisher := events.New(&events.Config{
		Enabled:        cfg.Kafka.Enabled,
		Brokers:        cfg.Kafka.Brokers,
		TopicConsensus: cfg.Kafka.TopicConsensus,
		TopicReview:    cfg.Kafka.TopicReview,
		Principal:      cfg.Kafka.Principal,
		DialTimeout:    cfg.Kafka.DialTimeout,
	})
	defer publisher.Close()

	svc := recompute.NewService(engine, db, publisher)
	dispatcher := recompute.NewDispatcher(svc, cfg.Observability.Workers)

	g, runCtx := errgroup.WithContext(ctx)
	g.Go(func() error { return dispatcher.Run(runCtx) })

	if cfg.Kafka.Enabled && len(cfg.Kafka.Brokers) > 0 {
		consumer := events.NewConsumer(events.ConsumerConfig{
			Brokers:     cfg.Kafka.Brokers,
			GroupID:     cfg.Kafka.GroupID,
			Topic:       cfg.Kafka.TopicTrigger,
			DialTimeout: cfg.Kafka.DialTimeout,
		}, dispatcher.Enqueue)
		defer consumer.Close()

		g.Go(func() error { return consumer.Run(runCtx) })
	} else {
		log.Warn().Msg("Kafka disabled: no trigger source, serving health and metrics only")
	}

	log.Info().
		Int("workers", cfg.Observability.Workers).
		Str("observabilityAddr", cfg.Observability.HTTPAddr).
		Msg("Voice consensus engine started")

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("service loop exited with error")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := obsServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("observability server shutdown failed")
	}
}
