package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"paperdaily/internal/config"
	"paperdaily/internal/extract"
	"paperdaily/internal/filter"
	"paperdaily/internal/logging"
	"paperdaily/internal/publisher"
	"paperdaily/internal/runner"
	"paperdaily/internal/source"
	"paperdaily/internal/store"
	"paperdaily/internal/summarizer"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	once := flag.Bool("once", false, "run the pipeline once and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.New("info").Fatal().Err(err).Msg("failed to load config")
	}
	log := logging.New(cfg.LogLevel)

	var sources []source.Source
	for _, sc := range cfg.Sources {
		src, err := source.New(sc)
		if err != nil {
			log.Fatal().Err(err).Str("source", sc.Name).Msg("failed to build source")
		}
		sources = append(sources, src)
	}

	st, err := store.New(cfg.Store)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build store")
	}

	sum, err := summarizer.New(cfg.Summarizer)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build summarizer")
	}

	pubs, webPub, err := publisher.New(cfg.Publishers, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build publishers")
	}

	if webPub != nil {
		if err := webPub.Start(); err != nil {
			log.Fatal().Err(err).Msg("failed to start web publisher")
		}
	}

	r := runner.New(runner.Deps{
		Sources:     sources,
		Filter:      filter.New(cfg.Keywords),
		Dedup:       store.NewDeduplicator(st, cfg.Store.LookbackDays),
		Extractor:   extract.New(cfg.Extract),
		Summarizer:  sum,
		Publishers:  pubs,
		Lookback:    cfg.Lookback(),
		Workers:     cfg.Workers,
		NotifyEmpty: cfg.NotifyEmpty,
		Log:         log,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Single-run mode: run the pipeline once and exit.
	if *once {
		log.Info().Msg("running digest (once mode)")
		if _, err := r.Run(ctx); err != nil {
			log.Fatal().Err(err).Msg("run failed")
		}
		shutdownWeb(webPub, log)
		return
	}

	run := func() {
		if _, err := r.Run(ctx); err != nil {
			log.Error().Err(err).Msg("run failed")
		}
	}

	if cfg.RunOnStart {
		log.Info().Msg("running initial digest")
		run()
	}

	c := cron.New()
	if _, err := c.AddFunc(cfg.Schedule, run); err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.Schedule).Msg("failed to set up cron schedule")
	}
	c.Start()
	log.Info().Str("schedule", cfg.Schedule).Msg("scheduler started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("shutting down")

	cancel()
	c.Stop()
	shutdownWeb(webPub, log)

	log.Info().Msg("shutdown complete")
}

func shutdownWeb(webPub *publisher.WebPublisher, log zerolog.Logger) {
	if webPub == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := webPub.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("web server shutdown error")
	}
}
