package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/floorlink/backend/internal/command"
	"github.com/floorlink/backend/internal/config"
	"github.com/floorlink/backend/internal/domain"
	"github.com/floorlink/backend/internal/logging"
	"github.com/floorlink/backend/internal/metrics"
	"github.com/floorlink/backend/internal/notify"
	"github.com/floorlink/backend/internal/service"
	"github.com/floorlink/backend/internal/session"
	"github.com/floorlink/backend/internal/sim"
	"github.com/floorlink/backend/internal/store"
	"github.com/floorlink/backend/internal/subscription"
	"github.com/floorlink/backend/internal/ws"
)

func main() {
	simMode := flag.Bool("sim", false, "Seed demo data and generate floor activity")
	configPath := flag.String("config", "config.yaml", "Path to config file")
	port := flag.Int("port", 0, "Override server port")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Fatal().Err(err).Msg("failed to load config")
		}
		cfg = config.Default()
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	if err := logging.Init(cfg.Log); err != nil {
		log.Fatal().Err(err).Msg("failed to init logging")
	}

	promRegistry := prometheus.NewRegistry()
	m := metrics.New(promRegistry)

	classes := domain.DefaultClasses()
	memory := store.NewMemory(classes)

	locator := service.NewLocator()
	locator.Register("route", service.Routes{})
	locator.Register("lighting", service.Lighting{})

	registry := session.NewRegistry()
	index := subscription.NewIndex()
	registry.SetCloseHook(index.RemoveSession)

	notifier := notify.New(registry, index, memory, m)
	memory.SetCommitHook(notifier.OnCommit)

	dispatcher := command.NewDispatcher(&command.Deps{
		Classes:     classes,
		Provider:    memory,
		Directory:   memory,
		Index:       index,
		Services:    locator,
		AttachDelay: cfg.Auth.AttachFailureDelay,
		FilterLimit: cfg.Notifier.MaxFilterResults,
	}, m)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *simMode {
		log.Info().Msg("starting in sim mode")
		gen := sim.NewGenerator(memory, cfg.Sim.Interval)
		gen.Seed()
		gen.Start(ctx)
	}

	server := ws.NewServer(cfg.Server, registry, index, dispatcher, m, promRegistry)
	mux := http.NewServeMux()
	server.SetupRoutes(mux)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info().Msg("shutting down")
		cancel()
		os.Exit(0)
	}()

	if err := ws.ListenAndServe(cfg.Server.Host, cfg.Server.Port, mux); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}
