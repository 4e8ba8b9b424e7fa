package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cicconee/cbledger/internal/notifier/config"
	"github.com/cicconee/cbledger/internal/notifier/consumer"
	"github.com/cicconee/cbledger/internal/notifier/repo"
	"github.com/cicconee/cbledger/internal/platform/db/postgres"
	"github.com/cicconee/cbledger/internal/platform/logging"
	"github.com/cicconee/cbledger/internal/platform/messaging"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		logging.New("notifier", "info").Error("config load failed", "err", err)
		return 1
	}

	log := logging.New("notifier", cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := repo.Migrate(cfg.PostgresDSN, log); err != nil {
		log.Error("notifier migrations failed", "err", err)
		return 1
	}

	startupCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := postgres.NewPool(startupCtx, cfg.PostgresDSN, log)
	if err != nil {
		log.Error("notifier postgres init failed", "err", err)
		return 1
	}
	defer pool.Close()

	reader := messaging.NewReader(messaging.ReaderOptions{
		Brokers: cfg.KafkaBrokers,
		GroupID: cfg.GroupID,
		Topic:   cfg.WithdrawalTopic,
	})

	n := consumer.New(reader, repo.New(pool), log)
	defer func() { _ = n.Close() }()

	log.Info("notifier running",
		"topic", cfg.WithdrawalTopic,
		"group", cfg.GroupID,
		"brokers", cfg.KafkaBrokers,
	)

	if err := n.Run(ctx); err != nil {
		log.Error("notifier consumer failed", "err", err)
		return 1
	}
	return 0
}
