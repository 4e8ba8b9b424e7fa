package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cicconee/cbledger/internal/ledger/api"
	"github.com/cicconee/cbledger/internal/ledger/app"
	"github.com/cicconee/cbledger/internal/ledger/config"
	"github.com/cicconee/cbledger/internal/ledger/repo"
	"github.com/cicconee/cbledger/internal/ledger/sink"
	"github.com/cicconee/cbledger/internal/platform/db/postgres"
	"github.com/cicconee/cbledger/internal/platform/grpcserver"
	"github.com/cicconee/cbledger/internal/platform/logging"
	"github.com/cicconee/cbledger/internal/platform/messaging"
	"google.golang.org/grpc"
)

type store interface {
	app.Store
	api.Pinger
}

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		logging.New("ledger", "info").Error("config load failed", "err", err)
		return 1
	}

	log := logging.New("ledger", cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	startupCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	st, closeStore, err := openStore(startupCtx, cfg, log)
	if err != nil {
		log.Error("store init failed", "store", cfg.Store, "err", err)
		return 1
	}
	defer closeStore()

	writer := messaging.NewWriter(messaging.WriterOptions{
		Brokers:      cfg.KafkaBrokers,
		Topic:        cfg.WithdrawalTopic,
		WriteTimeout: cfg.PublishTimeout,
	}, log)
	defer func() { _ = writer.Close() }()

	svc := app.NewService(st, sink.NewKafka(writer), log, app.Options{
		MaxAttempts:    cfg.DebitMaxAttempts,
		PublishTimeout: cfg.PublishTimeout,
	})

	errCh := make(chan error, 2)

	var httpSrv *http.Server
	if cfg.HTTPAddr != "" {
		httpSrv = &http.Server{
			Addr: cfg.HTTPAddr,
			Handler: api.NewRouter(svc, st, log, api.HTTPOptions{
				RequestTimeout: cfg.RequestTimeout,
				DevRoutes:      cfg.IsDev(),
			}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Info("http server starting", "addr", cfg.HTTPAddr)
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()
	}

	var grpcSrv *grpcserver.Server
	if cfg.GRPCAddr != "" {
		grpcSrv, err = grpcserver.New(
			grpcserver.Options{
				Addr:                cfg.GRPCAddr,
				GracefulStopTimeout: cfg.ShutdownTimeout,
			},
			log,
			func(gs *grpc.Server) {
				api.Register(gs, svc, log)
			},
		)
		if err != nil {
			log.Error("grpc server init failed", "err", err)
			return 1
		}
		go func() {
			errCh <- grpcSrv.Serve(log)
		}()
	}

	log.Info("ledger running",
		"env", cfg.Env,
		"store", cfg.Store,
		"http", cfg.HTTPAddr,
		"grpc", cfg.GRPCAddr,
		"topic", cfg.WithdrawalTopic,
	)

	exit := 0
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		log.Error("server exited", "err", err)
		exit = 1
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelShutdown()

	if httpSrv != nil {
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Warn("http shutdown incomplete", "err", err)
		}
	}
	if grpcSrv != nil {
		grpcSrv.GracefulStop(log)
	}

	return exit
}

func openStore(ctx context.Context, cfg config.LedgerConfig, log *logging.Logger) (store, func(), error) {
	switch cfg.Store {
	case config.StoreSQLite:
		s, err := repo.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		log.Info("sqlite store opened", "path", cfg.SQLitePath)
		return s, func() { _ = s.Close() }, nil

	default:
		if cfg.Migrate {
			if err := repo.MigratePostgres(cfg.PostgresDSN, log); err != nil {
				return nil, nil, err
			}
		}
		pool, err := postgres.NewPool(ctx, cfg.PostgresDSN, log)
		if err != nil {
			return nil, nil, err
		}
		return repo.NewPostgres(pool), pool.Close, nil
	}
}
