package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ndewijer/Position-Ledger-Backend/internal/api"
	"github.com/ndewijer/Position-Ledger-Backend/internal/config"
	"github.com/ndewijer/Position-Ledger-Backend/internal/database"
	"github.com/ndewijer/Position-Ledger-Backend/internal/logger"
	"github.com/ndewijer/Position-Ledger-Backend/internal/repository"
	"github.com/ndewijer/Position-Ledger-Backend/internal/service"
)

func main() {
	// Load configuration
	cfg, cfgErr := config.Load()
	log := logger.New(cfg.Environment)
	if cfgErr != nil {
		log.WithError(cfgErr).Warn("invalid configuration values replaced by defaults")
	}

	// Open database connection
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		log.WithError(err).Fatal("failed to open database")
	}
	defer db.Close()

	log.WithField("path", cfg.Database.Path).Info("connected to database")

	codec, err := repository.NewCodec(cfg.Database.EncryptionKey)
	if err != nil {
		log.WithError(err).Fatal("failed to configure document encryption")
	}

	// Create services
	ledgerRepo := repository.NewLedgerRepository(db, codec)
	ledger := service.NewLedgerService(ledgerRepo, log,
		service.WithEpsilon(cfg.Ledger.Epsilon),
		service.WithHooks(service.Hooks{
			OnLedgerChanged: func() { log.Debug("ledger changed") },
		}),
	)
	systemService := service.NewSystemService(db, map[string]bool{
		"encryption": cfg.Database.EncryptionKey != "",
		"healSweep":  cfg.Ledger.HealSchedule != "off" && cfg.Ledger.HealSchedule != "",
	})

	scheduler, err := service.NewScheduler(ledger, cfg.Ledger.HealSchedule, log)
	if err != nil {
		log.WithError(err).Fatal("failed to configure healing sweep")
	}

	// Heal once before serving so the first reads never see unrepaired data
	if report, err := ledger.HealStore(context.Background()); err != nil {
		log.WithError(err).Error("initial healing pass failed")
	} else if report.Repaired > 0 {
		log.WithField("repaired", report.Repaired).Info("initial healing pass repaired history")
	}

	// Create router
	router := api.NewRouter(systemService, ledger, cfg, log)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.WithField("addr", cfg.Server.Addr).Info("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		scheduler.Start()
		<-gctx.Done()

		log.Info("shutting down server")

		// Graceful shutdown with timeout
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		<-scheduler.Stop().Done()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.WithError(err).Fatal("server stopped with error")
	}

	log.Info("server exited")
}
