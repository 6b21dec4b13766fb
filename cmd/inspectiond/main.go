package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/inspection-reports/internal/common"
	"github.com/joseph-ayodele/inspection-reports/internal/export"
	"github.com/joseph-ayodele/inspection-reports/internal/layout"
	"github.com/joseph-ayodele/inspection-reports/internal/photos"
	repo "github.com/joseph-ayodele/inspection-reports/internal/repository"
	"github.com/joseph-ayodele/inspection-reports/internal/server"
	"github.com/joseph-ayodele/inspection-reports/internal/session"
	"github.com/joseph-ayodele/inspection-reports/internal/sites"
)

func main() {
	var configFile string
	cmd := &cobra.Command{
		Use:          "inspectiond",
		Short:        "Serve the inspection report wizard (HTTP) and render endpoint (gRPC)",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(*cobra.Command, []string) error {
			if configFile == "" {
				configFile = os.Getenv("INSPECTION_CONFIG")
			}
			return run(configFile)
		},
	}
	cmd.Flags().StringVar(&configFile, "config", "", "config file (yaml, toml or json); INSPECTION_CONFIG also works")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(configFile string) error {
	cfg, err := common.LoadConfig(configFile)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return err
	}
	logger := common.NewLogger(cfg.Log, os.Stdout)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	catalog, err := sites.Load(cfg.Sites.File, cfg.Sites.Column, logger)
	if err != nil {
		logger.Error("failed to load sites", "file", cfg.Sites.File, "error", err)
		return err
	}

	db, err := repo.Open(ctx, repo.Config{
		DSN:             cfg.Session.DBURL,
		MaxConns:        10,
		MinConns:        1,
		MaxConnLifetime: 30 * time.Minute,
		MaxConnIdleTime: 5 * time.Minute,
		DialTimeout:     3 * time.Second,
	}, logger)
	if err != nil {
		logger.Error("failed to open session database", "error", err)
		return err
	}
	defer db.Close(logger)

	if err := db.HealthCheck(ctx, 5*time.Second); err != nil {
		logger.Error("failed to ping session database", "error", err)
		return err
	}
	sessionsRepo := repo.NewSessionRepository(db, logger)
	if err := sessionsRepo.Migrate(ctx); err != nil {
		logger.Error("failed to migrate session table", "error", err)
		return err
	}

	manager := session.NewManager(sessionsRepo, session.ManagerConfig{
		CookieSecure: cfg.Session.CookieSecure,
		TTL:          cfg.Session.TTL,
	}, logger)
	sweeperDone := manager.StartSweeper(ctx, cfg.Session.SweepInterval)

	layoutCfg := layout.DefaultConfig()
	layoutCfg.Labels = layout.LabelsFor(cfg.Report.Lang)
	engine := layout.NewEngine(layoutCfg, logger)

	exporter := export.NewService(engine, export.Config{
		From:       cfg.Export.From,
		Recipients: cfg.Export.Recipients,
		Subject:    cfg.Export.Subject,
	}, logger)

	maxPhoto := int64(cfg.Photos.MaxMB) << 20
	normalizer := photos.NewNormalizer(photos.Config{
		HeicConverter:    cfg.Photos.HeicConverter,
		ArtifactCacheDir: cfg.Photos.ArtifactCacheDir,
		MaxBytes:         maxPhoto,
	}, logger)

	wizard := server.NewWizard(manager, catalog, normalizer, exporter, server.WizardConfig{
		MaxUploadBytes: int64(cfg.Server.MaxUploadMB) << 20,
	}, logger)
	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           wizard.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	grpcServer, healthServer := server.NewGRPCServer(server.NewReportService(exporter, catalog, logger), logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("inspection-reports http listening", "addr", cfg.Server.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if cfg.Server.GRPCAddr != "" {
		g.Go(func() error {
			lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
			if err != nil {
				return err
			}
			logger.Info("inspection-reports grpc listening", "addr", cfg.Server.GRPCAddr)
			return grpcServer.Serve(lis)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		healthServer.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		err := httpServer.Shutdown(shutdownCtx)
		grpcServer.GracefulStop()
		return err
	})

	err = g.Wait()
	stop()
	<-sweeperDone
	if err != nil {
		logger.Error("server error", "error", err)
		return err
	}
	logger.Info("stopped")
	return nil
}
