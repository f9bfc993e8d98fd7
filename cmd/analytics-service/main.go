package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/careconnect-ai/insights/pkg/analytics"
	"github.com/careconnect-ai/insights/pkg/analytics/chart"
	"github.com/careconnect-ai/insights/pkg/codesearch"
	"github.com/careconnect-ai/insights/pkg/common/config"
	"github.com/careconnect-ai/insights/pkg/common/database"
	"github.com/careconnect-ai/insights/pkg/common/logger"
	"github.com/careconnect-ai/insights/pkg/gateway/middleware"
	"github.com/careconnect-ai/insights/pkg/gateway/routes"
	"github.com/careconnect-ai/insights/pkg/groups"
	"github.com/careconnect-ai/insights/pkg/notify"
	"github.com/careconnect-ai/insights/pkg/patients"
	"github.com/careconnect-ai/insights/pkg/push"
	"github.com/careconnect-ai/insights/pkg/remote"
	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"
)

func main() {
	logger.Init()
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	layout, err := chart.LoadLayout(cfg.ChartLayoutPath)
	if err != nil {
		logger.Log.WithError(err).Warn("chart layout not loaded, using default layout")
	}
	board := chart.NewBoard(layout)

	hub := notify.NewHub()
	animator := analytics.NewAnimator(
		func(m analytics.Metrics) { hub.Publish(notify.KindMetrics, m) },
		analytics.WithTiming(cfg.AnimationDuration, cfg.AnimationFrames),
	)

	client := remote.NewClient(cfg.RemoteBaseURL, remote.NewHTTPClient(ctx, cfg))

	opts := []analytics.ControllerOption{
		analytics.WithNotifier(hub),
		analytics.WithRenderer(analytics.RenderFunc(func(version uint64, ds analytics.Dataset) {
			board.Render(version, ds)
			// Viewers re-fetch the chart images when they see a new version.
			hub.Publish(notify.KindRefresh, map[string]uint64{"version": version})
		})),
		analytics.WithAnimator(animator),
		analytics.WithRefreshInterval(cfg.RefreshInterval),
		analytics.WithPushChannel(cfg.PushChannel),
	}
	subscriber, err := push.NewSubscriber(cfg)
	if err != nil {
		logger.Log.WithError(err).Fatal("Invalid push transport")
	}
	if subscriber != nil {
		opts = append(opts, analytics.WithSubscriber(subscriber))
	} else {
		logger.Log.Info("Push channel disabled, polling only")
	}
	controller := analytics.NewController(analytics.NewRemoteSource(client), opts...)

	roster := patients.NewService(patients.NewRemoteSource(client), hub)
	careGroups := groups.NewService(groups.NewRemoteSource(client), hub)
	searcher := codesearch.NewClient(ctx, cfg.GitHubAPIURL, cfg.GitHubToken, cfg.RemoteTimeout)

	// Setup router
	router := mux.NewRouter()
	router.Use(middleware.Logging)
	router.Use(middleware.Recovery)
	router.Use(middleware.CORS)
	router.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
	router.Use(middleware.BodyLimit(cfg.MaxRequestBody))

	routes.RegisterOpsRoutes(router)
	router.HandleFunc("/ws", hub.ServeWS).Methods(http.MethodGet)

	apiRouter := router.PathPrefix("/api/v1").Subrouter()
	routes.RegisterAnalyticsRoutes(apiRouter, controller, board)
	routes.RegisterPatientRoutes(apiRouter, roster)
	routes.RegisterGroupRoutes(apiRouter, careGroups)
	routes.RegisterCodeSearchRoutes(apiRouter, searcher)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		if err := controller.Start(gctx); err != nil {
			return fmt.Errorf("starting refresh controller: %w", err)
		}
		if err := roster.Load(gctx); err != nil {
			logger.Log.WithError(err).Warn("Initial patient load failed")
		}
		<-gctx.Done()
		controller.Stop()
		return nil
	})
	g.Go(func() error {
		logger.Log.WithFields(map[string]interface{}{
			"host":      cfg.ServerHost,
			"port":      cfg.ServerPort,
			"transport": cfg.PushTransport,
		}).Info("Analytics service started")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Log.Info("Shutting down analytics service...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Log.WithError(err).Error("Server forced to shutdown")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Log.WithError(err).Error("Analytics service exited with error")
	}
	if cfg.PushTransport == config.PushTransportRedis {
		if err := database.CloseRedis(); err != nil {
			logger.Log.WithError(err).Warn("Failed to close Redis client")
		}
	}

	logger.Log.Info("Analytics service stopped")
}
