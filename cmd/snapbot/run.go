package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/user/snapbot/internal/adapter/chromedp_renderer"
	"github.com/user/snapbot/internal/adapter/imgur"
	"github.com/user/snapbot/internal/adapter/reddit"
	"github.com/user/snapbot/internal/delivery/http/handler"
	"github.com/user/snapbot/internal/delivery/http/router"
	"github.com/user/snapbot/internal/repository"
	"github.com/user/snapbot/internal/usecase"
	"github.com/user/snapbot/pkg/config"
	"github.com/user/snapbot/pkg/logger"
	"github.com/user/snapbot/pkg/metrics"
	"github.com/user/snapbot/pkg/proxy"
)

const shutdownTimeout = 10 * time.Second

func runBot(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("could not load config: %w", err)
	}

	// --- Logger ---
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if err := reddit.ValidateSearch(cfg.SearchSort, cfg.SearchWindow); err != nil {
		log.Error("invalid search parameters", zap.Error(err))
		return err
	}

	// --- Session state ---
	store, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Error("could not open session store", zap.String("backend", cfg.StateBackend), zap.Error(err))
		return err
	}
	defer store.Close()

	// Starting without the processed set would comment on old links again.
	state, err := store.Load(ctx)
	if err != nil {
		log.Error("could not load session state", zap.Error(err))
		return err
	}
	log.Info("session state loaded", zap.Int("processed", state.ProcessedCount()))

	creds, err := resolveCredentials(cfg, state, newPrompter())
	if err != nil {
		log.Error("could not collect credentials", zap.Error(err))
		return err
	}
	dryRun := creds.DryRun()
	if dryRun {
		log.Warn("no site credentials, running in dry-run mode: pages are rendered but never uploaded or commented")
	} else if creds.remember(state) {
		if err := store.Save(ctx, state); err != nil {
			log.Error("could not persist credentials", zap.Error(err))
			return err
		}
	}

	// --- Metrics ---
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)
	m.ProcessedURLs.Set(float64(state.ProcessedCount()))

	// --- Collaborators ---
	proxies := proxy.NewManager(cfg.ProxyList(), cfg.UserAgent)

	renderer := chromedp_renderer.NewChromedpRenderer(chromedp_renderer.Options{
		ViewportWidth:  cfg.ViewportWidth,
		ViewportHeight: cfg.ViewportHeight,
	}, proxies, log)
	defer renderer.Close()

	site, err := reddit.NewClient(ctx, reddit.Options{
		BaseURL:   cfg.RedditBaseURL,
		Username:  creds.Username,
		Password:  creds.Password,
		UserAgent: proxies.GetUserAgent(),
		Proxy:     proxies.GetProxy(),
	}, log)
	if err != nil {
		log.Error("could not build site client", zap.Error(err))
		return err
	}

	var (
		host repository.ImageHost
		sink repository.CommentSink
	)
	if !dryRun {
		host = imgur.NewUploader(cfg.ImgurUploadURL, creds.ImageHostKey, proxies.GetUserAgent(), log)
		sink = site
	}

	tracker := usecase.NewTracker(state)
	orchestrator := usecase.NewOrchestrator(site, renderer, host, sink, store, tracker, usecase.Options{
		Query:           cfg.SearchQuery,
		TargetDomain:    cfg.TargetDomain,
		Sort:            cfg.SearchSort,
		Window:          cfg.SearchWindow,
		Interval:        cfg.PollIntervalDuration(),
		RenderTimeout:   cfg.RenderTimeoutDuration(),
		CommentTemplate: cfg.CommentTemplate,
		SiteBaseURL:     site.BaseURL(),
		DryRun:          dryRun,
	}, m, log)

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return orchestrator.Run(gctx)
	})

	if cfg.HTTPAddr != "" {
		server := &http.Server{
			Addr:         cfg.HTTPAddr,
			Handler:      router.New(handler.NewHandler(tracker, dryRun, log), m, reg, log),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  120 * time.Second,
		}
		g.Go(func() error {
			log.Info("starting operator server", zap.String("addr", cfg.HTTPAddr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("operator server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	log.Info("snapbot started",
		zap.String("query", cfg.SearchQuery),
		zap.String("target_domain", cfg.TargetDomain),
		zap.Bool("dry_run", dryRun),
	)

	if err := g.Wait(); err != nil {
		log.Error("snapbot stopped with error", zap.Error(err))
		return err
	}
	log.Info("snapbot exiting")
	return nil
}
