package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AngelCh415/funnel_go/internal/analysis"
	"github.com/AngelCh415/funnel_go/internal/config"
	"github.com/AngelCh415/funnel_go/internal/httpx"
	"github.com/AngelCh415/funnel_go/internal/ingest"
	"github.com/AngelCh415/funnel_go/internal/metrics"
	"github.com/AngelCh415/funnel_go/internal/store"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("config error", slog.String("err", err.Error()))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("store error", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer st.Close()

	an, err := newAnalyzer(ctx, cfg, logger)
	if err != nil {
		logger.Error("analyzer error", slog.String("err", err.Error()))
		os.Exit(1)
	}

	cl := ingest.NewHTTPClient(cfg.HTTPTimeout)
	bl := ingest.NewBaseline(cl, logger, cfg.AdsURL, cfg.CrmURL)
	prom := metrics.NewCollectors()
	mSvc := metrics.NewService(st, an, bl, prom, logger)

	r := httpx.NewRouter(logger, mSvc, prom, cfg.CORSOrigins)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("starting server",
		slog.String("port", cfg.Port),
		slog.String("store", cfg.StoreDriver),
		slog.String("analyzer", cfg.Analyzer))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", slog.String("err", err.Error()))
		os.Exit(1)
	}
}

func openStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	if cfg.StoreDriver != "sqlite" {
		return store.NewMemoryStore(), nil
	}
	st, err := store.NewSQLite(cfg.StoreDSN)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

// sin API key se usa el análisis estático
func newAnalyzer(ctx context.Context, cfg config.Config, log *slog.Logger) (analysis.Analyzer, error) {
	if cfg.Analyzer == "static" {
		return analysis.Static{}, nil
	}
	if cfg.GeminiAPIKey == "" {
		log.Warn("GEMINI_API_KEY not set, using static analysis")
		return analysis.Static{}, nil
	}
	return analysis.NewGemini(ctx, analysis.GeminiConfig{
		APIKey:  cfg.GeminiAPIKey,
		Model:   cfg.GeminiModel,
		Timeout: cfg.AnalysisTimeout,
		Retries: cfg.AnalysisRetries,
		RPS:     cfg.AnalysisRPS,
	}, log)
}
