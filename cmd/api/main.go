package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"attendly/internal/attendance"
	"attendly/internal/config"
	"attendly/internal/httpapi"
	"attendly/internal/logger"
	"attendly/internal/metrics"
	"attendly/internal/store"
)

func main() {
	cfg := config.Load()

	lg, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer lg.Sync() //nolint:errcheck

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(cfg, lg); err != nil {
		lg.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg config.App, lg *zap.Logger) error {
	ctx := context.Background()

	kv, err := store.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer kv.Close()
	lg.Info("storage opened", zap.String("backend", cfg.StorageBackend))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	st := attendance.NewStore(kv, lg.Named("store"), attendance.WithMetrics(m))
	// hydrate before serving so no request can write defaults over stored data
	attendance.NewLoader(kv, st, lg.Named("loader")).Load(ctx)

	prefs, err := attendance.NewPreferences(ctx, kv, cfg.PrefersDark)
	if err != nil {
		lg.Warn("display mode unreadable, using colour-scheme preference", zap.Error(err))
	}
	lg.Info("display mode", zap.String("mode", string(prefs.Mode())))

	r := httpapi.NewRouter(httpapi.Deps{
		Store:       st,
		Prefs:       prefs,
		KV:          kv,
		Log:         lg.Named("http"),
		Gatherer:    reg,
		CORSOrigins: cfg.CORSOrigins,
	})

	srv := &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		lg.Info("starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
		lg.Info("shutting down server")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Warn("server forced shutdown", zap.Error(err))
	}
	lg.Info("server exited")
	return nil
}
