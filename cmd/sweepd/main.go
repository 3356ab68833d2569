package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fieldsim/sweep-core/internal/results"
	"github.com/fieldsim/sweep-core/internal/sweepd"
	"github.com/fieldsim/sweep-core/pkg/logger"
)

func main() {
	var httpAddr string
	var logLevel string
	var archivePath string

	flag.StringVar(&httpAddr, "http-addr", ":8080", "HTTP listen address")
	flag.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flag.StringVar(&archivePath, "archive", "", "path to the SQLite run archive (empty disables archiving)")
	flag.Parse()

	logger.SetDefault(logger.NewText(logLevel, os.Stdout))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := sweepd.NewRunStore()
	executor := sweepd.NewRunExecutor(store)
	executor.SetNotifier(sweepd.NewNotifier())

	server := sweepd.NewHTTPServer(store, executor)

	if archivePath != "" {
		archive, err := results.Open(archivePath)
		if err != nil {
			logger.Error("failed to open run archive", "path", archivePath, "error", err)
			os.Exit(1)
		}
		defer archive.Close()
		executor.SetArchive(archive)
		server.SetArchive(archive)
		logger.Info("run archive enabled", "path", archivePath)
	}

	httpSrv := &http.Server{
		Addr:              httpAddr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		logger.Info("HTTP server listening", "addr", httpAddr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown requested")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", "error", err)
	}
}
