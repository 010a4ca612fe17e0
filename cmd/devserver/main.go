// Package main starts the in-memory StyleGuard API stub used for local
// development of the client.
package main

import (
	"cmp"
	"flag"
	"fmt"
	"time"

	"net/http"

	"go.uber.org/zap"

	"github.com/styleguard/styleguard/internal/devserver"
	"github.com/styleguard/styleguard/internal/logger"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	var (
		addr     string
		tokenTTL time.Duration
		outage   string
		logLevel string
	)
	flag.StringVar(&addr, "a", "localhost:8000", "run on ip:port server")
	flag.DurationVar(&tokenTTL, "token-ttl", 30*time.Minute, "access token lifetime")
	flag.StringVar(&outage, "outage", "", "simulated engine outage: connection | timeout | general")
	flag.StringVar(&logLevel, "log-level", "Info", "log level")
	flag.Parse()

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	if err := log.Init(logLevel); err != nil {
		panic(err)
	}
	defer func() { _ = log.Log.Sync() }()
	zapLogger := log.Log

	store := devserver.NewStore(tokenTTL)
	authHandler := &devserver.AuthHandler{Store: store}
	correctionHandler := &devserver.CorrectionHandler{Store: store}
	correctionHandler.SetOutage(outage)

	router := devserver.NewRouter(authHandler, correctionHandler, zapLogger)

	zapLogger.Info("starting dev API server",
		zap.String("addr", addr),
		zap.Duration("token_ttl", tokenTTL))
	if err := http.ListenAndServe(addr, router); err != nil {
		zapLogger.Fatal("failed to start dev API server", zap.Error(err))
	}
}
