package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bobmcallan/coinfolio/internal/app"
	"github.com/bobmcallan/coinfolio/internal/common"
	"github.com/bobmcallan/coinfolio/internal/server"
)

func main() {
	configPath := flag.String("config", "", "path to coinfolio.toml (default: COINFOLIO_CONFIG, then next to the binary)")
	flag.Parse()

	a, err := app.NewApp(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize app: %v\n", err)
		os.Exit(1)
	}

	common.PrintBanner(a.Config, a.Logger)

	if err := a.StartPriceWarmer(); err != nil {
		a.Logger.Error().Err(err).Msg("Price warmer not started")
	}

	srv := server.NewServer(a)

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			a.Logger.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	a.Logger.Info().
		Str("url", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)).
		Msg("Server ready")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	common.PrintShutdownBanner(a.Logger)

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		a.Logger.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	a.Close()
	a.Logger.Info().Msg("Server stopped")
}
