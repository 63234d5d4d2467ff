package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/cslink/internal/config"
	"github.com/danmuck/cslink/internal/logging"
	"github.com/danmuck/cslink/internal/protocol/session"
	"github.com/danmuck/cslink/internal/statusapi"
	"github.com/danmuck/cslink/internal/xmltrace"
)

const heartbeatInterval = 5 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "cslinkd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to TOML config")
	remote := flag.String("remote", "", "instrument address, overrides config")
	flag.Parse()

	logging.ConfigureRuntime()

	cfg := config.DefaultClientConfig()
	if *configPath != "" {
		loaded, err := config.LoadClientConfig(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if *remote != "" {
		cfg.Remote = *remote
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sessCfg := cfg.SessionConfig()
	sessCfg.Trace = xmltrace.NewWriter(xmltrace.ResolvePath(cfg.XMLLogPath))

	link, err := session.SpawnContext(ctx, cfg.Remote, sessCfg)
	if err != nil {
		return err
	}
	defer link.Close()
	link.SetRequestedColor(cfg.RequestedColor())

	api := statusapi.New(cfg.StatusAddr, link, cfg.CorsOrigins)
	apiErr := make(chan error, 1)
	go func() {
		apiErr <- api.Run(ctx)
	}()
	log.Info().
		Str("remote", cfg.Remote).
		Str("status_addr", cfg.StatusAddr).
		Msg("cslinkd running")

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("shutting down")
			return <-apiErr
		case err := <-apiErr:
			return err
		case <-ticker.C:
			snap := link.Read()
			ev := log.Info().
				Bool("connected", snap.Connected).
				Int("shapes", len(snap.Shapes)).
				Uint16("red", snap.Measured.R).
				Uint16("green", snap.Measured.G).
				Uint16("blue", snap.Measured.B)
			if snap.Fault != nil {
				ev = ev.AnErr("fault", snap.Fault)
			}
			ev.Msg("link heartbeat")
		}
	}
}
