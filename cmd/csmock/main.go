package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/cslink/internal/logging"
	"github.com/danmuck/cslink/internal/mockinstrument"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "csmock: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to TOML config")
	addr := flag.String("addr", "", "listen address, overrides config")
	flag.Parse()

	logging.ConfigureRuntime()

	cfg := defaultMockConfig()
	if *configPath != "" {
		loaded, err := loadMockConfig(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if *addr != "" {
		cfg.Addr = *addr
	}

	srv, err := mockinstrument.Listen(cfg.Addr, responderFor(cfg))
	if err != nil {
		return err
	}
	log.Info().Str("addr", srv.Addr()).Msg("csmock listening")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info().Msg("shutting down")
	return srv.Close()
}

func responderFor(cfg mockConfig) mockinstrument.Responder {
	if cfg.Rectangle == nil {
		return mockinstrument.EchoResponder(cfg.X, cfg.Y)
	}
	rect := cfg.Rectangle
	payload := fmt.Appendf(nil,
		"<?xml version=\"1.0\" encoding=\"UTF-8\" ?>\n<CS_RMC version=1>\n"+
			"<measurement>\n<rectangle>\n"+
			"<color red=\"%d\" green=\"%d\" blue=\"%d\"/>\n"+
			"<geometry cx=\"%g\" cy=\"%g\"/>\n"+
			"</rectangle>\n</measurement>\n</CS_RMC>",
		rect.Red, rect.Green, rect.Blue, rect.Width, rect.Height)
	return mockinstrument.StaticResponder(payload)
}
