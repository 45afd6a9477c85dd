package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
)

var (
	version  = "dev"
	revision = "none"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	app := &cli.Command{
		Name:  "unitts",
		Usage: "Unified TTS proxy - one OpenAI-compatible API over many TTS backends",
		Description: `unitts exposes a single OpenAI-compatible speech API in front of
heterogeneous TTS services: local GPU inference servers and cloud providers.
It routes by voice, chunks long text, stitches audio with crossfades, and
transcodes to the requested format.`,
		Version: fmt.Sprintf("%s (rev: %s)", version, revision),
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"V"},
				Usage:   "Enable verbose logging",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP server",
				Action: handleServe,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "host",
						Usage: "Listen address (overrides UNIFIED_TTS_HOST)",
					},
					&cli.IntFlag{
						Name:  "port",
						Usage: "Listen port (overrides UNIFIED_TTS_PORT)",
					},
				},
			},
			{
				Name:    "backends",
				Usage:   "Probe and list configured backends",
				Action:  handleBackends,
				Aliases: []string{"b"},
			},
			{
				Name:    "voices",
				Usage:   "List discovered voices",
				Action:  handleVoices,
				Aliases: []string{"v"},
			},
		},
		Action: handleServe,
		Before: func(ctx context.Context, c *cli.Command) error {
			if c.Bool("verbose") {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			} else {
				zerolog.SetGlobalLevel(zerolog.InfoLevel)
			}
			return nil
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal().Err(err).Msg("Failed to run application")
	}
}
