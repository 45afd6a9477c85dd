package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/unitts/unitts/internal/audio"
	"github.com/unitts/unitts/internal/backend"
	"github.com/unitts/unitts/internal/server"
	"github.com/unitts/unitts/internal/voice"
)

// buildRouter registers every backend the environment configures. Local GPU
// services are always registered (availability is probed per request); cloud
// providers only when their credentials are present. Registration order is
// the router's fallback priority.
func buildRouter(ctx context.Context) *backend.Router {
	backends := []backend.Backend{
		backend.NewOpenAudio(""),
		backend.NewVoxCPM(""),
		backend.NewKyutai(""),
		backend.NewVibeVoice(""),
	}

	if os.Getenv("ELEVENLABS_API_KEY") != "" {
		backends = append(backends, backend.NewElevenLabs(""))
		log.Debug().Msg("elevenlabs backend registered")
	}
	if region := os.Getenv("AWS_REGION"); region != "" {
		if p, err := backend.NewPolly(ctx, region); err == nil {
			backends = append(backends, p)
			log.Debug().Msg("polly backend registered")
		} else {
			log.Warn().Err(err).Msg("skipping polly backend")
		}
	}
	if project := os.Getenv("GOOGLE_CLOUD_PROJECT"); project != "" {
		if g, err := backend.NewGCloud(ctx, project); err == nil {
			backends = append(backends, g)
			log.Debug().Msg("gcloud backend registered")
		} else {
			log.Warn().Err(err).Msg("skipping gcloud backend")
		}
	}

	return backend.NewRouter(backends...)
}

func handleServe(ctx context.Context, c *cli.Command) error {
	cfg := server.ConfigFromEnv()
	if host := c.String("host"); host != "" {
		cfg.Host = host
	}
	if port := c.Int("port"); port != 0 {
		cfg.Port = int(port)
	}

	router := buildRouter(ctx)
	voices := voice.NewManager("")
	prefs := voice.NewPrefs("")

	srv := server.New(cfg, router, voices, prefs, audio.NewTranscoder())
	return srv.ListenAndServe(ctx)
}

func handleBackends(ctx context.Context, c *cli.Command) error {
	router := buildRouter(ctx)

	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()

	for _, status := range router.List(ctx) {
		state := red("down")
		if status.Available {
			state = green("up")
		}
		name := status.Name
		if status.Active {
			name = bold(name + " *")
		}

		if status.Port > 0 {
			fmt.Printf("%-16s %s (port %d, ~%dGB VRAM)\n", name, state, status.Port, status.CostGB)
		} else {
			fmt.Printf("%-16s %s (cloud)\n", name, state)
		}
	}
	return nil
}

func handleVoices(ctx context.Context, c *cli.Command) error {
	voices := voice.NewManager("")

	names := voices.Names()
	if len(names) == 0 {
		fmt.Printf("No voices found in %s\n", voices.Dir())
		return nil
	}

	for _, name := range names {
		if v, ok := voices.Get(name); ok {
			fmt.Println(v.Describe())
		}
	}
	return nil
}
