// Command rivalscope starts the competitor analysis agent server. Credentials
// come from flags or their matching environment variables; the agent itself
// is initialized lazily on the first chat request.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/rivalscope/rivalscope"
	"github.com/rivalscope/rivalscope/config"
	"github.com/rivalscope/rivalscope/logging"
	"github.com/rivalscope/rivalscope/server"
)

var version = "dev"

func main() {
	cmd := &cli.Command{
		Name:    "rivalscope",
		Usage:   "AI competitive intelligence agent",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "openai-api-key",
				Usage:   "OpenAI API key",
				Sources: cli.EnvVars("OPENAI_API_KEY"),
			},
			&cli.StringFlag{
				Name:    "openrouter-api-key",
				Usage:   "OpenRouter API key",
				Sources: cli.EnvVars("OPENROUTER_API_KEY"),
			},
			&cli.StringFlag{
				Name:    "anthropic-api-key",
				Usage:   "Anthropic API key",
				Sources: cli.EnvVars("ANTHROPIC_API_KEY"),
			},
			&cli.StringFlag{
				Name:    "firecrawl-api-key",
				Usage:   "Firecrawl API key (required at first request)",
				Sources: cli.EnvVars("FIRECRAWL_API_KEY"),
			},
			&cli.StringFlag{
				Name:    "mem0-api-key",
				Usage:   "Mem0 API key for long-term memory",
				Sources: cli.EnvVars("MEM0_API_KEY"),
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "path to " + config.FileName,
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level: debug, info, warn, error",
				Value: "info",
			},
		},
		Action: run,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	level, err := logging.ParseLevel(cmd.String("log-level"))
	if err != nil {
		return err
	}
	logger := logging.New(&logging.Config{Level: level})

	// Flag values feed the same environment variables the toolkits and the
	// MCP server subprocesses read.
	exportEnv(cmd, "openai-api-key", "OPENAI_API_KEY")
	exportEnv(cmd, "openrouter-api-key", "OPENROUTER_API_KEY")
	exportEnv(cmd, "anthropic-api-key", "ANTHROPIC_API_KEY")
	exportEnv(cmd, "firecrawl-api-key", "FIRECRAWL_API_KEY")
	exportEnv(cmd, "mem0-api-key", "MEM0_API_KEY")

	var cfg *config.Config
	if path := cmd.String("config"); path != "" {
		cfg = config.LoadFrom(logger, path)
	} else {
		cfg = config.Load(logger)
	}

	logger.Info("agent.starting",
		"name", cfg.Name,
		"version", cfg.Version,
		"url", cfg.Deployment.URL,
	)
	if os.Getenv("MEM0_API_KEY") != "" {
		logger.Info("agent.memory.enabled")
	}

	rt := rivalscope.NewRuntime(cfg, func(o *rivalscope.RuntimeOptions) {
		o.Logger = logger
	})
	defer rt.Close()

	srv := server.New(cfg, rt.Handle, rt.Ready,
		func(o *server.Options) {
			o.Logger = logger
			o.IsConfigError = func(err error) bool {
				return errors.Is(err, rivalscope.ErrMissingFirecrawlKey)
			}
		},
	)

	if err := srv.ListenAndServe(ctx); err != nil {
		return err
	}

	logger.Info("agent.stopped")
	return nil
}

func exportEnv(cmd *cli.Command, flag, key string) {
	if v := cmd.String(flag); v != "" {
		os.Setenv(key, v)
	}
}
