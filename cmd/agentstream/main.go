// Agentstream serves LLM agent turns over HTTP, streaming each turn to the
// client in the protocol it speaks: the line-framed data stream protocol on
// /api/chat or OpenAI-compatible SSE chat completions on /v1/chat/completions.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/corvid-labs/agentstream/agent"
	"github.com/corvid-labs/agentstream/config"
	"github.com/corvid-labs/agentstream/llmwire"
	"github.com/corvid-labs/agentstream/rag"
	"github.com/corvid-labs/agentstream/server"
	"github.com/corvid-labs/agentstream/session"
	"github.com/corvid-labs/agentstream/tools"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "agentstream",
		Short:         "Streaming LLM agent server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd())
	return root
}

func newServeCmd() *cobra.Command {
	var (
		configPath string
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			log := logrus.New()
			log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
			if verbose {
				log.SetLevel(logrus.DebugLevel)
			}

			srv, err := buildServer(cfg, log)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to config file")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	return cmd
}

// buildServer wires the process: model provider pool, Redis-backed sessions
// and vector search, built-in tools, the agent loop, and the HTTP server.
func buildServer(cfg *config.Config, log *logrus.Logger) (*server.Server, error) {
	if cfg.OpenAI.APIKey == "" {
		return nil, fmt.Errorf("openai.api_key is required (or AGENTSTREAM_OPENAI_API_KEY)")
	}

	pool := llmwire.NewPool(llmwire.PoolConfig{
		Providers: map[string]llmwire.ProviderConfig{
			"default": {
				APIKey:  cfg.OpenAI.APIKey,
				BaseURL: cfg.OpenAI.BaseURL,
				Model:   cfg.OpenAI.Model,
			},
		},
		MaxConcurrent:  cfg.Agent.MaxConcurrent,
		DefaultTimeout: cfg.Agent.TurnTimeout,
	})
	provider := pool.Named("default")

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	embedClient := openai.NewClient(embedOptions(cfg)...)
	searcher := rag.NewRedisSearcher(rdb, rag.NewOpenAIEmbedder(embedClient, cfg.OpenAI.EmbedModel), 4)

	registry := agent.NewRegistry(
		tools.NewKnowledgeSearch(searcher, cfg.Agent.Collection),
		tools.NewFetchURL(0),
	)

	ag := agent.New(agent.Config{
		Provider:      provider,
		Registry:      registry,
		MaxIterations: cfg.Agent.MaxIterations,
		Log:           log,
	})

	return server.New(server.Config{
		Addr:     cfg.Server.Addr,
		APIKey:   cfg.Server.APIKey,
		Model:    cfg.OpenAI.Model,
		Agent:    ag,
		Provider: provider,
		Sessions: session.NewStore(rdb, cfg.Redis.SessionTTL),
		Log:      log,
	}), nil
}

func embedOptions(cfg *config.Config) []option.RequestOption {
	opts := []option.RequestOption{option.WithAPIKey(cfg.OpenAI.APIKey)}
	if cfg.OpenAI.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.OpenAI.BaseURL))
	}
	return opts
}
