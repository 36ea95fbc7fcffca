// Package config loads process configuration from a YAML file and the
// environment. Every key can be overridden with an AGENTSTREAM_-prefixed
// environment variable, e.g. AGENTSTREAM_SERVER_ADDR or
// AGENTSTREAM_OPENAI_API_KEY.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration object.
type Config struct {
	Server Server `mapstructure:"server"`
	OpenAI OpenAI `mapstructure:"openai"`
	Redis  Redis  `mapstructure:"redis"`
	Agent  Agent  `mapstructure:"agent"`
}

// Server configures the HTTP listener.
type Server struct {
	// Addr is the TCP address to listen on.
	Addr string `mapstructure:"addr"`

	// APIKey, when non-empty, enables Bearer token auth on all endpoints.
	APIKey string `mapstructure:"api_key"`
}

// OpenAI configures the upstream model endpoint.
type OpenAI struct {
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"`
	Model      string `mapstructure:"model"`
	EmbedModel string `mapstructure:"embed_model"`
}

// Redis configures the Redis connection used for sessions and vector search.
type Redis struct {
	Addr       string        `mapstructure:"addr"`
	Password   string        `mapstructure:"password"`
	DB         int           `mapstructure:"db"`
	SessionTTL time.Duration `mapstructure:"session_ttl"`
}

// Agent configures the turn loop and tools.
type Agent struct {
	// MaxIterations bounds model turns per request.
	MaxIterations int `mapstructure:"max_iterations"`

	// MaxConcurrent caps in-flight model streams across all requests.
	// 0 means unlimited.
	MaxConcurrent int `mapstructure:"max_concurrent"`

	// Collection is the knowledge-base collection searched by the
	// knowledge_search tool.
	Collection string `mapstructure:"collection"`

	// TurnTimeout is the per-model-turn deadline. 0 means context-only.
	TurnTimeout time.Duration `mapstructure:"turn_timeout"`
}

// Load reads configuration from path. When path is empty, a config.yaml is
// searched in the working directory and /etc/agentstream; a missing file is
// not an error, since every key has a default or an environment override.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Every key needs a default, even an empty one: viper's Unmarshal only
	// sees environment overrides for keys it already knows about.
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.api_key", "")
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.embed_model", "text-embedding-3-small")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.session_ttl", 24*time.Hour)
	v.SetDefault("agent.max_iterations", 5)
	v.SetDefault("agent.max_concurrent", 0)
	v.SetDefault("agent.collection", "knowledge")
	v.SetDefault("agent.turn_timeout", 5*time.Minute)

	v.SetEnvPrefix("AGENTSTREAM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/agentstream")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return &cfg, nil
}
