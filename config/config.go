/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package config loads IssueWise settings from the environment.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/darshan8850/IssueWise/agents/metaagent"
	"github.com/darshan8850/IssueWise/github/credentials"
	"github.com/darshan8850/IssueWise/github/ratelimit"
	"github.com/sethvargo/go-envconfig"
)

// Config is the process configuration.
type Config struct {
	// GitHub App identity.
	AppID             string `env:"APP_ID"`
	AppPrivateKey     string `env:"APP_PRIVATE_KEY"`
	AppPrivateKeyFile string `env:"APP_PRIVATE_KEY_FILE"`

	GitHubAPIURL      string `env:"GITHUB_API_URL,default=https://api.github.com"`
	RateLimitLowWater int    `env:"GITHUB_RATE_LIMIT_LOW_WATER"`
	RetrieverTopN     int    `env:"RETRIEVER_TOP_N,default=2"`
	RetrieverMaxBytes int    `env:"RETRIEVER_MAX_BYTES,default=8192"`
	DefaultProvider   string `env:"DEFAULT_PROVIDER,default=mistral"`
	MaxSteps          int    `env:"MAX_STEPS,default=5"`
	Port              int    `env:"PORT,default=8080"`
	LogLevel          string `env:"LOG_LEVEL,default=info"`

	Mistral ProviderConfig `env:", prefix=MISTRAL_"`
	OpenAI  ProviderConfig `env:", prefix=OPENAI_"`
	Claude  ProviderConfig `env:", prefix=CLAUDE_"`
	Gemini  ProviderConfig `env:", prefix=GEMINI_"`
}

// ProviderConfig holds the settings of one model provider.
type ProviderConfig struct {
	APIKey  string `env:"API_KEY"`
	Model   string `env:"MODEL"`
	BaseURL string `env:"BASE_URL"`
}

// Load reads the configuration from the process environment.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: l,
	}); err != nil {
		return nil, fmt.Errorf("processing environment: %w", err)
	}
	if cfg.MaxSteps <= 0 {
		return nil, fmt.Errorf("MAX_STEPS must be positive, got %d", cfg.MaxSteps)
	}
	if cfg.RetrieverTopN < 0 || cfg.RetrieverMaxBytes <= 0 {
		return nil, errors.New("RETRIEVER_TOP_N must not be negative and RETRIEVER_MAX_BYTES must be positive")
	}
	if _, err := cfg.Level(); err != nil {
		return nil, err
	}
	if _, ok := metaagent.Lookup(cfg.DefaultProvider); !ok {
		return nil, fmt.Errorf("DEFAULT_PROVIDER %q is not a known provider", cfg.DefaultProvider)
	}
	return &cfg, nil
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return lvl, nil
}

// PrivateKey returns the PEM encoded App key. APP_PRIVATE_KEY_FILE wins over
// APP_PRIVATE_KEY, whose literal "\n" sequences are turned into newlines so
// the key can be passed on a single line.
func (c *Config) PrivateKey() ([]byte, error) {
	if c.AppPrivateKeyFile != "" {
		data, err := os.ReadFile(c.AppPrivateKeyFile)
		if err != nil {
			return nil, fmt.Errorf("reading APP_PRIVATE_KEY_FILE: %w", err)
		}
		return data, nil
	}
	if c.AppPrivateKey == "" {
		return nil, errors.New("one of APP_PRIVATE_KEY or APP_PRIVATE_KEY_FILE is required")
	}
	return []byte(strings.ReplaceAll(c.AppPrivateKey, `\n`, "\n")), nil
}

// Signer builds the App signer from AppID and PrivateKey.
func (c *Config) Signer() (*credentials.Signer, error) {
	if c.AppID == "" {
		return nil, errors.New("APP_ID is required")
	}
	key, err := c.PrivateKey()
	if err != nil {
		return nil, err
	}
	return credentials.NewSigner(c.AppID, key)
}

// RateLimitOptions returns the transport options implied by the
// configuration.
func (c *Config) RateLimitOptions() []ratelimit.Option {
	if c.RateLimitLowWater <= 0 {
		return nil
	}
	return []ratelimit.Option{ratelimit.WithLowWaterMark(c.RateLimitLowWater)}
}

// Providers returns the per-provider settings keyed by selector.
func (c *Config) Providers() metaagent.Config {
	return metaagent.Config{
		metaagent.Mistral: settings(c.Mistral),
		metaagent.OpenAI:  settings(c.OpenAI),
		metaagent.Claude:  settings(c.Claude),
		metaagent.Gemini:  settings(c.Gemini),
	}
}

func settings(p ProviderConfig) metaagent.Settings {
	return metaagent.Settings{APIKey: p.APIKey, Model: p.Model, BaseURL: p.BaseURL}
}
