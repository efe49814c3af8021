package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):.
//  1. defaults (New(ctx))
//  2. file (YAML) if CALLBRIDGE_CONFIG is set
//  3. env (prefix CALLBRIDGE_)
func Load(ctx context.Context) (*Config, error) {
	// Start with defaults
	base := New(ctx)

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("CALLBRIDGE_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: CALLBRIDGE_ADDR, CALLBRIDGE_QUEUE_SIZE, ...
	// Map env keys like CALLBRIDGE_QUEUE_SIZE -> queue_size (flat keys).
	// List-valued keys are comma separated in the environment.
	envProvider := env.ProviderWithValue("CALLBRIDGE_", ".", func(key, value string) (string, interface{}) {
		key = strings.ToLower(key)
		key = strings.TrimPrefix(key, "callbridge_")
		if key == "call_from_numbers" {
			parts := strings.Split(value, ",")
			out := make([]interface{}, 0, len(parts))
			for _, p := range parts {
				if trimmed := strings.TrimSpace(p); trimmed != "" {
					out = append(out, trimmed)
				}
			}
			return key, out
		}
		return key, value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Basic validation
	if cfg.Addr == "" {
		return nil, fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if cfg.TaxDivisor <= 0 {
		return nil, fmt.Errorf("%w: tax_divisor must be positive", ErrInvalidConfig)
	}
	if cfg.DefaultWindowDays <= 0 {
		return nil, fmt.Errorf("%w: default_window_days must be positive", ErrInvalidConfig)
	}
	return &cfg, nil
}
