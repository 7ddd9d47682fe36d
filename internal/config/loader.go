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

// Environment variables read by Load.
const (
	EnvConfigFile = "TUTORBOARD_CONFIG"
	EnvPrefix     = "TUTORBOARD_"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if TUTORBOARD_CONFIG is set
//  3. env (prefix TUTORBOARD_)
//
// List values may be given in the environment as comma separated strings,
// e.g. TUTORBOARD_TAB_CANDIDATES=Scores,Sheet1.
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// Map env keys like TUTORBOARD_TOP_N -> top_n (flat keys)
	envProvider := env.ProviderWithValue(EnvPrefix, ".", envValue)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	// Slices decode into existing elements, so start them empty and
	// restore the defaults when nothing overrides them.
	cfg := *base
	cfg.TabCandidates = nil
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	cfg.TabCandidates = trimAll(cfg.TabCandidates)
	if len(cfg.TabCandidates) == 0 {
		cfg.TabCandidates = base.TabCandidates
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// listKeys are decoded from comma separated env values.
var listKeys = map[string]bool{
	"tab_candidates": true,
}

func envValue(key, value string) (string, interface{}) {
	key = strings.TrimPrefix(strings.ToLower(key), strings.ToLower(EnvPrefix))
	if listKeys[key] {
		return key, strings.Split(value, ",")
	}
	return key, value
}

func trimAll(in []string) []string {
	out := in[:0]
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
