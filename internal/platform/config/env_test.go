package config

import (
	"strings"
	"testing"
)

type envTestConfig struct {
	Radius float64 `env:"SPELLCRAFT_TEST_RADIUS" envDefault:"5"`
	Locale string  `env:"SPELLCRAFT_TEST_LOCALE" envDefault:"en-US"`
}

func TestParseEnvDefaults(t *testing.T) {
	var cfg envTestConfig

	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Radius != 5 {
		t.Fatalf("expected default radius 5, got %v", cfg.Radius)
	}
}

func TestParseEnvError(t *testing.T) {
	var cfg envTestConfig
	t.Setenv("SPELLCRAFT_TEST_RADIUS", "far")

	err := ParseEnv(&cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}
