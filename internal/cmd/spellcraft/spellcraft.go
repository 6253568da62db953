// Package spellcraft parses spellcraft command flags and runs the rules
// console.
package spellcraft

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	entrypoint "github.com/spellcraft/spellcraft/internal/platform/cmd"
	"github.com/spellcraft/spellcraft/internal/platform/telemetry/metrics"
)

// Config holds spellcraft command configuration.
type Config struct {
	DBPath         string  `env:"SPELLCRAFT_DB_PATH" envDefault:"data/spellcraft.db"`
	ScenePath      string  `env:"SPELLCRAFT_SCENE_PATH"`
	PropertiesPath string  `env:"SPELLCRAFT_PROPERTIES_PATH"`
	Locale         string  `env:"SPELLCRAFT_LOCALE" envDefault:"en-US"`
	SearchRadius   float64 `env:"SPELLCRAFT_SEARCH_RADIUS" envDefault:"5"`
	MetricsAddr    string  `env:"SPELLCRAFT_METRICS_ADDR"`
	LogLevel       string  `env:"SPELLCRAFT_LOG_LEVEL" envDefault:"info"`
}

var logOutput io.Writer = os.Stderr

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to the progress database")
	fs.StringVar(&cfg.ScenePath, "scene", cfg.ScenePath, "Path to the scene asset (required)")
	fs.StringVar(&cfg.PropertiesPath, "properties", cfg.PropertiesPath, "Path to a property database asset (defaults to the embedded one)")
	fs.StringVar(&cfg.Locale, "locale", cfg.Locale, "Locale for console and log messages")
	fs.Float64Var(&cfg.SearchRadius, "radius", cfg.SearchRadius, "Radius within which objects can be targeted")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "Serve Prometheus metrics on this address")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn or error")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	if strings.TrimSpace(cfg.ScenePath) == "" {
		return Config{}, errors.New("scene path is required (-scene or SPELLCRAFT_SCENE_PATH)")
	}
	if _, err := parseLevel(cfg.LogLevel); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run loads the world described by cfg and interprets console commands from
// in until quit, end of input or ctx is done.
func Run(ctx context.Context, cfg Config, in io.Reader, out io.Writer) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceSpellcraft, func(ctx context.Context) error {
		level, err := parseLevel(cfg.LogLevel)
		if err != nil {
			return err
		}
		logger := slog.New(slog.NewTextHandler(logOutput, &slog.HandlerOptions{Level: level}))

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		var (
			rules       *metrics.Rules
			metricsDone <-chan error
		)
		if addr := strings.TrimSpace(cfg.MetricsAddr); addr != "" {
			reg := metrics.NewRegistry()
			rules, err = metrics.NewRules(reg)
			if err != nil {
				return err
			}
			metricsDone = serveMetrics(ctx, addr, metrics.Handler(reg), logger)
		}

		w, err := openWorld(ctx, cfg, logger, rules)
		if err != nil {
			return err
		}
		defer func() {
			if err := w.Close(); err != nil {
				logger.Error("close progress store", slog.Any("error", err))
			}
		}()

		runErr := newConsole(w, cfg.Locale, out).Run(ctx, in)
		cancel()
		if metricsDone != nil {
			if err := <-metricsDone; err != nil && runErr == nil {
				runErr = err
			}
		}
		return runErr
	})
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}
