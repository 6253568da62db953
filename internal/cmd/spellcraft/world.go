package spellcraft

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/spellcraft/spellcraft/internal/platform/errors"
	"github.com/spellcraft/spellcraft/internal/platform/telemetry/metrics"
	"github.com/spellcraft/spellcraft/internal/spell/applier"
	"github.com/spellcraft/spellcraft/internal/spell/progress"
	"github.com/spellcraft/spellcraft/internal/spell/property"
	"github.com/spellcraft/spellcraft/internal/spell/scene"
	"github.com/spellcraft/spellcraft/internal/spell/storage/sqlite"
	"github.com/spellcraft/spellcraft/internal/spell/studyable"
)

// world is everything a console session acts on.
type world struct {
	db       *property.Database
	scene    *scene.Scene
	progress *progress.Progress
	store    *sqlite.Store
	applier  *applier.Applier
	logger   *slog.Logger
}

func openWorld(ctx context.Context, cfg Config, logger *slog.Logger, rules *metrics.Rules) (*world, error) {
	db, err := loadDatabase(cfg.PropertiesPath)
	if err != nil {
		return nil, err
	}
	sc, err := scene.LoadFile(cfg.ScenePath, db)
	if err != nil {
		return nil, err
	}
	store, err := openStore(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	w := &world{db: db, scene: sc, store: store, logger: logger}
	if err := w.restore(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	w.applier = applier.New(db, w.progress, sc.Registry,
		applier.WithLogger(logger),
		applier.WithLocale(cfg.Locale),
		applier.WithSearchRadius(cfg.SearchRadius),
		applier.WithPosition(sc.Position),
		applier.WithMetrics(rules),
	)
	effects := effectLogger{logger: logger}
	for _, obj := range sc.Registry.All() {
		obj.Observe(effects)
	}
	w.applier.ApplyPropertiesToAllObjects(ctx)
	logger.Info("world loaded",
		slog.Int("objects", sc.Registry.Len()),
		slog.Int("studied", w.progress.Len()),
		slog.Int("properties", db.Len()),
	)
	return w, nil
}

func loadDatabase(path string) (*property.Database, error) {
	if strings.TrimSpace(path) == "" {
		return property.Default()
	}
	return property.LoadFile(path)
}

func openStore(path string) (*sqlite.Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	return sqlite.Open(path)
}

// restore merges stored progress into the scene's and replaces each object's
// current properties with its stored set, if any. Stored tags the property
// database does not define are dropped.
func (w *world) restore(ctx context.Context) error {
	stored, err := w.store.LoadProgress(ctx)
	if err != nil {
		return err
	}
	w.progress = w.scene.Progress()
	for _, item := range stored.Items() {
		w.progress.Study(item)
	}

	for _, obj := range w.scene.Registry.All() {
		props, err := w.store.LoadObjectProperties(ctx, obj.ID)
		if apperrors.IsCode(err, apperrors.CodeNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("restore %s: %w", obj.Item.Name, err)
		}
		obj.SetProperties(w.knownProperties(obj, props))
	}
	return nil
}

func (w *world) knownProperties(obj *studyable.Object, props []property.Type) []property.Type {
	known := make([]property.Type, 0, len(props))
	for _, t := range props {
		if _, ok := w.db.Info(t); !ok {
			w.logger.Warn("dropping unknown stored property",
				slog.String("object", obj.Item.Name),
				slog.String("object_id", obj.ID),
				slog.String("property", string(t)),
			)
			continue
		}
		known = append(known, t)
	}
	return known
}

func (w *world) Close() error {
	return w.store.Close()
}

// effectLogger stands in for the per-property effects a renderer would attach
// to objects.
type effectLogger struct {
	logger *slog.Logger
}

func (e effectLogger) PropertyAdded(obj *studyable.Object, t property.Type) {
	e.logger.Debug("property effect on", slog.String("object_id", obj.ID), slog.String("property", string(t)))
}

func (e effectLogger) PropertyRemoved(obj *studyable.Object, t property.Type) {
	e.logger.Debug("property effect off", slog.String("object_id", obj.ID), slog.String("property", string(t)))
}
