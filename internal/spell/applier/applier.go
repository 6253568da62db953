package applier

import (
	"context"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/message"

	apperrors "github.com/spellcraft/spellcraft/internal/platform/errors"
	"github.com/spellcraft/spellcraft/internal/platform/i18n/catalog"
	"github.com/spellcraft/spellcraft/internal/platform/telemetry/metrics"
	"github.com/spellcraft/spellcraft/internal/spell/property"
	"github.com/spellcraft/spellcraft/internal/spell/studyable"
)

// DefaultSearchRadius bounds FindNearby when no radius is configured.
const DefaultSearchRadius = 5.0

const tracerName = "github.com/spellcraft/spellcraft/internal/spell/applier"

// ProgressReader answers whether the player has studied a property.
type ProgressReader interface {
	HasStudied(t property.Type) bool
}

// Option configures an Applier.
type Option func(*Applier)

// WithLogger sets the logger. A nil logger keeps slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(a *Applier) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithLocale sets the locale used for log messages.
func WithLocale(locale string) Option {
	return func(a *Applier) { a.locale = locale }
}

// WithSearchRadius sets the FindNearby radius. Non-positive values are ignored.
func WithSearchRadius(radius float64) Option {
	return func(a *Applier) {
		if radius > 0 {
			a.radius = radius
		}
	}
}

// WithPosition sets the starting position.
func WithPosition(pos studyable.Vec3) Option {
	return func(a *Applier) { a.position = pos }
}

// WithMetrics records rule outcomes on m.
func WithMetrics(m *metrics.Rules) Option {
	return func(a *Applier) { a.metrics = m }
}

// WithTracer sets the tracer. Defaults to the global tracer provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(a *Applier) {
		if tracer != nil {
			a.tracer = tracer
		}
	}
}

// Applier applies properties to studyable objects.
type Applier struct {
	db       *property.Database
	progress ProgressReader
	registry *studyable.Registry

	logger  *slog.Logger
	locale  string
	printer *message.Printer
	radius  float64
	metrics *metrics.Rules
	tracer  trace.Tracer

	mu       sync.RWMutex
	position studyable.Vec3
}

// New returns an Applier over db, progress and registry.
func New(db *property.Database, progress ProgressReader, registry *studyable.Registry, opts ...Option) *Applier {
	a := &Applier{
		db:       db,
		progress: progress,
		registry: registry,
		logger:   slog.Default(),
		locale:   apperrors.DefaultLocale,
		radius:   DefaultSearchRadius,
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.registry == nil {
		a.registry = studyable.NewRegistry()
	}
	a.printer = catalog.Default().Printer(a.locale)
	return a
}

// Position returns the applier's current position.
func (a *Applier) Position() studyable.Vec3 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.position
}

// MoveTo updates the applier's position.
func (a *Applier) MoveTo(pos studyable.Vec3) {
	a.mu.Lock()
	a.position = pos
	a.mu.Unlock()
}

// Radius returns the FindNearby search radius.
func (a *Applier) Radius() float64 {
	return a.radius
}

// Nearby returns every registered object within the search radius.
func (a *Applier) Nearby() []*studyable.Object {
	return a.registry.Nearby(a.Position(), a.radius)
}

// FindNearby returns the first object within the search radius whose item
// name equals name exactly.
func (a *Applier) FindNearby(name string) (*studyable.Object, bool) {
	for _, obj := range a.Nearby() {
		if obj.Item.Name == name {
			return obj, true
		}
	}
	return nil, false
}

// ApplyPropertiesToAllObjects re-syncs every registered object with the
// properties it currently holds, notifying observers for each. No rule is
// checked.
func (a *Applier) ApplyPropertiesToAllObjects(ctx context.Context) {
	ctx, span := a.tracer.Start(ctx, "applier.ApplyPropertiesToAllObjects")
	defer span.End()

	for _, obj := range a.registry.All() {
		props := obj.Properties()
		if len(props) == 0 {
			continue
		}
		for _, t := range props {
			obj.SyncProperty(t)
		}
		a.logger.DebugContext(ctx, a.printer.Sprintf("log.properties_synced", len(props), obj.Item.Name),
			slog.String("object", obj.Item.Name),
			slog.String("object_id", obj.ID),
		)
	}
}
