package applier

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/spellcraft/spellcraft/internal/platform/errors"
	"github.com/spellcraft/spellcraft/internal/platform/telemetry/metrics"
	"github.com/spellcraft/spellcraft/internal/spell/property"
	"github.com/spellcraft/spellcraft/internal/spell/studyable"
)

// TryApplyPropertiesToObject applies each named property to target.
//
// The batch is rejected up front, with nothing applied, when two of the
// names resolve to antonyms. Otherwise every name is attempted in order and
// the result is true only if all of them succeeded. Successful additions
// are kept even when a later name fails.
func (a *Applier) TryApplyPropertiesToObject(ctx context.Context, target *studyable.Object, names []string) bool {
	ctx, span := a.tracer.Start(ctx, "applier.TryApplyPropertiesToObject",
		trace.WithAttributes(attribute.Int("spellcraft.batch_size", len(names))),
	)
	defer span.End()

	if target == nil {
		err := apperrors.New(apperrors.CodeObjectMissing, "target object is required")
		a.fail(ctx, span, err)
		a.metrics.ObserveBatch(metrics.BatchRejected)
		return false
	}
	span.SetAttributes(
		attribute.String("spellcraft.object_id", target.ID),
		attribute.String("spellcraft.object", target.Item.Name),
	)

	if err := a.checkAntonymConflicts(names); err != nil {
		a.fail(ctx, span, err, slog.String("object", target.Item.Name))
		a.metrics.ObserveApply(string(apperrors.GetCode(err)))
		a.metrics.ObserveBatch(metrics.BatchRejected)
		return false
	}

	succeeded := 0
	var firstErr error
	for _, name := range names {
		err := a.addProperty(ctx, target, name)
		if err != nil {
			a.fail(ctx, span, err,
				slog.String("property", name),
				slog.String("object", target.Item.Name),
			)
			a.metrics.ObserveApply(string(apperrors.GetCode(err)))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		a.metrics.ObserveApply("")
		succeeded++
	}

	switch {
	case firstErr == nil:
		a.metrics.ObserveBatch(metrics.BatchSucceeded)
		return true
	case succeeded > 0:
		a.metrics.ObserveBatch(metrics.BatchPartial)
	default:
		a.metrics.ObserveBatch(metrics.BatchRejected)
	}
	span.SetStatus(codes.Error, string(apperrors.GetCode(firstErr)))
	return false
}

// checkAntonymConflicts rejects a batch that names two antonyms. Names are
// matched exactly; names that do not resolve are left to addProperty.
func (a *Applier) checkAntonymConflicts(names []string) error {
	resolved := make([]property.Info, 0, len(names))
	for _, name := range names {
		if info, ok := a.db.ByName(name); ok {
			resolved = append(resolved, info)
		}
	}
	for i := 0; i < len(resolved); i++ {
		for j := i + 1; j < len(resolved); j++ {
			first, second := resolved[i], resolved[j]
			if !a.db.AreAntonyms(first.Type, second.Type) {
				continue
			}
			return apperrors.WithMetadata(apperrors.CodePropertyAntonymConflict,
				fmt.Sprintf("properties %s and %s are antonyms", first.Type, second.Type),
				map[string]string{
					"First":  first.DisplayName,
					"Second": second.DisplayName,
				})
		}
	}
	return nil
}

// addProperty validates name against target and adds it, displacing any
// antonym. A property already present is a successful no-op.
func (a *Applier) addProperty(ctx context.Context, target *studyable.Object, name string) error {
	info, ok := a.db.ByNameFold(name)
	if !ok {
		return apperrors.WithMetadata(apperrors.CodePropertyUnknown,
			fmt.Sprintf("property %q is not in the database", name),
			map[string]string{"Property": name})
	}

	gender := target.Item.Gender
	expected := info.Name(gender)
	if name != expected {
		return apperrors.WithMetadata(apperrors.CodePropertyGenderMismatch,
			fmt.Sprintf("property %q does not agree with %s object %q, want %q", name, gender, target.Item.Name, expected),
			map[string]string{
				"Property": name,
				"Expected": expected,
				"Gender":   apperrors.Word(genderKey(gender), a.locale),
			})
	}

	if a.progress == nil || !a.progress.HasStudied(info.Type) {
		return apperrors.WithMetadata(apperrors.CodePropertyNotStudied,
			fmt.Sprintf("property %s has not been studied", info.Type),
			map[string]string{"Property": name})
	}

	a.removeAntonyms(ctx, target, info.Type)

	if target.AddProperty(info.Type) {
		a.logger.InfoContext(ctx, a.printer.Sprintf("log.property_added", name, target.Item.Name),
			slog.String("property", string(info.Type)),
			slog.String("object", target.Item.Name),
		)
	} else {
		a.logger.DebugContext(ctx, "property already present",
			slog.String("property", string(info.Type)),
			slog.String("object", target.Item.Name),
		)
	}
	return nil
}

// removeAntonyms removes every property on target that is an antonym of t.
func (a *Applier) removeAntonyms(ctx context.Context, target *studyable.Object, t property.Type) {
	var displaced []property.Type
	for _, held := range target.Properties() {
		if a.db.AreAntonyms(held, t) {
			displaced = append(displaced, held)
		}
	}
	for _, antonym := range displaced {
		if !target.RemoveProperty(antonym) {
			continue
		}
		a.metrics.ObserveAntonymRemoved()
		a.logger.InfoContext(ctx, a.printer.Sprintf("log.antonym_removed", a.db.DisplayName(antonym)),
			slog.String("property", string(antonym)),
			slog.String("replaced_by", string(t)),
			slog.String("object", target.Item.Name),
		)
	}
}

func (a *Applier) fail(ctx context.Context, span trace.Span, err error, attrs ...slog.Attr) {
	code := apperrors.GetCode(err)
	span.RecordError(err, trace.WithAttributes(attribute.String("spellcraft.code", string(code))))
	span.SetStatus(codes.Error, string(code))

	args := make([]any, 0, len(attrs)+1)
	args = append(args, slog.String("code", string(code)))
	for _, attr := range attrs {
		args = append(args, attr)
	}
	a.logger.ErrorContext(ctx, apperrors.Localize(err, a.locale), args...)
}

func genderKey(g property.Gender) string {
	if g == property.Feminine {
		return apperrors.KeyGenderFeminine
	}
	return apperrors.KeyGenderMasculine
}
