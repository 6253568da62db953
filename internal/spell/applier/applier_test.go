package applier

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/spellcraft/spellcraft/internal/platform/telemetry/metrics"
	"github.com/spellcraft/spellcraft/internal/spell/progress"
	"github.com/spellcraft/spellcraft/internal/spell/property"
	"github.com/spellcraft/spellcraft/internal/spell/studyable"
)

type logRecord struct {
	Level    string `json:"level"`
	Msg      string `json:"msg"`
	Code     string `json:"code"`
	Property string `json:"property"`
	Object   string `json:"object"`
}

type fixture struct {
	applier  *Applier
	progress *progress.Progress
	registry *studyable.Registry
	logs     *bytes.Buffer
}

func newFixture(t *testing.T, studied []property.Type, opts ...Option) *fixture {
	t.Helper()
	db, err := property.Default()
	if err != nil {
		t.Fatalf("load property database: %v", err)
	}
	p := progress.New()
	if len(studied) > 0 {
		p.Study(progress.Item{ID: "book", Name: "книга", Properties: studied})
	}
	reg := studyable.NewRegistry()
	logs := &bytes.Buffer{}
	logger := slog.New(slog.NewJSONHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	opts = append([]Option{WithLogger(logger)}, opts...)
	return &fixture{
		applier:  New(db, p, reg, opts...),
		progress: p,
		registry: reg,
		logs:     logs,
	}
}

func (f *fixture) object(t *testing.T, id, name string, gender property.Gender, pos studyable.Vec3, props ...property.Type) *studyable.Object {
	t.Helper()
	obj := studyable.NewObject(id, studyable.ItemData{Name: name, Gender: gender, Properties: props}, pos)
	if err := f.registry.Register(obj); err != nil {
		t.Fatalf("register %s: %v", id, err)
	}
	return obj
}

func (f *fixture) records(t *testing.T) []logRecord {
	t.Helper()
	var out []logRecord
	scanner := bufio.NewScanner(bytes.NewReader(f.logs.Bytes()))
	for scanner.Scan() {
		var rec logRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("decode log line %q: %v", scanner.Text(), err)
		}
		out = append(out, rec)
	}
	return out
}

func (f *fixture) errorCodes(t *testing.T) []string {
	t.Helper()
	var out []string
	for _, rec := range f.records(t) {
		if rec.Level == "ERROR" {
			out = append(out, rec.Code)
		}
	}
	return out
}

func assertProperties(t *testing.T, obj *studyable.Object, want ...property.Type) {
	t.Helper()
	got := obj.Properties()
	if len(got) == 0 && len(want) == 0 {
		return
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("properties = %v, want %v", got, want)
	}
}

func TestFeminineTargetNeedsFeminineForm(t *testing.T) {
	f := newFixture(t, []property.Type{"hot"}, WithLocale("ru-RU"))
	cup := f.object(t, "cup", "чашка", property.Feminine, studyable.Vec3{})

	if f.applier.TryApplyPropertiesToObject(context.Background(), cup, []string{"горячий"}) {
		t.Fatal("masculine form on a feminine object should fail")
	}
	assertProperties(t, cup)

	recs := f.records(t)
	if len(recs) != 1 || recs[0].Level != "ERROR" {
		t.Fatalf("records = %+v", recs)
	}
	if recs[0].Code != "PROPERTY_GENDER_MISMATCH" {
		t.Fatalf("code = %q", recs[0].Code)
	}
	if recs[0].Msg != "Для женского рода должно использоваться свойство 'горячая'!" {
		t.Fatalf("message = %q", recs[0].Msg)
	}

	if !f.applier.TryApplyPropertiesToObject(context.Background(), cup, []string{"горячая"}) {
		t.Fatal("feminine form on a feminine object should succeed")
	}
	assertProperties(t, cup, "hot")
}

func TestAntonymsInOneBatchAreRejected(t *testing.T) {
	db, err := property.Default()
	if err != nil {
		t.Fatalf("load property database: %v", err)
	}
	var all []property.Type
	for _, info := range db.All() {
		all = append(all, info.Type)
	}

	type pair struct{ a, b property.Info }
	var pairs []pair
	for _, info := range db.All() {
		for _, other := range db.Antonyms(info.Type) {
			if other < info.Type {
				continue
			}
			otherInfo, _ := db.Info(other)
			pairs = append(pairs, pair{a: info, b: otherInfo})
		}
	}
	if len(pairs) == 0 {
		t.Fatal("expected antonym pairs in the default database")
	}

	for _, p := range pairs {
		for _, gender := range []property.Gender{property.Masculine, property.Feminine} {
			t.Run(fmt.Sprintf("%s-%s-%s", p.a.Type, p.b.Type, gender), func(t *testing.T) {
				f := newFixture(t, all)
				target := f.object(t, "target", "предмет", gender, studyable.Vec3{})
				target.SetProperties([]property.Type{"sharp", "sticky"})

				names := []string{p.a.Name(gender), p.b.Name(gender)}
				if f.applier.TryApplyPropertiesToObject(context.Background(), target, names) {
					t.Fatalf("batch %q should fail", names)
				}
				assertProperties(t, target, "sharp", "sticky")
				if got := f.errorCodes(t); !reflect.DeepEqual(got, []string{"PROPERTY_ANTONYM_CONFLICT"}) {
					t.Fatalf("error codes = %v", got)
				}
				msg := f.records(t)[0].Msg
				if !strings.Contains(msg, p.a.DisplayName) || !strings.Contains(msg, p.b.DisplayName) {
					t.Fatalf("conflict message = %q", msg)
				}
			})
		}
	}
}

func TestAntonymConflictAmongOtherNames(t *testing.T) {
	f := newFixture(t, []property.Type{"hot", "cold", "wet"})
	kettle := f.object(t, "kettle", "чайник", property.Masculine, studyable.Vec3{})

	if f.applier.TryApplyPropertiesToObject(context.Background(), kettle, []string{"мокрый", "горячий", "холодный"}) {
		t.Fatal("antonym batch should fail")
	}
	assertProperties(t, kettle)
}

func TestAntonymPrecheckIsCaseSensitive(t *testing.T) {
	f := newFixture(t, []property.Type{"hot", "cold"})
	kettle := f.object(t, "kettle", "чайник", property.Masculine, studyable.Vec3{})

	// "Горячий" does not resolve exactly, so the pre-check passes and the
	// name then fails the gender check against "горячий".
	if f.applier.TryApplyPropertiesToObject(context.Background(), kettle, []string{"Горячий", "холодный"}) {
		t.Fatal("batch with a miscased name should fail")
	}
	assertProperties(t, kettle, "cold")
	if got := f.errorCodes(t); !reflect.DeepEqual(got, []string{"PROPERTY_GENDER_MISMATCH"}) {
		t.Fatalf("error codes = %v", got)
	}
}

func TestUnstudiedPropertyIsRejected(t *testing.T) {
	f := newFixture(t, []property.Type{"wet"})
	kettle := f.object(t, "kettle", "чайник", property.Masculine, studyable.Vec3{})

	if f.applier.TryApplyPropertiesToObject(context.Background(), kettle, []string{"горячий"}) {
		t.Fatal("unstudied property should fail")
	}
	assertProperties(t, kettle)
	if got := f.errorCodes(t); !reflect.DeepEqual(got, []string{"PROPERTY_NOT_STUDIED"}) {
		t.Fatalf("error codes = %v", got)
	}
}

func TestUnknownPropertyIsRejected(t *testing.T) {
	f := newFixture(t, []property.Type{"hot"})
	kettle := f.object(t, "kettle", "чайник", property.Masculine, studyable.Vec3{})

	if f.applier.TryApplyPropertiesToObject(context.Background(), kettle, []string{"тёплый"}) {
		t.Fatal("unknown property should fail")
	}
	recs := f.records(t)
	if len(recs) != 1 || recs[0].Code != "PROPERTY_UNKNOWN" || recs[0].Property != "тёплый" || recs[0].Object != "чайник" {
		t.Fatalf("records = %+v", recs)
	}
	if recs[0].Msg != "Property 'тёплый' was not found in the property database" {
		t.Fatalf("message = %q", recs[0].Msg)
	}
}

func TestApplyingPresentPropertyIsIdempotent(t *testing.T) {
	f := newFixture(t, []property.Type{"hot"})
	kettle := f.object(t, "kettle", "чайник", property.Masculine, studyable.Vec3{})

	for i := 0; i < 2; i++ {
		if !f.applier.TryApplyPropertiesToObject(context.Background(), kettle, []string{"горячий"}) {
			t.Fatalf("attempt %d failed", i+1)
		}
	}
	assertProperties(t, kettle, "hot")
}

func TestApplyingAntonymReplacesHeldProperty(t *testing.T) {
	f := newFixture(t, []property.Type{"hot", "cold", "wet"})
	kettle := f.object(t, "kettle", "чайник", property.Masculine, studyable.Vec3{})
	kettle.SetProperties([]property.Type{"wet", "hot"})

	if !f.applier.TryApplyPropertiesToObject(context.Background(), kettle, []string{"холодный"}) {
		t.Fatal("antonym of a held property should succeed")
	}
	assertProperties(t, kettle, "wet", "cold")

	var removed bool
	for _, rec := range f.records(t) {
		if rec.Msg == "Removed antonym 'горячий' while adding a new property" && rec.Property == "hot" {
			removed = true
		}
	}
	if !removed {
		t.Fatalf("expected antonym removal log, got %+v", f.records(t))
	}
}

func TestPartialBatchKeepsEarlierSuccesses(t *testing.T) {
	f := newFixture(t, []property.Type{"hot"})
	kettle := f.object(t, "kettle", "чайник", property.Masculine, studyable.Vec3{})

	if f.applier.TryApplyPropertiesToObject(context.Background(), kettle, []string{"горячий", "мокрый"}) {
		t.Fatal("batch with an unstudied property should fail")
	}
	assertProperties(t, kettle, "hot")
}

func TestEveryNameIsAttemptedAfterFailure(t *testing.T) {
	f := newFixture(t, []property.Type{"hot", "wet"})
	kettle := f.object(t, "kettle", "чайник", property.Masculine, studyable.Vec3{})

	if f.applier.TryApplyPropertiesToObject(context.Background(), kettle, []string{"тёплый", "горячий", "мокрая", "мокрый"}) {
		t.Fatal("batch should fail")
	}
	assertProperties(t, kettle, "hot", "wet")
	if got := f.errorCodes(t); !reflect.DeepEqual(got, []string{"PROPERTY_UNKNOWN", "PROPERTY_GENDER_MISMATCH"}) {
		t.Fatalf("error codes = %v", got)
	}
}

func TestCaseInsensitiveLookupStillChecksForm(t *testing.T) {
	f := newFixture(t, []property.Type{"hot"})
	cup := f.object(t, "cup", "чашка", property.Feminine, studyable.Vec3{})

	if f.applier.TryApplyPropertiesToObject(context.Background(), cup, []string{"ГОРЯЧАЯ"}) {
		t.Fatal("miscased name should fail the form check")
	}
	if got := f.errorCodes(t); !reflect.DeepEqual(got, []string{"PROPERTY_GENDER_MISMATCH"}) {
		t.Fatalf("error codes = %v", got)
	}
}

func TestEmptyBatchSucceeds(t *testing.T) {
	f := newFixture(t, nil)
	kettle := f.object(t, "kettle", "чайник", property.Masculine, studyable.Vec3{})
	if !f.applier.TryApplyPropertiesToObject(context.Background(), kettle, nil) {
		t.Fatal("empty batch should succeed")
	}
}

func TestMissingTargetFails(t *testing.T) {
	f := newFixture(t, []property.Type{"hot"})
	if f.applier.TryApplyPropertiesToObject(context.Background(), nil, []string{"горячий"}) {
		t.Fatal("nil target should fail")
	}
	if got := f.errorCodes(t); !reflect.DeepEqual(got, []string{"OBJECT_MISSING"}) {
		t.Fatalf("error codes = %v", got)
	}
}

type effects struct {
	added map[string][]property.Type
}

func (e *effects) PropertyAdded(obj *studyable.Object, t property.Type) {
	e.added[obj.ID] = append(e.added[obj.ID], t)
}

func (e *effects) PropertyRemoved(*studyable.Object, property.Type) {}

func TestApplyPropertiesToAllObjectsSyncsCurrentProperties(t *testing.T) {
	f := newFixture(t, nil)
	// Authored data is trusted, even when it holds antonyms.
	odd := f.object(t, "odd", "камень", property.Masculine, studyable.Vec3{}, "hot", "cold")
	plain := f.object(t, "plain", "палка", property.Feminine, studyable.Vec3{})
	kettle := f.object(t, "kettle", "чайник", property.Masculine, studyable.Vec3{}, "heavy")
	kettle.SetProperties([]property.Type{"wet"})

	rec := &effects{added: map[string][]property.Type{}}
	for _, obj := range []*studyable.Object{odd, plain, kettle} {
		obj.Observe(rec)
	}

	f.applier.ApplyPropertiesToAllObjects(context.Background())

	assertProperties(t, odd, "hot", "cold")
	assertProperties(t, plain)
	assertProperties(t, kettle, "wet")
	want := map[string][]property.Type{
		"odd":    {"hot", "cold"},
		"kettle": {"wet"},
	}
	if !reflect.DeepEqual(rec.added, want) {
		t.Fatalf("synced = %v, want %v", rec.added, want)
	}
	if len(f.errorCodes(t)) != 0 {
		t.Fatalf("unexpected errors: %v", f.errorCodes(t))
	}
}

func TestResyncDoesNotRestoreDisplacedProperty(t *testing.T) {
	f := newFixture(t, []property.Type{"cold"})
	kettle := f.object(t, "kettle", "чайник", property.Masculine, studyable.Vec3{}, "hot")
	ctx := context.Background()

	f.applier.ApplyPropertiesToAllObjects(ctx)
	if !f.applier.TryApplyPropertiesToObject(ctx, kettle, []string{"холодный"}) {
		t.Fatal("cold should displace the authored hot")
	}
	assertProperties(t, kettle, "cold")

	f.applier.ApplyPropertiesToAllObjects(ctx)
	assertProperties(t, kettle, "cold")
}

func TestFindNearby(t *testing.T) {
	f := newFixture(t, nil, WithSearchRadius(3), WithPosition(studyable.Vec3{X: 10}))
	far := f.object(t, "far", "чашка", property.Feminine, studyable.Vec3{})
	near := f.object(t, "near", "чашка", property.Feminine, studyable.Vec3{X: 12})
	f.object(t, "kettle", "чайник", property.Masculine, studyable.Vec3{X: 11})

	got, ok := f.applier.FindNearby("чашка")
	if !ok || got != near {
		t.Fatalf("FindNearby(чашка) = %v, %v", got, ok)
	}
	if _, ok := f.applier.FindNearby("Чашка"); ok {
		t.Fatal("name match must be exact")
	}
	if _, ok := f.applier.FindNearby("лампа"); ok {
		t.Fatal("expected no lamp")
	}

	f.applier.MoveTo(studyable.Vec3{})
	got, ok = f.applier.FindNearby("чашка")
	if !ok || got != far {
		t.Fatalf("after move FindNearby(чашка) = %v, %v", got, ok)
	}
	if len(f.applier.Nearby()) != 1 {
		t.Fatalf("Nearby = %d objects, want 1", len(f.applier.Nearby()))
	}
}

func TestDefaultSearchRadius(t *testing.T) {
	f := newFixture(t, nil, WithSearchRadius(-1))
	if f.applier.Radius() != DefaultSearchRadius {
		t.Fatalf("radius = %v, want %v", f.applier.Radius(), DefaultSearchRadius)
	}
}

func TestMetricsRecordOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	rules, err := metrics.NewRules(reg)
	if err != nil {
		t.Fatalf("new rules: %v", err)
	}
	f := newFixture(t, []property.Type{"hot", "cold"}, WithMetrics(rules))
	kettle := f.object(t, "kettle", "чайник", property.Masculine, studyable.Vec3{})
	ctx := context.Background()

	f.applier.TryApplyPropertiesToObject(ctx, kettle, []string{"горячий"})
	f.applier.TryApplyPropertiesToObject(ctx, kettle, []string{"холодный", "мокрый"})
	f.applier.TryApplyPropertiesToObject(ctx, kettle, []string{"горячий", "холодный"})

	count, err := testutil.GatherAndCount(reg, "spellcraft_property_batches_total")
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if count != 3 {
		t.Fatalf("batch series = %d, want 3", count)
	}
	expected := `
# HELP spellcraft_antonyms_removed_total Properties removed because an antonym was applied.
# TYPE spellcraft_antonyms_removed_total counter
spellcraft_antonyms_removed_total 1
# HELP spellcraft_property_apply_total Property application attempts by outcome.
# TYPE spellcraft_property_apply_total counter
spellcraft_property_apply_total{outcome="applied"} 2
spellcraft_property_apply_total{outcome="property_antonym_conflict"} 1
spellcraft_property_apply_total{outcome="property_not_studied"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"spellcraft_antonyms_removed_total", "spellcraft_property_apply_total"); err != nil {
		t.Fatal(err)
	}
}

func TestTryApplyRecordsSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	f := newFixture(t, nil, WithTracer(provider.Tracer("test")))
	kettle := f.object(t, "kettle", "чайник", property.Masculine, studyable.Vec3{})

	f.applier.TryApplyPropertiesToObject(context.Background(), kettle, []string{"горячий"})

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("spans = %d, want 1", len(spans))
	}
	span := spans[0]
	if span.Name() != "applier.TryApplyPropertiesToObject" {
		t.Fatalf("span name = %q", span.Name())
	}
	if span.Status().Code != codes.Error || span.Status().Description != "PROPERTY_NOT_STUDIED" {
		t.Fatalf("span status = %+v", span.Status())
	}
	if len(span.Events()) != 1 {
		t.Fatalf("span events = %d, want 1", len(span.Events()))
	}
}
