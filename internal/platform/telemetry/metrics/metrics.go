package metrics

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "spellcraft"

// OutcomeApplied labels a property that was added or was already present.
const OutcomeApplied = "applied"

// Batch results.
const (
	BatchSucceeded = "succeeded"
	BatchPartial   = "partial"
	BatchRejected  = "rejected"
)

// Rules holds the collectors for property rule outcomes.
// A nil *Rules is valid and records nothing.
type Rules struct {
	applies         *prometheus.CounterVec
	batches         *prometheus.CounterVec
	antonymsRemoved prometheus.Counter
}

// NewRules creates the rule collectors and registers them on reg.
func NewRules(reg prometheus.Registerer) (*Rules, error) {
	r := &Rules{
		applies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "property_apply_total",
			Help:      "Property application attempts by outcome.",
		}, []string{"outcome"}),
		batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "property_batches_total",
			Help:      "Property batch requests by result.",
		}, []string{"result"}),
		antonymsRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "antonyms_removed_total",
			Help:      "Properties removed because an antonym was applied.",
		}),
	}
	if reg == nil {
		return r, nil
	}
	for _, c := range []prometheus.Collector{r.applies, r.batches, r.antonymsRemoved} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register rule metrics: %w", err)
		}
	}
	return r, nil
}

// ObserveApply records one per-property attempt. An empty code means success.
func (r *Rules) ObserveApply(code string) {
	if r == nil {
		return
	}
	outcome := OutcomeApplied
	if code != "" {
		outcome = strings.ToLower(code)
	}
	r.applies.WithLabelValues(outcome).Inc()
}

// ObserveBatch records the result of one batch request.
func (r *Rules) ObserveBatch(result string) {
	if r == nil {
		return
	}
	r.batches.WithLabelValues(result).Inc()
}

// ObserveAntonymRemoved records one displaced property.
func (r *Rules) ObserveAntonymRemoved() {
	if r == nil {
		return
	}
	r.antonymsRemoved.Inc()
}

// NewRegistry returns a registry preloaded with Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler serves the registry in the Prometheus exposition format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}
