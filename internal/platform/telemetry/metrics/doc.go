// Package metrics provides operational metrics collection.
//
// Collectors are registered on a caller-supplied Prometheus registry and
// exposed in the Prometheus text format when a command configures a metrics
// address.
//
// # Rule Metrics
//
//   - spellcraft_property_apply_total{outcome}: per-property attempts, where
//     outcome is "applied" or the lower-cased rule failure code
//   - spellcraft_property_batches_total{result}: batch requests by result
//   - spellcraft_antonyms_removed_total: properties displaced by an antonym
package metrics
