// Package metrics exposes Prometheus collectors for room lifecycle and
// panel interactions.
//
// A nil *Metrics is valid and records nothing, so components accept one
// unconditionally and tests may pass nil.
package metrics
