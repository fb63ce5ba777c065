// Package alert stores threshold rules for metrics.
//
// Rules are configuration records only: they are created and listed through
// the API, and evaluation is left to external tooling reading them. Each
// rule names a metric, an optional lower and upper bound, and a channel plus
// target describing where a breach notification would go.
package alert
