// Package observability records ppmb domain events in a JSON Lines event
// log, derives comparison metrics from it on demand, and raises variance
// alerts when the latest comparison of a project crosses configured
// thresholds.
package observability
