// Package otel binds goToken counters and the decode latency histogram to
// OpenTelemetry observable instruments.
//
// [NewOTelExporter] registers one Int64ObservableCounter per counter and, per
// histogram, a bucket gauge keyed by an "le" attribute plus a count gauge. A
// single callback reads a fresh snapshot on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the MeterProvider; callers supply the Meter.
//   - Mutate engine state.
package otel
