// Package prometheus exposes goToken metrics to Prometheus.
//
// [PrometheusExporter] renders text exposition format directly and serves it through
// an [http.Handler]. [Collector] plugs the same counters into a client_golang
// registry for services that already run one. Counter names are gotoken_*_total;
// the single histogram is gotoken_decode_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in the global Prometheus registry.
//   - Mutate engine state.
package prometheus
