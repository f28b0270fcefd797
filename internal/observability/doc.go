// Package observability provides alert evaluation, Slack notification, and
// Prometheus metrics for straywatch. Alerts are derived from poll frames;
// metrics are process-local counters exported through a private registry.
package observability
