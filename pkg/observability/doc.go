/*
Package observability exposes Prometheus metrics for the nonplanar engine and the
lifecycle hooks that feed them.

Metrics are registered on a caller-supplied registry so tests and embedded hosts do
not collide on the global default registry.
*/
package observability
