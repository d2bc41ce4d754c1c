// Package middleware wraps job stores with envelope encryption and compression.
//
// Both middlewares replace a job with an envelope that keeps its ID, kind, status,
// stats and timestamps readable (so listing and monitoring keep working) and carry
// the full job as an encoded payload.
package middleware
