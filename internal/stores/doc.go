// Package stores contains the Redis-backed record stores used by the
// engine: pending two-factor challenges with exactly-once consumption.
package stores
