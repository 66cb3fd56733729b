// Package limiters provides the Redis-backed failure counter behind the
// account lockout hook.
package limiters
