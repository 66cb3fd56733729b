// Package session persists member sessions in Redis: binary-encoded
// records with absolute expiration, a per-member token index, and an
// optional single-session-per-device slot enforced atomically.
package session
