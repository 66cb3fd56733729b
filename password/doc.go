// Package password hashes and verifies member passwords with argon2id.
// Digests use the PHC string format with a per-call random salt;
// verification is constant-time.
package password
