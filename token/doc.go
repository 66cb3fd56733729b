// Package token issues and verifies alternate tokens: short-lived signed
// credentials handed out between password verification and two-factor
// completion. An alternate token carries only a pointer (jti) to a
// single-use pending record in Redis; it is never a session.
package token
