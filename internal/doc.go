// Package internal holds shared primitives (token generation, binding
// hashes) used by the root engine and its flow code.
package internal
