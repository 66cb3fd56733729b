package internal

import "crypto/sha256"

// HashBindingValue reduces a client binding value (IP or device
// fingerprint) to the fixed-size digest stored on the session record.
func HashBindingValue(v string) [32]byte {
	return sha256.Sum256([]byte(v))
}

// HashOTP reduces a one-time password to the digest stored on the
// pending two-factor record; the plaintext is never persisted.
func HashOTP(otp string) [32]byte {
	return sha256.Sum256([]byte(otp))
}
