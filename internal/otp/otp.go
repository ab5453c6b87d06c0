package otp

import (
	"crypto/rand"
	"math/big"
	"time"
)

const DefaultLength = 6

// Generate returns a random numeric code of the given length. Digits come from
// crypto/rand; a non-positive length falls back to DefaultLength.
func Generate(length int) string {
	if length <= 0 {
		length = DefaultLength
	}
	buf := make([]byte, length)
	ten := big.NewInt(10)
	for i := range buf {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			// crypto/rand failing means the platform RNG is broken; nothing
			// sensible to fall back to.
			panic(err)
		}
		buf[i] = byte('0' + n.Int64())
	}
	return string(buf)
}

// GenerateExpiry returns the expiry timestamp for a code issued now.
func GenerateExpiry(minutes int) time.Time {
	return time.Now().UTC().Add(time.Duration(minutes) * time.Minute)
}

// IsExpired reports whether an OTP expiry has passed. Callers treat a zero
// expiry as "no OTP issued" before calling.
func IsExpired(expiry time.Time) bool {
	return time.Now().UTC().After(expiry)
}
