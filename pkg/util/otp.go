package util

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const otpSpace = 1000000

// GenerateOTP returns a zero-padded six digit code drawn uniformly
// from 000000-999999.
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpSpace))
	if err != nil {
		return "", fmt.Errorf("failed to read random source: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
