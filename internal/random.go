package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

const (
	MinOTPDigits = 4
	MaxOTPDigits = 10
)

// NewOTP draws a fixed-width numeric code. Each digit is sampled
// independently from crypto/rand, so leading zeros are kept.
func NewOTP(digits int) (string, error) {
	if digits < MinOTPDigits || digits > MaxOTPDigits {
		return "", errors.New("invalid otp digits")
	}

	var b strings.Builder
	b.Grow(digits)

	max := big.NewInt(10)
	for i := 0; i < digits; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}

	otp := b.String()
	if len(otp) != digits {
		return "", fmt.Errorf("invalid otp generation length")
	}
	return otp, nil
}

// HashSecret returns sha256(secret). Codes and tokens are only ever stored
// in this form.
func HashSecret(secret string) [32]byte {
	return sha256.Sum256([]byte(secret))
}

// SecretKey returns the hex form of HashSecret, suitable as a store key.
func SecretKey(secret string) string {
	sum := HashSecret(secret)
	return hex.EncodeToString(sum[:])
}
