package utils

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"math/big"
	"strings"
)

// GenerateNumericCode returns a uniformly random string of length decimal digits.
func GenerateNumericCode(length int) (string, error) {
	if length <= 0 {
		return "", errors.New("code length must be positive")
	}
	var b strings.Builder
	b.Grow(length)
	ten := big.NewInt(10)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}

// NewLinkCode returns nBytes of randomness as upper-case hex.
func NewLinkCode(nBytes int) (string, error) {
	if nBytes <= 0 {
		nBytes = 16
	}
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(b)), nil
}
