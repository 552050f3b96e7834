package utils

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
)

const Base62 = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

const digits = "0123456789"

var ErrBadLength = errors.New("length must be positive")

// GenerateRandomString draws n base62 characters from crypto/rand.
func GenerateRandomString(n int) (string, error) {
	return randomFrom(Base62, n)
}

// GenerateDigits draws n decimal digits from crypto/rand.
func GenerateDigits(n int) (string, error) {
	return randomFrom(digits, n)
}

func randomFrom(alphabet string, n int) (string, error) {
	if n <= 0 {
		return "", ErrBadLength
	}
	max := big.NewInt(int64(len(alphabet)))
	ret := make([]byte, n)
	for i := 0; i < n; i++ {
		num, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("error reading random source: %w", err)
		}
		ret[i] = alphabet[num.Int64()]
	}

	return string(ret), nil
}
