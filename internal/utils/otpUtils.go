package utils

import (
	"crypto/rand"
	"errors"
	"math/big"
)

const otpDigits = "0123456789"

var ten = big.NewInt(int64(len(otpDigits)))

// GenerateSecureOTP returns a numeric code of the given length from crypto/rand.
func GenerateSecureOTP(length int) (string, error) {
	if length < 1 {
		return "", errors.New("otp length must be positive")
	}
	code := make([]byte, length)
	for i := range code {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		code[i] = otpDigits[n.Int64()]
	}
	return string(code), nil
}
