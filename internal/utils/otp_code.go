package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/yukikurage/task-tracker/internal/constants"
)

// GenerateOTPCode returns a uniformly random six digit code in [100000, 999999]
func GenerateOTPCode() (string, error) {
	span := big.NewInt(constants.OTPMax - constants.OTPMin + 1)
	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return "", fmt.Errorf("failed to generate random number: %w", err)
	}

	return strconv.FormatInt(n.Int64()+constants.OTPMin, 10), nil
}

// JoinOTPDigits concatenates the single-digit form fields in order
func JoinOTPDigits(digits []string) string {
	return strings.Join(digits, "")
}
