// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultLength is the number of digits in a code.
	DefaultLength = 6
	// bcryptCost is the cost factor for bcrypt hashing.
	bcryptCost = 10
)

var ten = big.NewInt(10)

// GenerateCode returns a numeric code of the given length with every digit
// drawn uniformly from 0-9.
func GenerateCode(length int) (string, error) {
	if length <= 0 {
		length = DefaultLength
	}

	var b strings.Builder
	b.Grow(length)
	for range length {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", fmt.Errorf("reading random digit: %w", err)
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}

// NormalizeCode strips whitespace and separators users tend to type.
func NormalizeCode(code string) string {
	code = strings.TrimSpace(code)
	code = strings.ReplaceAll(code, " ", "")
	return strings.ReplaceAll(code, "-", "")
}

func hashCode(code string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hashing code: %w", err)
	}
	return string(hash), nil
}

func codeMatches(hash, code string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)) == nil
}
