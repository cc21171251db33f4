package api

import (
	"crypto/rand"
	"math/big"
	"regexp"
)

const (
	idLength = 24
	charset  = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	sandboxIDPrefix = "sb_"
)

var sandboxIDPattern = regexp.MustCompile(`^sb_[a-zA-Z0-9]{24}$`)

// NewSandboxID generates a new sandbox ID with the "sb_" prefix followed by
// 24 cryptographically random alphanumeric characters.
func NewSandboxID() string {
	return sandboxIDPrefix + randomAlphanumeric(idLength)
}

// ValidateSandboxID checks whether the given string is a valid sandbox ID
// (matches "sb_" + 24 alphanumeric characters).
func ValidateSandboxID(id string) bool {
	return sandboxIDPattern.MatchString(id)
}

func randomAlphanumeric(n int) string {
	max := big.NewInt(int64(len(charset)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic("crypto/rand failed: " + err.Error())
		}
		b[i] = charset[idx.Int64()]
	}
	return string(b)
}
