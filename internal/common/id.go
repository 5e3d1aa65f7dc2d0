package common

import (
	"crypto/rand"
	"fmt"
	"regexp"

	"github.com/google/uuid"
)

// Public identifiers are 21 characters drawn from a lowercase alphanumeric
// alphabet, so they are URL-safe without escaping.
const (
	publicIDLength   = 21
	publicIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
)

var publicIDPattern = regexp.MustCompile(fmt.Sprintf("^[%s]{%d}$", publicIDAlphabet, publicIDLength))

// NewPublicID generates a new workflow public identifier.
func NewPublicID() (string, error) {
	buf := make([]byte, publicIDLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate public id: %w", err)
	}

	id := make([]byte, publicIDLength)
	for i, b := range buf {
		id[i] = publicIDAlphabet[int(b)%len(publicIDAlphabet)]
	}
	return string(id), nil
}

// IsValidPublicID reports whether s has the shape of a public identifier.
func IsValidPublicID(s string) bool {
	return publicIDPattern.MatchString(s)
}

// NewWorkerID generates a unique worker identity with the "worker_" prefix
// Format: worker_<uuid>
func NewWorkerID() string {
	return "worker_" + uuid.New().String()
}
