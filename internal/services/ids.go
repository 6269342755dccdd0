package services

import (
	"strings"

	"github.com/google/uuid"
)

func newUUID() string {
	return uuid.NewString()
}

// randomSuffix returns n lowercase hex characters.
func randomSuffix(n int) string {
	s := strings.ReplaceAll(uuid.NewString(), "-", "")
	if n > len(s) {
		n = len(s)
	}
	return s[:n]
}
