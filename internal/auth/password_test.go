package auth

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHasherRoundTrip(t *testing.T) {
	h := Hasher{Cost: bcrypt.MinCost}
	hash, err := h.Hash("secret123")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if hash == "secret123" || !strings.HasPrefix(hash, "$2") {
		t.Fatalf("hash does not look like bcrypt: %q", hash)
	}
	if !h.Compare(hash, "secret123") {
		t.Fatalf("Compare rejected the right password")
	}
	if h.Compare(hash, "secret124") {
		t.Fatalf("Compare accepted the wrong password")
	}
}

func TestHasherEmptyHashNeverMatches(t *testing.T) {
	h := NewHasher()
	for _, pw := range []string{"", "anything"} {
		if h.Compare("", pw) {
			t.Fatalf("Compare(\"\", %q) = true", pw)
		}
	}
}

func TestHasherDistinctSalts(t *testing.T) {
	h := Hasher{Cost: bcrypt.MinCost}
	a, _ := h.Hash("same-password")
	b, _ := h.Hash("same-password")
	if a == b {
		t.Fatalf("two hashes of the same password are identical")
	}
}
