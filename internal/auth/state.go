package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/sessions"
)

const (
	stateSessionName = "budgetly-oauth"
	stateKey         = "state"
	stateMaxAge      = 10 * 60
)

var ErrStateMismatch = errors.New("oauth state mismatch")

// StateStore keeps the OAuth state parameter in a signed, encrypted cookie
// between the redirect to Google and the callback.
type StateStore struct {
	store *sessions.CookieStore
}

func NewStateStore(sessionKey string, secure bool) *StateStore {
	authKey := sha256.Sum256([]byte(sessionKey + "auth"))
	encKey := sha256.Sum256([]byte(sessionKey + "encryption"))

	store := sessions.NewCookieStore(authKey[:], encKey[:])
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   stateMaxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &StateStore{store: store}
}

// Begin generates a fresh state value and stores it in the response cookie.
func (s *StateStore) Begin(w http.ResponseWriter, r *http.Request) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	state := base64.RawURLEncoding.EncodeToString(buf)

	session, _ := s.store.Get(r, stateSessionName)
	session.Values[stateKey] = state
	if err := session.Save(r, w); err != nil {
		return "", fmt.Errorf("save state cookie: %w", err)
	}
	return state, nil
}

// Verify compares got with the stored state and clears the cookie. A
// missing or undecodable cookie is a mismatch.
func (s *StateStore) Verify(w http.ResponseWriter, r *http.Request, got string) error {
	session, err := s.store.Get(r, stateSessionName)
	want, _ := session.Values[stateKey].(string)

	session.Options.MaxAge = -1
	_ = session.Save(r, w)

	if err != nil || want == "" || got == "" || subtle.ConstantTimeCompare([]byte(want), []byte(got)) != 1 {
		return ErrStateMismatch
	}
	return nil
}
