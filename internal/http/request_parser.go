// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for decoding JSON request bodies and the
// bearer token header.

package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"budgetly/internal/core"
)

const maxBodyBytes = 1 << 20

// ErrInvalidBody is returned for bodies that are not a single JSON object.
var ErrInvalidBody = core.Validation("Invalid request body")

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

type profileRequest struct {
	Password string `json:"password"`
}

// budgetRequest keeps pointers so a PUT can tell an omitted field from an
// empty one. Amount stays raw so a non-numeric value reports the amount
// message rather than a body error.
type budgetRequest struct {
	Category *string         `json:"category"`
	Amount   json.RawMessage `json:"amount"`
	Month    *string         `json:"month"`
}

func (b budgetRequest) fields() core.EntryFields {
	f := core.EntryFields{Category: b.Category, Month: b.Month}
	if len(b.Amount) > 0 {
		var d decimal.Decimal
		if string(b.Amount) == "null" || d.UnmarshalJSON(b.Amount) != nil {
			// Zero fails amount validation in field order.
			d = decimal.Zero
		}
		f.Amount = &d
	}
	return f
}

// decodeJSON reads one JSON value into v. An empty body leaves v untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return ErrInvalidBody
	}
	if dec.More() {
		return ErrInvalidBody
	}
	return nil
}

// bearerToken returns the token from an "Authorization: Bearer <token>"
// header, or "" when the header is absent or uses another scheme.
func bearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
