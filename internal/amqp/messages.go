package amqp

import (
	"encoding/json"
	"errors"
	"fmt"

	"budgetly/internal/core"
)

const contentType = "application/json"

// EncodeLedgerEvent renders ev as a message body.
func EncodeLedgerEvent(ev core.LedgerEvent) ([]byte, error) {
	return json.Marshal(ev)
}

// DecodeLedgerEvent parses a message body and rejects events missing a type
// or user.
func DecodeLedgerEvent(data []byte) (core.LedgerEvent, error) {
	var ev core.LedgerEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return core.LedgerEvent{}, fmt.Errorf("unmarshal ledger event: %w", err)
	}
	if ev.Type == "" || ev.UserID == "" {
		return core.LedgerEvent{}, errors.New("ledger event missing type or user_id")
	}
	return ev, nil
}
