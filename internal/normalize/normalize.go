// Package normalize converts raw feed frames into TradeEvents.
//
// All functions are pure: no state, no I/O. Frame classification, content
// fingerprinting, and event-time extraction live here so the Connection
// Manager never touches message internals.
package normalize

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cryptodw/internal/model"
)

var (
	// ErrMalformed marks a frame that could not be decoded as JSON.
	// Callers count these; they never crash the receive loop.
	ErrMalformed = errors.New("malformed frame")

	// ErrNotTrade marks a well-formed frame of a type we don't ingest.
	// These are discarded silently.
	ErrNotTrade = errors.New("not a trade message")
)

// tradeType is the feed's discriminator for executed trades.
const tradeType = "match"

// Normalize classifies a raw frame and, if it is a trade, builds the
// immutable TradeEvent for it. The payload is kept verbatim; the
// fingerprint is computed over the canonical re-serialization so that
// semantically identical payloads hash identically regardless of upstream
// field ordering.
func Normalize(channel string, data []byte) (model.TradeEvent, error) {
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return model.TradeEvent{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	msgType, _ := payload["type"].(string)
	if msgType != tradeType {
		return model.TradeEvent{}, ErrNotTrade
	}

	fp, err := Fingerprint(payload)
	if err != nil {
		return model.TradeEvent{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	raw := make(json.RawMessage, len(data))
	copy(raw, data)

	return model.TradeEvent{
		Channel:     channel,
		Payload:     raw,
		Fingerprint: fp,
		EventTime:   EventTime(payload),
	}, nil
}

// Fingerprint returns the SHA-1 hex digest of the canonical serialization
// of payload. encoding/json marshals map keys in sorted order with no
// incidental whitespace, at every nesting level, which is exactly the
// canonical form the digest needs.
func Fingerprint(payload map[string]any) (string, error) {
	canonical, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	sum := sha1.Sum(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// EventTime extracts the domain timestamp from the payload's "time" field.
// Returns nil on absence or any parse failure; downstream consumers must
// tolerate missing timestamps.
func EventTime(payload map[string]any) *time.Time {
	raw, ok := payload["time"].(string)
	if !ok || raw == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return nil
	}
	return &t
}
