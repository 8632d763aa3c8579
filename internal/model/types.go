package model

import (
	"encoding/json"
	"time"
)

// TradeEvent is one normalized execution record extracted from the feed.
// It is immutable after creation: the Connection Manager builds it via the
// normalizer and hands it to the buffer, which owns it until a batch write
// is acknowledged or permanently fails.
type TradeEvent struct {
	Channel     string          // Logical stream identifier (e.g. "matches")
	Payload     json.RawMessage // Original frame, preserved verbatim for downstream typed parsing
	Fingerprint string          // SHA-1 hex of the canonicalized payload (advisory dedup)
	EventTime   *time.Time      // Domain timestamp from the payload; nil if absent or unparsable
}

// ConnectionState describes the feed session lifecycle.
type ConnectionState int32

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateSubscribed
	StateClosing
)

// String returns the lowercase state name for logging.
func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateSubscribed:
		return "subscribed"
	case StateClosing:
		return "closing"
	default:
		return "unknown"
	}
}
