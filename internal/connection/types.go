package connection

import (
	"errors"
	"time"
)

// Errors
var (
	ErrNotConnected     = errors.New("not connected")
	ErrStaleConnection  = errors.New("connection stale (no ping)")
	ErrConnectionClosed = errors.New("connection closed")
	ErrSubscribeTimeout = errors.New("no subscription acknowledgment")
)

// TimestampedMessage wraps raw frame data with its receive timestamp.
type TimestampedMessage struct {
	Data       []byte    // Raw frame bytes from the WebSocket
	ReceivedAt time.Time // Local timestamp when ReadMessage() returned
}

// subscribeRequest is the outbound subscription message. The feed replies
// with a "subscriptions" frame acknowledging the channel/product set.
type subscribeRequest struct {
	Type       string   `json:"type"`
	ProductIDs []string `json:"product_ids"`
	Channels   []string `json:"channels"`
}

// envelope is the minimal decode used to discriminate frame types before
// full normalization.
type envelope struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Reason  string `json:"reason"`
}

// ClientConfig configures a WebSocket client.
type ClientConfig struct {
	URL          string        // Feed URL (e.g. wss://ws-feed.exchange.coinbase.com)
	PingInterval time.Duration // How often to send keepalive pings
	PingTimeout  time.Duration // Max silence on ping/pong before the connection is stale
	WriteTimeout time.Duration // Write deadline for sends
	BufferSize   int           // Message channel buffer size

	// OnDrop, when set, is called once per frame discarded because the
	// message buffer was full.
	OnDrop func()
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		PingInterval: 20 * time.Second,
		PingTimeout:  20 * time.Second,
		WriteTimeout: 5 * time.Second,
		BufferSize:   10000,
	}
}

// ManagerConfig configures the Connection Manager.
type ManagerConfig struct {
	URL      string   // Feed URL
	Products []string // Product identifiers to subscribe
	Channel  string   // Logical stream (e.g. "matches")

	SubscribeTimeout   time.Duration // Max wait for the subscription ack
	ReconnectBaseDelay time.Duration // Initial reconnect wait
	ReconnectMaxDelay  time.Duration // Reconnect wait ceiling
	PingInterval       time.Duration
	PingTimeout        time.Duration
	WriteTimeout       time.Duration
	BufferSize         int
}

// DefaultManagerConfig returns sensible defaults.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		Channel:            "matches",
		SubscribeTimeout:   10 * time.Second,
		ReconnectBaseDelay: 1 * time.Second,
		ReconnectMaxDelay:  60 * time.Second,
		PingInterval:       20 * time.Second,
		PingTimeout:        20 * time.Second,
		WriteTimeout:       5 * time.Second,
		BufferSize:         10000,
	}
}
