package config

import "time"

// Default values for optional configuration fields. Feed and writer
// defaults match the public Coinbase exchange feed and the original
// deployment's pipeline settings.
const (
	DefaultFeedURL            = "wss://ws-feed.exchange.coinbase.com"
	DefaultChannel            = "matches"
	DefaultReconnectBaseDelay = 1 * time.Second
	DefaultReconnectMaxDelay  = 60 * time.Second
	DefaultSubscribeTimeout   = 10 * time.Second
	DefaultPingInterval       = 20 * time.Second
	DefaultPingTimeout        = 20 * time.Second
	DefaultFeedWriteTimeout   = 5 * time.Second
	DefaultFeedBufferSize     = 10000

	DefaultDBPort    = 5432
	DefaultDBSSLMode = "prefer"
	DefaultMaxConns  = 10
	DefaultMinConns  = 2

	DefaultBatchSize     = 100
	DefaultFlushInterval = 5 * time.Second
	DefaultWriteTimeout  = 30 * time.Second
	DefaultOnFlushError  = "drop"

	DefaultPipelineMaxRetries = 2
	DefaultPipelineRetryDelay = 30 * time.Second

	DefaultMetricsPort = 9090
	DefaultMetricsPath = "/metrics"
)

// DefaultProducts is the product set subscribed when none is configured.
var DefaultProducts = []string{"BTC-USD", "ETH-USD"}

func (c *Config) applyDefaults() {
	// Feed defaults
	if c.Feed.URL == "" {
		c.Feed.URL = DefaultFeedURL
	}
	if len(c.Feed.Products) == 0 {
		c.Feed.Products = append([]string(nil), DefaultProducts...)
	}
	if c.Feed.Channel == "" {
		c.Feed.Channel = DefaultChannel
	}
	if c.Feed.ReconnectBaseDelay == 0 {
		c.Feed.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if c.Feed.ReconnectMaxDelay == 0 {
		c.Feed.ReconnectMaxDelay = DefaultReconnectMaxDelay
	}
	if c.Feed.SubscribeTimeout == 0 {
		c.Feed.SubscribeTimeout = DefaultSubscribeTimeout
	}
	if c.Feed.PingInterval == 0 {
		c.Feed.PingInterval = DefaultPingInterval
	}
	if c.Feed.PingTimeout == 0 {
		c.Feed.PingTimeout = DefaultPingTimeout
	}
	if c.Feed.WriteTimeout == 0 {
		c.Feed.WriteTimeout = DefaultFeedWriteTimeout
	}
	if c.Feed.BufferSize == 0 {
		c.Feed.BufferSize = DefaultFeedBufferSize
	}

	// Database defaults
	if c.Database.Port == 0 {
		c.Database.Port = DefaultDBPort
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = DefaultDBSSLMode
	}
	if c.Database.MaxConns == 0 {
		c.Database.MaxConns = DefaultMaxConns
	}
	if c.Database.MinConns == 0 {
		c.Database.MinConns = DefaultMinConns
	}

	// Writers defaults
	if c.Writers.BatchSize == 0 {
		c.Writers.BatchSize = DefaultBatchSize
	}
	if c.Writers.FlushInterval == 0 {
		c.Writers.FlushInterval = DefaultFlushInterval
	}
	if c.Writers.WriteTimeout == 0 {
		c.Writers.WriteTimeout = DefaultWriteTimeout
	}
	if c.Writers.OnFlushError == "" {
		c.Writers.OnFlushError = DefaultOnFlushError
	}

	// Pipeline defaults
	if c.Pipeline.MaxRetries == 0 {
		c.Pipeline.MaxRetries = DefaultPipelineMaxRetries
	}
	if c.Pipeline.RetryDelay == 0 {
		c.Pipeline.RetryDelay = DefaultPipelineRetryDelay
	}

	// Metrics defaults
	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}
