package config

import "time"

// Config is the root configuration shared by the ingestor and the batch
// pipeline. Loaded from YAML with ${VAR} environment expansion; a .env
// file (if present) is loaded by the binaries before config parsing.
type Config struct {
	Feed     FeedConfig     `yaml:"feed"`
	Database DBConfig       `yaml:"database"`
	Writers  WritersConfig  `yaml:"writers"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// FeedConfig holds the exchange WebSocket feed settings.
type FeedConfig struct {
	URL      string   `yaml:"url"`
	Products []string `yaml:"products"`
	Channel  string   `yaml:"channel"`

	ReconnectBaseDelay time.Duration `yaml:"reconnect_base_delay"`
	ReconnectMaxDelay  time.Duration `yaml:"reconnect_max_delay"`
	SubscribeTimeout   time.Duration `yaml:"subscribe_timeout"`
	PingInterval       time.Duration `yaml:"ping_interval"`
	PingTimeout        time.Duration `yaml:"ping_timeout"`
	WriteTimeout       time.Duration `yaml:"write_timeout"`
	BufferSize         int           `yaml:"buffer_size"`
}

// DBConfig holds the warehouse connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// WritersConfig holds batching and flush settings for the bronze sink.
type WritersConfig struct {
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	WriteTimeout  time.Duration `yaml:"write_timeout"`

	// OnFlushError selects what happens to a batch whose write failed.
	// Only "drop" is supported today (count one error, discard the batch);
	// the knob exists so a dead-letter policy can be added without
	// changing call sites.
	OnFlushError string `yaml:"on_flush_error"`
}

// PipelineConfig holds transform step retry settings.
type PipelineConfig struct {
	MaxRetries int           `yaml:"max_retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`
}

// MetricsConfig holds the health/metrics HTTP server settings.
type MetricsConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}
