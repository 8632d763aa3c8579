package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	yaml := `
feed:
  url: wss://ws-feed-public.sandbox.exchange.coinbase.com
  products: [BTC-USD, ETH-USD, SOL-USD]
  channel: matches
database:
  host: localhost
  port: 5432
  name: crypto_dw
  user: ingest
  password: secret
writers:
  batch_size: 250
  flush_interval: 2s
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Feed.URL != "wss://ws-feed-public.sandbox.exchange.coinbase.com" {
		t.Errorf("Feed.URL = %q", cfg.Feed.URL)
	}
	if len(cfg.Feed.Products) != 3 {
		t.Errorf("Feed.Products = %v, want 3 entries", cfg.Feed.Products)
	}
	if cfg.Database.Host != "localhost" {
		t.Errorf("Database.Host = %q, want %q", cfg.Database.Host, "localhost")
	}
	if cfg.Writers.BatchSize != 250 {
		t.Errorf("Writers.BatchSize = %d, want 250", cfg.Writers.BatchSize)
	}
	if cfg.Writers.FlushInterval != 2*time.Second {
		t.Errorf("Writers.FlushInterval = %v, want 2s", cfg.Writers.FlushInterval)
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_DB_PASSWORD", "secret123")

	yaml := `
database:
  host: localhost
  name: crypto_dw
  user: ingest
  password: ${TEST_DB_PASSWORD}
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Database.Password != "secret123" {
		t.Errorf("Database.Password = %q, want %q", cfg.Database.Password, "secret123")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	yaml := `
database:
  host: localhost
  name: crypto_dw
  user: ingest
  password: secret
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	if cfg.Feed.URL != DefaultFeedURL {
		t.Errorf("Feed.URL = %q, want default %q", cfg.Feed.URL, DefaultFeedURL)
	}
	if cfg.Feed.Channel != DefaultChannel {
		t.Errorf("Feed.Channel = %q, want default %q", cfg.Feed.Channel, DefaultChannel)
	}
	if len(cfg.Feed.Products) != len(DefaultProducts) {
		t.Errorf("Feed.Products = %v, want defaults %v", cfg.Feed.Products, DefaultProducts)
	}
	if cfg.Feed.ReconnectBaseDelay != DefaultReconnectBaseDelay {
		t.Errorf("Feed.ReconnectBaseDelay = %v, want default %v", cfg.Feed.ReconnectBaseDelay, DefaultReconnectBaseDelay)
	}
	if cfg.Database.Port != DefaultDBPort {
		t.Errorf("Database.Port = %d, want default %d", cfg.Database.Port, DefaultDBPort)
	}
	if cfg.Writers.BatchSize != DefaultBatchSize {
		t.Errorf("Writers.BatchSize = %d, want default %d", cfg.Writers.BatchSize, DefaultBatchSize)
	}
	if cfg.Writers.FlushInterval != DefaultFlushInterval {
		t.Errorf("Writers.FlushInterval = %v, want default %v", cfg.Writers.FlushInterval, DefaultFlushInterval)
	}
	if cfg.Writers.OnFlushError != DefaultOnFlushError {
		t.Errorf("Writers.OnFlushError = %q, want default %q", cfg.Writers.OnFlushError, DefaultOnFlushError)
	}
	if cfg.Metrics.Port != DefaultMetricsPort {
		t.Errorf("Metrics.Port = %d, want default %d", cfg.Metrics.Port, DefaultMetricsPort)
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Feed: FeedConfig{
				URL:                "wss://ws-feed.exchange.coinbase.com",
				Products:           []string{"BTC-USD"},
				Channel:            "matches",
				ReconnectBaseDelay: time.Second,
				ReconnectMaxDelay:  time.Minute,
				BufferSize:         100,
			},
			Database: DBConfig{
				Host: "localhost", Name: "crypto_dw", User: "ingest", Password: "secret",
				MaxConns: 10, MinConns: 2,
			},
			Writers: WritersConfig{
				BatchSize:     100,
				FlushInterval: 5 * time.Second,
				WriteTimeout:  30 * time.Second,
				OnFlushError:  "drop",
			},
			Metrics: MetricsConfig{Port: 9090},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: "",
		},
		{
			name:    "missing feed url",
			mutate:  func(c *Config) { c.Feed.URL = "" },
			wantErr: "feed.url is required",
		},
		{
			name:    "non-websocket feed url",
			mutate:  func(c *Config) { c.Feed.URL = "https://example.com" },
			wantErr: `feed.url must be a ws:// or wss:// URL, got "https://example.com"`,
		},
		{
			name:    "empty product list",
			mutate:  func(c *Config) { c.Feed.Products = nil },
			wantErr: "feed.products must name at least one product",
		},
		{
			name:    "missing database host",
			mutate:  func(c *Config) { c.Database.Host = "" },
			wantErr: "database.host is required",
		},
		{
			name:    "missing database password",
			mutate:  func(c *Config) { c.Database.Password = "" },
			wantErr: "database.password is required",
		},
		{
			name:    "min_conns exceeds max_conns",
			mutate:  func(c *Config) { c.Database.MinConns = 20 },
			wantErr: "database.min_conns (20) cannot exceed max_conns (10)",
		},
		{
			name:    "zero batch size",
			mutate:  func(c *Config) { c.Writers.BatchSize = 0 },
			wantErr: "writers.batch_size must be >= 1",
		},
		{
			name:    "unsupported flush error policy",
			mutate:  func(c *Config) { c.Writers.OnFlushError = "retry" },
			wantErr: `writers.on_flush_error: unsupported policy "retry" (only "drop")`,
		},
		{
			name: "max delay below base delay",
			mutate: func(c *Config) {
				c.Feed.ReconnectBaseDelay = time.Minute
				c.Feed.ReconnectMaxDelay = time.Second
			},
			wantErr: "feed.reconnect_max_delay (1s) cannot be below reconnect_base_delay (1m0s)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
			} else {
				if err == nil {
					t.Errorf("Validate() expected error containing %q, got nil", tt.wantErr)
				} else if err.Error() != tt.wantErr {
					t.Errorf("Validate() error = %q, want %q", err.Error(), tt.wantErr)
				}
			}
		})
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}
