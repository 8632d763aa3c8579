package connection

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"cryptodw/internal/model"
	"cryptodw/internal/normalize"
	"cryptodw/internal/stats"
)

// EventBuffer receives normalized trade events from the manager. The call
// is synchronous: a size-triggered flush runs on the receive path.
type EventBuffer interface {
	Add(ctx context.Context, ev model.TradeEvent)
}

// Manager maintains the feed subscription for the life of the process.
// Connection loss is never fatal; only context cancellation ends Run.
type Manager struct {
	cfg    ManagerConfig
	buffer EventBuffer
	stats  *stats.Collector
	logger *slog.Logger

	state atomic.Int32 // model.ConnectionState

	// newClient is a seam for tests; production uses NewClient.
	newClient func(ClientConfig, *slog.Logger) Client
}

// NewManager creates a new Connection Manager.
func NewManager(cfg ManagerConfig, buffer EventBuffer, st *stats.Collector, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		cfg:       cfg,
		buffer:    buffer,
		stats:     st,
		logger:    logger,
		newClient: NewClient,
	}
}

// State returns the current connection state.
func (m *Manager) State() model.ConnectionState {
	return model.ConnectionState(m.state.Load())
}

// setState records and logs a state transition.
func (m *Manager) setState(s model.ConnectionState) {
	old := model.ConnectionState(m.state.Swap(int32(s)))
	if old != s {
		m.logger.Info("connection state changed", "from", old, "to", s)
	}
}

// Run connects, subscribes, and receives until ctx is canceled. On any
// transport failure it waits with exponential backoff and reconnects;
// attempts are unbounded.
func (m *Manager) Run(ctx context.Context) error {
	defer m.setState(model.StateDisconnected)

	delay := m.cfg.ReconnectBaseDelay

	for {
		if ctx.Err() != nil {
			return nil
		}

		m.setState(model.StateConnecting)

		client := m.newClient(ClientConfig{
			URL:          m.cfg.URL,
			PingInterval: m.cfg.PingInterval,
			PingTimeout:  m.cfg.PingTimeout,
			WriteTimeout: m.cfg.WriteTimeout,
			BufferSize:   m.cfg.BufferSize,
			OnDrop:       m.stats.IncDropped,
		}, m.logger)

		if err := client.Connect(ctx); err != nil {
			m.stats.IncErrors()
			m.setState(model.StateDisconnected)
			m.logger.Warn("connect failed", "error", err, "retry_in", delay)
			if !sleepCtx(ctx, delay) {
				return nil
			}
			delay = nextDelay(delay, m.cfg.ReconnectMaxDelay)
			continue
		}

		// Reset backoff as soon as the dial succeeds.
		delay = m.cfg.ReconnectBaseDelay

		err := m.session(ctx, client)
		client.Close()

		if ctx.Err() != nil {
			m.setState(model.StateClosing)
			return nil
		}

		m.setState(model.StateDisconnected)
		if err != nil {
			m.stats.IncErrors()
			m.logger.Warn("connection lost", "error", err, "retry_in", delay)
		}

		if !sleepCtx(ctx, delay) {
			return nil
		}
		delay = nextDelay(delay, m.cfg.ReconnectMaxDelay)
	}
}

// session subscribes and processes frames until the connection fails or
// ctx is canceled. Returns nil only on cancellation.
func (m *Manager) session(ctx context.Context, client Client) error {
	if err := m.subscribe(client); err != nil {
		return err
	}

	// The feed must acknowledge the subscription; frames received before
	// the ack are not guaranteed well-formed and are not processed.
	ackTimer := time.NewTimer(m.cfg.SubscribeTimeout)
	defer ackTimer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-ackTimer.C:
			if m.State() != model.StateSubscribed {
				return ErrSubscribeTimeout
			}

		case err := <-client.Errors():
			return err

		case msg, ok := <-client.Messages():
			if !ok {
				return ErrConnectionClosed
			}
			m.handleFrame(ctx, msg.Data)
		}
	}
}

// subscribe sends the subscription request for the configured channel and
// product set.
func (m *Manager) subscribe(client Client) error {
	req := subscribeRequest{
		Type:       "subscribe",
		ProductIDs: m.cfg.Products,
		Channels:   []string{m.cfg.Channel},
	}

	data, err := json.Marshal(req)
	if err != nil {
		return err
	}
	return client.Send(data)
}

// handleFrame classifies a single inbound frame.
func (m *Manager) handleFrame(ctx context.Context, data []byte) {
	if m.State() != model.StateSubscribed {
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			return
		}
		switch env.Type {
		case "subscriptions":
			m.setState(model.StateSubscribed)
			m.logger.Info("subscribed",
				"channel", m.cfg.Channel,
				"products", m.cfg.Products,
			)
		case "error":
			m.stats.IncErrors()
			m.logger.Warn("feed rejected subscription",
				"message", env.Message,
				"reason", env.Reason,
			)
		}
		return
	}

	ev, err := normalize.Normalize(m.cfg.Channel, data)
	switch {
	case errors.Is(err, normalize.ErrNotTrade):
		// Other frame types are discarded silently.
		return
	case err != nil:
		m.stats.IncErrors()
		m.logger.Warn("malformed frame", "error", err)
		return
	}

	m.stats.IncReceived()
	m.buffer.Add(ctx, ev)
}

// nextDelay doubles the reconnect delay up to the ceiling.
func nextDelay(d, ceiling time.Duration) time.Duration {
	d *= 2
	if d > ceiling {
		d = ceiling
	}
	return d
}

// sleepCtx waits for d or until ctx is canceled. Returns false on cancel.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
