package hub

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// defaultPingInterval is how often the pinger probes the hub.
const defaultPingInterval = 20 * time.Second

// failureLogThreshold is the consecutive-failure count that triggers a
// warning log. The stored endpoint is never dropped; the kiosk reconnects
// automatically once the hub answers again.
const failureLogThreshold = 3

// Pinger periodically probes the hub's liveness endpoint. It doubles as the
// kiosk heartbeat: the hub tracks connected kiosks by the ping origin.
type Pinger struct {
	client   *Client
	interval time.Duration

	mu         sync.Mutex
	failures   int
	lastPingOK bool
}

// NewPinger creates a Pinger for client. interval <= 0 selects the default
// 20 seconds.
func NewPinger(client *Client, interval time.Duration) *Pinger {
	if interval <= 0 {
		interval = defaultPingInterval
	}
	return &Pinger{client: client, interval: interval}
}

// Run probes the hub until ctx is cancelled. It pings once immediately, then
// on every interval tick.
func (p *Pinger) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.pingOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.pingOnce(ctx)
		}
	}
}

// Healthy reports whether the most recent ping succeeded. Used by the
// readiness handler.
func (p *Pinger) Healthy() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastPingOK
}

// ConsecutiveFailures returns the current failure streak length.
func (p *Pinger) ConsecutiveFailures() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failures
}

func (p *Pinger) pingOnce(ctx context.Context) {
	err := p.client.Ping(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()

	if err == nil {
		if p.failures >= failureLogThreshold {
			slog.Info("hub: reachable again", "after_failures", p.failures)
		}
		p.failures = 0
		p.lastPingOK = true
		return
	}

	p.failures++
	p.lastPingOK = false
	if p.failures == failureLogThreshold {
		slog.Warn("hub: ping failing, keeping endpoint and retrying",
			"endpoint", p.client.BaseURL(),
			"consecutive_failures", p.failures,
			"err", err,
		)
	} else {
		slog.Debug("hub: ping failed", "consecutive_failures", p.failures, "err", err)
	}
}
