// Package diagnostics implements the connectivity probe run ahead of voice
// uploads. A probe is bounded in time and has no effect on conversation state.
package diagnostics

import (
	"context"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/longkey1/pal/internal/assistant"
	"github.com/rs/zerolog"
)

// DefaultTimeout bounds a whole probe
const DefaultTimeout = 3 * time.Second

// HealthChecker calls the backend health endpoint
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Resolver resolves host names. *net.Resolver satisfies it.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// Checker probes network and server reachability
type Checker struct {
	baseURL  string
	health   HealthChecker
	resolver Resolver
	timeout  time.Duration
	log      zerolog.Logger

	mu   sync.Mutex
	last assistant.DiagnosticsReport
}

// Option configures a Checker
type Option func(*Checker)

// WithTimeout overrides DefaultTimeout
func WithTimeout(d time.Duration) Option {
	return func(c *Checker) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithResolver overrides the system resolver
func WithResolver(r Resolver) Option {
	return func(c *Checker) {
		c.resolver = r
	}
}

// WithLogger sets the checker logger
func WithLogger(log zerolog.Logger) Option {
	return func(c *Checker) {
		c.log = log
	}
}

// NewChecker creates a probe for the backend at baseURL
func NewChecker(baseURL string, health HealthChecker, opts ...Option) *Checker {
	c := &Checker{
		baseURL:  baseURL,
		health:   health,
		resolver: net.DefaultResolver,
		timeout:  DefaultTimeout,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.last = assistant.DiagnosticsReport{APIBaseURL: baseURL}
	return c
}

// Check runs the probe. On failure it returns the report and a *assistant.ConnectionError.
func (c *Checker) Check(ctx context.Context) (assistant.DiagnosticsReport, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	report := assistant.DiagnosticsReport{APIBaseURL: c.baseURL}
	report.NetworkConnected = c.networkConnected(ctx)
	if report.NetworkConnected {
		if err := c.health.Health(ctx); err != nil {
			c.log.Debug().Err(err).Msg("health probe failed")
		} else {
			report.ServerReachable = true
		}
	}

	c.mu.Lock()
	c.last = report
	c.mu.Unlock()

	if !report.OK() {
		c.log.Warn().
			Bool("network_connected", report.NetworkConnected).
			Bool("server_reachable", report.ServerReachable).
			Str("api_base_url", report.APIBaseURL).
			Msg("connectivity check failed")
		return report, &assistant.ConnectionError{Report: report}
	}
	return report, nil
}

// Report returns the most recent report
func (c *Checker) Report() assistant.DiagnosticsReport {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// networkConnected reports whether the API host can be resolved
func (c *Checker) networkConnected(ctx context.Context) bool {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return false
	}
	host := u.Hostname()
	if host == "" {
		return false
	}
	// Literal addresses and loopback names need no lookup
	if net.ParseIP(host) != nil || host == "localhost" {
		return true
	}

	addrs, err := c.resolver.LookupHost(ctx, host)
	if err != nil {
		c.log.Debug().Err(err).Str("host", host).Msg("host lookup failed")
		return false
	}
	return len(addrs) > 0
}
