// Package probe performs shallow post-install connectivity checks against
// the deployed services.
package probe

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"
)

// Endpoint is one service address to check.
type Endpoint struct {
	Service string
	// Addr is host:port for TCP checks.
	Addr string
	// URL, when set, upgrades the check to an HTTP GET.
	URL string
}

// Result is the outcome of probing one endpoint.
type Result struct {
	Endpoint Endpoint
	Healthy  bool
	Detail   string
}

// Dialer opens TCP connections, injectable for tests.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// HTTPClient issues HTTP requests, injectable for tests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Prober polls endpoints until they respond or a deadline passes.
type Prober struct {
	dialer   Dialer
	client   HTTPClient
	interval time.Duration
}

// Option adjusts a Prober.
type Option func(*Prober)

// WithDialer replaces the TCP dialer.
func WithDialer(d Dialer) Option {
	return func(p *Prober) { p.dialer = d }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c HTTPClient) Option {
	return func(p *Prober) { p.client = c }
}

// WithInterval sets the polling interval.
func WithInterval(interval time.Duration) Option {
	return func(p *Prober) { p.interval = interval }
}

// New constructs a Prober with production defaults.
func New(opts ...Option) *Prober {
	p := &Prober{
		dialer:   &net.Dialer{Timeout: 3 * time.Second},
		client:   &http.Client{Timeout: 5 * time.Second},
		interval: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// DefaultEndpoints returns the stack's standard service endpoints for a
// host, usually localhost.
func DefaultEndpoints(host string) []Endpoint {
	return []Endpoint{
		{Service: "agixt", Addr: net.JoinHostPort(host, "7437"), URL: fmt.Sprintf("http://%s:7437/", host)},
		{Service: "agixtinteractive", Addr: net.JoinHostPort(host, "3437"), URL: fmt.Sprintf("http://%s:3437/", host)},
		{Service: "ezlocalai", Addr: net.JoinHostPort(host, "8091"), URL: fmt.Sprintf("http://%s:8091/", host)},
	}
}

// Check probes each endpoint once and returns per-endpoint results.
func (p *Prober) Check(ctx context.Context, endpoints []Endpoint) []Result {
	results := make([]Result, 0, len(endpoints))
	for _, endpoint := range endpoints {
		results = append(results, p.checkOne(ctx, endpoint))
	}
	return results
}

// Wait polls each endpoint until it becomes healthy or the context
// deadline expires, returning the final results. All endpoints are given
// the full window; a service that comes up late still counts.
func (p *Prober) Wait(ctx context.Context, endpoints []Endpoint) []Result {
	pending := make(map[string]Endpoint, len(endpoints))
	results := make(map[string]Result, len(endpoints))
	for _, endpoint := range endpoints {
		pending[endpoint.Service] = endpoint
		results[endpoint.Service] = Result{Endpoint: endpoint, Detail: "not checked"}
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for len(pending) > 0 {
		for service, endpoint := range pending {
			result := p.checkOne(ctx, endpoint)
			results[service] = result
			if result.Healthy {
				delete(pending, service)
			}
		}
		if len(pending) == 0 {
			break
		}
		select {
		case <-ctx.Done():
			out := make([]Result, 0, len(endpoints))
			for _, endpoint := range endpoints {
				out = append(out, results[endpoint.Service])
			}
			return out
		case <-ticker.C:
		}
	}

	out := make([]Result, 0, len(endpoints))
	for _, endpoint := range endpoints {
		out = append(out, results[endpoint.Service])
	}
	return out
}

func (p *Prober) checkOne(ctx context.Context, endpoint Endpoint) Result {
	result := Result{Endpoint: endpoint}

	conn, err := p.dialer.DialContext(ctx, "tcp", endpoint.Addr)
	if err != nil {
		result.Detail = fmt.Sprintf("tcp %s: %v", endpoint.Addr, err)
		return result
	}
	conn.Close()

	if endpoint.URL == "" {
		result.Healthy = true
		result.Detail = "port open"
		return result
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.URL, nil)
	if err != nil {
		result.Detail = fmt.Sprintf("build request: %v", err)
		return result
	}
	resp, err := p.client.Do(req)
	if err != nil {
		result.Detail = fmt.Sprintf("http %s: %v", endpoint.URL, err)
		return result
	}
	resp.Body.Close()

	// 404 still proves the server answers; only transport errors and 5xx
	// count as unhealthy.
	if resp.StatusCode < 500 {
		result.Healthy = true
		result.Detail = fmt.Sprintf("http %d", resp.StatusCode)
		return result
	}
	result.Detail = fmt.Sprintf("http %d", resp.StatusCode)
	return result
}

// Unhealthy filters results down to failures.
func Unhealthy(results []Result) []Result {
	var out []Result
	for _, result := range results {
		if !result.Healthy {
			out = append(out, result)
		}
	}
	return out
}
