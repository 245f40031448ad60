// Package fetch downloads hosted installer configurations from a GitHub
// repository through the contents API.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// DefaultRepository hosts the per-deployment configuration files.
const DefaultRepository = "mocher01/agixt-configs"

// DefaultRef is the branch queried when none is configured.
const DefaultRef = "main"

const apiBase = "https://api.github.com"

// ErrNotFound reports that none of the candidate files exist for the
// requested configuration name.
var ErrNotFound = errors.New("configuration not found")

// Result is a fetched configuration file.
type Result struct {
	Name    string
	Content []byte
}

// Client fetches raw configuration files.
type Client struct {
	http       *retryablehttp.Client
	baseURL    string
	repository string
	ref        string
	token      string
}

// Option adjusts a Client.
type Option func(*Client)

// WithRepository points the client at owner/name instead of the default
// hosted repository.
func WithRepository(repository string) Option {
	return func(c *Client) { c.repository = repository }
}

// WithRef selects the git ref to read from.
func WithRef(ref string) Option {
	return func(c *Client) { c.ref = ref }
}

// WithToken authenticates API requests; required for private repositories
// and for higher rate limits.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient swaps the underlying HTTP client, used by tests.
func WithHTTPClient(client *retryablehttp.Client) Option {
	return func(c *Client) { c.http = client }
}

// WithBaseURL overrides the GitHub API endpoint, used by tests and GitHub
// Enterprise deployments.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(baseURL, "/") }
}

// NewClient constructs a Client with retry/backoff suitable for flaky
// networks during installs.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    apiBase,
		repository: DefaultRepository,
		ref:        DefaultRef,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		rc := retryablehttp.NewClient()
		rc.RetryMax = 3
		rc.RetryWaitMin = 500 * time.Millisecond
		rc.RetryWaitMax = 5 * time.Second
		rc.HTTPClient.Timeout = 30 * time.Second
		rc.Logger = nil
		c.http = rc
	}
	return c
}

// candidates returns the file names tried for a configuration name, most
// specific first.
func candidates(name string) []string {
	trimmed := strings.TrimSpace(name)
	var out []string
	if trimmed != "" {
		out = append(out, trimmed+".env")
	}
	return append(out, "agixt.config", ".env", "config.env")
}

// Fetch downloads the configuration for name, trying each candidate file
// in order. A missing candidate falls through to the next; any other HTTP
// failure aborts.
func (c *Client) Fetch(ctx context.Context, name string) (*Result, error) {
	for _, candidate := range candidates(name) {
		content, err := c.fetchFile(ctx, candidate)
		if err == nil {
			return &Result{Name: candidate, Content: content}, nil
		}
		if errors.Is(err, ErrNotFound) {
			continue
		}
		return nil, err
	}
	return nil, fmt.Errorf("%w: no candidate file for %q in %s", ErrNotFound, name, c.repository)
}

func (c *Client) fetchFile(ctx context.Context, path string) ([]byte, error) {
	url := fmt.Sprintf("%s/repos/%s/contents/%s?ref=%s", c.baseURL, c.repository, path, c.ref)

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3.raw")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", path, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		content, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		return content, nil
	case http.StatusNotFound:
		return nil, ErrNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, fmt.Errorf("fetch %s: access denied (status %d); check the GitHub token", path, resp.StatusCode)
	default:
		return nil, fmt.Errorf("fetch %s: unexpected status %d", path, resp.StatusCode)
	}
}
