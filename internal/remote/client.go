// Package remote implements the HTTP client for the hosted database API:
// schema retrieval, paginated row queries, create/update/archive writes,
// the file-upload subprotocol's transport leg, property rename, and
// option creation.
//
// The wire protocol is net/http + encoding/json rather than a SQL driver —
// there is no relational sink in this system, only a page-oriented hosted
// database reachable over HTTPS.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// tokenPrefixes lists the accepted bearer-token prefixes for the hosted
// service. Validated once, before the first request is issued.
var tokenPrefixes = []string{"secret_", "ntn_"}

// allowedHost is the hosted service's API domain. Target URLs and the API
// base must resolve here; anything else is a pre-dispatch fatal error.
const allowedHost = "api.hosted-database.example"

// Config configures a Client.
type Config struct {
	Token      string
	Workspace  string
	RetryLimit int           // default 5
	RatePerSec float64       // default 3
	Timeout    time.Duration // default 60s per request
}

// Client is the hosted-database API client. Every write passes through a
// shared rate.Limiter before being sent.
type Client struct {
	cfg      Config
	base     *url.URL
	limiter  *rate.Limiter
	retryMax int

	// httpDoFn is the overridable HTTP transport seam, grounded on the
	// overridable-function-variable idiom — tests replace it to avoid real
	// network traffic.
	httpDoFn func(*http.Request) (*http.Response, error)
}

// ValidateToken checks the bearer token's prefix against the hosted
// service's known prefixes. Called once before any request.
func ValidateToken(token string) error {
	for _, p := range tokenPrefixes {
		if strings.HasPrefix(token, p) {
			return nil
		}
	}
	return fmt.Errorf("remote: token does not match any known prefix for the hosted service")
}

// ValidateTargetURL checks that rawURL is HTTP(S), resolves to allowedHost,
// and has a non-empty last path segment, which is taken as the database id.
// Whether that id names a database view or a single page is not checked.
func ValidateTargetURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("remote: invalid target url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("remote: target url scheme %q is not http(s)", u.Scheme)
	}
	if !strings.EqualFold(u.Hostname(), allowedHost) {
		return nil, fmt.Errorf("remote: target url host %q is not on the hosted service's domain", u.Hostname())
	}
	if databaseIDFromPath(u.Path) == "" {
		return nil, fmt.Errorf("remote: target url does not address a database view")
	}
	return u, nil
}

// DatabaseIDFromURL extracts the target database id from a validated
// target URL.
func DatabaseIDFromURL(u *url.URL) string {
	return databaseIDFromPath(u.Path)
}

func databaseIDFromPath(p string) string {
	parts := strings.Split(strings.Trim(p, "/"), "/")
	if len(parts) == 0 {
		return ""
	}
	last := parts[len(parts)-1]
	if i := strings.IndexByte(last, '?'); i >= 0 {
		last = last[:i]
	}
	return last
}

// New constructs a Client, validating the token and the API base URL.
func New(apiBase string, cfg Config) (*Client, error) {
	if err := ValidateToken(cfg.Token); err != nil {
		return nil, err
	}
	base, err := url.Parse(apiBase)
	if err != nil {
		return nil, fmt.Errorf("remote: invalid api base: %w", err)
	}
	if !strings.EqualFold(base.Hostname(), allowedHost) {
		return nil, fmt.Errorf("remote: api base host %q is not on the hosted service's domain", base.Hostname())
	}

	retryMax := cfg.RetryLimit
	if retryMax <= 0 {
		retryMax = 5
	}
	ratePerSec := cfg.RatePerSec
	if ratePerSec <= 0 {
		ratePerSec = 3
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	httpClient := &http.Client{Timeout: timeout}

	c := &Client{
		cfg:      cfg,
		base:     base,
		limiter:  rate.NewLimiter(rate.Limit(ratePerSec), 1),
		retryMax: retryMax,
		httpDoFn: httpClient.Do,
	}
	return c, nil
}

// doJSON issues one request, retrying on 429/5xx with exponential backoff
// capped at 60s. Writes additionally wait on the
// shared rate limiter before each attempt.
func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("remote: encode request: %w", err)
		}
	}

	ref, err := url.Parse(path)
	if err != nil {
		return fmt.Errorf("remote: invalid request path %q: %w", path, err)
	}
	u := c.base.ResolveReference(ref)

	var lastErr error
	for attempt := 0; attempt <= c.retryMax; attempt++ {
		if isWrite(method) {
			if err := c.limiter.Wait(ctx); err != nil {
				return fmt.Errorf("remote: rate limiter: %w", err)
			}
		}

		req, err := http.NewRequestWithContext(ctx, method, u.String(), bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("remote: build request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
		req.Header.Set("Content-Type", "application/json")
		if c.cfg.Workspace != "" {
			req.Header.Set("X-Workspace", c.cfg.Workspace)
		}

		resp, err := c.httpDoFn(req)
		if err != nil {
			lastErr = fmt.Errorf("remote: %s %s: %w", method, path, err)
			if !retriable(ctx, attempt, c.retryMax) {
				return lastErr
			}
			sleepBackoff(ctx, attempt, 0)
			continue
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return fmt.Errorf("remote: read response: %w", readErr)
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("remote: %s %s: status %d: %s", method, path, resp.StatusCode, string(respBody))
			if attempt == c.retryMax {
				return lastErr
			}
			log.Printf("remote: retrying %s %s after status %d (attempt %d/%d)", method, path, resp.StatusCode, attempt+1, c.retryMax)
			sleepBackoff(ctx, attempt, retryAfter(resp))
			continue
		}

		if resp.StatusCode >= 400 {
			return fmt.Errorf("remote: %s %s: status %d: %s", method, path, resp.StatusCode, string(respBody))
		}

		if out != nil && len(respBody) > 0 {
			if err := json.Unmarshal(respBody, out); err != nil {
				return fmt.Errorf("remote: decode response: %w", err)
			}
		}
		return nil
	}
	return lastErr
}

func isWrite(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPatch, http.MethodPut, http.MethodDelete:
		return true
	default:
		return false
	}
}

func retriable(ctx context.Context, attempt, max int) bool {
	return ctx.Err() == nil && attempt < max
}

// retryAfter reads the server-advised backoff interval from a 429 response,
// or zero if absent.
func retryAfter(resp *http.Response) time.Duration {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return 0
}

// sleepBackoff waits for the server-advised interval if given, otherwise an
// exponential schedule capped at 60s.
func sleepBackoff(ctx context.Context, attempt int, advised time.Duration) {
	d := advised
	if d <= 0 {
		d = time.Duration(math.Min(60, math.Pow(2, float64(attempt)))) * time.Second
	}
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}
