package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	apiVersion           = "2022-11-28"
	perPage              = "100"
	maxRateLimitAttempts = 5
	maxRateLimitWait     = 300 * time.Second
)

// ErrRateLimited is returned once the rate limit outlasts every retry.
var ErrRateLimited = errors.New("github rate limit exceeded after retries")

var nextLink = regexp.MustCompile(`<([^>]+)>;\s*rel="next"`)

// StatusError is a non-2xx API response.
type StatusError struct {
	Method string
	URL    string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.URL, e.Code, e.Body)
}

// client is a minimal REST client for the endpoints the connector reads.
type client struct {
	base    string
	token   string
	http    *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
	now     func() time.Time
	sleep   func(context.Context, time.Duration) error
}

func newClient(base, token string, rps float64, logger *zap.Logger) *client {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &client{
		base:    strings.TrimSuffix(base, "/"),
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
		now:     time.Now,
		sleep:   sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// getAll fetches path and every page after it by following the Link
// header. An object response yields a single element.
func (c *client) getAll(ctx context.Context, path string, query url.Values) ([]json.RawMessage, error) {
	q := url.Values{"per_page": {perPage}}
	for k, v := range query {
		q[k] = v
	}
	next := c.base + path + "?" + q.Encode()

	var out []json.RawMessage
	for next != "" {
		body, link, err := c.get(ctx, next)
		if err != nil {
			return nil, err
		}
		body = bytes.TrimSpace(body)
		if len(body) > 0 && body[0] == '[' {
			var page []json.RawMessage
			if err := json.Unmarshal(body, &page); err != nil {
				return nil, fmt.Errorf("failed to decode %s: %w", path, err)
			}
			out = append(out, page...)
		} else if len(body) > 0 {
			out = append(out, json.RawMessage(body))
		}

		next = ""
		if m := nextLink.FindStringSubmatch(link); m != nil {
			next = m[1]
		}
	}
	return out, nil
}

// get performs one GET, waiting out primary rate limits.
func (c *client) get(ctx context.Context, rawURL string) ([]byte, string, error) {
	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, "", err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, "", err
		}
		req.Header.Set("Authorization", "token "+c.token)
		req.Header.Set("Accept", "application/vnd.github+json")
		req.Header.Set("X-GitHub-Api-Version", apiVersion)

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, "", err
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, "", err
		}

		switch {
		case resp.StatusCode == http.StatusForbidden && strings.Contains(strings.ToLower(string(body)), "rate limit"):
			if attempt >= maxRateLimitAttempts {
				return nil, "", ErrRateLimited
			}
			wait := c.resetWait(resp.Header.Get("X-RateLimit-Reset"))
			c.logger.Warn("github rate limit hit", zap.Duration("wait", wait), zap.Int("attempt", attempt+1))
			if err := c.sleep(ctx, wait); err != nil {
				return nil, "", err
			}
		case resp.StatusCode >= 300:
			return nil, "", &StatusError{Method: req.Method, URL: rawURL, Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
		default:
			return body, resp.Header.Get("Link"), nil
		}
	}
}

// resetWait is the time until the reset epoch, at least one second and at
// most maxRateLimitWait.
func (c *client) resetWait(header string) time.Duration {
	reset, _ := strconv.ParseInt(header, 10, 64)
	wait := time.Unix(reset, 0).Sub(c.now()).Truncate(time.Second)
	return min(max(wait, time.Second), maxRateLimitWait)
}
