package github

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/spigell/gh-screener/internal/pacing"
)

const (
	headerRemaining = "X-RateLimit-Remaining"
	headerReset     = "X-RateLimit-Reset"

	rateLimitMarker = "rate limit"
)

// RetryTransport retries connection failures with backoff and waits out
// primary and secondary rate limits. Rate-limit waits do not consume the
// retry budget.
type RetryTransport struct {
	Base   http.RoundTripper
	Policy *pacing.Policy
	Logger *zap.Logger
}

// NewRetryTransport wraps base (http.DefaultTransport when nil).
func NewRetryTransport(base http.RoundTripper, policy *pacing.Policy, logger *zap.Logger) *RetryTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	if policy == nil {
		policy = pacing.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RetryTransport{Base: base, Policy: policy, Logger: logger}
}

func (t *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	schedule := t.Policy.Backoff()
	attempt := 0

	for {
		attempt++

		resp, err := t.Base.RoundTrip(cloneRequest(req))
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}

			wait := schedule.NextBackOff()
			if wait == backoff.Stop {
				t.Logger.Error("request failed, retries exhausted",
					zap.String("url", req.URL.String()),
					zap.Int("attempts", attempt),
					zap.Error(err),
				)
				return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
			}

			t.Logger.Warn("request failed, retrying",
				zap.String("url", req.URL.String()),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", wait),
				zap.Error(err),
			)

			if err := t.Policy.Sleep(ctx, wait); err != nil {
				return nil, err
			}
			continue
		}

		limited, err := isRateLimited(resp)
		if err != nil {
			return nil, err
		}

		if limited {
			wait := t.rateLimitWait(resp.Header)
			t.Logger.Warn("rate limit hit, waiting",
				zap.String("url", req.URL.String()),
				zap.Duration("wait", wait),
			)

			if err := t.Policy.Sleep(ctx, wait); err != nil {
				return nil, err
			}
			continue
		}

		t.warnLowQuota(req, resp.Header)

		return resp, nil
	}
}

// isRateLimited reports whether resp is a 403 rate-limit rejection. The body of
// such a response is consumed and closed. Any other 403 keeps a readable body.
func isRateLimited(resp *http.Response) (bool, error) {
	if resp.StatusCode != http.StatusForbidden {
		return false, nil
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return false, fmt.Errorf("reading 403 body: %w", err)
	}

	if strings.Contains(strings.ToLower(string(body)), rateLimitMarker) {
		return true, nil
	}

	resp.Body = io.NopCloser(bytes.NewReader(body))
	return false, nil
}

func (t *RetryTransport) rateLimitWait(h http.Header) time.Duration {
	remaining, okRemaining := intHeader(h, headerRemaining)
	reset, okReset := intHeader(h, headerReset)

	if okRemaining && okReset && remaining == 0 {
		if wait, ok := t.Policy.UntilReset(int64(reset)); ok {
			return wait
		}
	}

	return t.Policy.RateLimitFallback
}

func (t *RetryTransport) warnLowQuota(req *http.Request, h http.Header) {
	remaining, ok := intHeader(h, headerRemaining)
	if !ok || remaining >= t.Policy.LowQuotaThreshold {
		return
	}

	t.Logger.Warn("github api quota is running low",
		zap.String("url", req.URL.String()),
		zap.Int("remaining", remaining),
		zap.String("reset", h.Get(headerReset)),
	)
}

func intHeader(h http.Header, key string) (int, bool) {
	raw := strings.TrimSpace(h.Get(key))
	if raw == "" {
		return 0, false
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

// cloneRequest gives every attempt its own request so a consumed body can be
// replayed through GetBody.
func cloneRequest(req *http.Request) *http.Request {
	if req.Body == nil || req.GetBody == nil {
		return req
	}

	clone := req.Clone(req.Context())
	if body, err := req.GetBody(); err == nil {
		clone.Body = body
	}
	return clone
}
