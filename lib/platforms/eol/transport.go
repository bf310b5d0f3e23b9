package eol

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"gaokao-admissions/lib/restyutil"
	"gaokao-admissions/lib/telemetry"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	DefaultQueryURL  = "https://api.eol.cn/web/api/"
	DefaultStaticURL = "https://static-data.gaokao.cn/www/2.0"
)

type TransportOptions struct {
	QueryURL  string
	StaticURL string
	Timeout   time.Duration
	// MaxAttempts bounds the automatic retries on 500/502, the first try included.
	MaxAttempts int
	// the wait after the n-th failed attempt is RetryWait * 2^(n-1), capped at RetryMaxWait
	RetryWait    time.Duration
	RetryMaxWait time.Duration
	// RequestsPerSecond caps the raw request rate, 0 disables the limiter.
	RequestsPerSecond float64
	// Dump receives every request/response pair when set.
	Dump restyutil.InstrumentOutput
}

func (o TransportOptions) withDefaults() TransportOptions {
	if o.QueryURL == "" {
		o.QueryURL = DefaultQueryURL
	}
	if o.StaticURL == "" {
		o.StaticURL = DefaultStaticURL
	}
	if o.Timeout <= 0 {
		o.Timeout = time.Minute
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 10
	}
	if o.RetryWait <= 0 {
		o.RetryWait = time.Second
	}
	if o.RetryMaxWait <= 0 {
		o.RetryMaxWait = 20 * time.Second
	}
	return o
}

// Transport speaks plain HTTP to both the query api and the static data host.
// It only knows about status codes, envelope codes are the Engine's business.
type Transport struct {
	http     *resty.Client
	queryURL string
}

func NewTransport(opts TransportOptions) *Transport {
	opts = opts.withDefaults()

	client := resty.New()
	client.SetTimeout(opts.Timeout)
	client.SetBaseURL(opts.StaticURL)
	client.SetHeaders(map[string]string{
		"accept":       "application/json, text/plain, */*",
		"content-type": "application/json;charset=UTF-8",
		"user-agent":   "Mozilla/5.0",
	})

	client.SetRetryCount(opts.MaxAttempts - 1)
	client.SetRetryWaitTime(opts.RetryWait)
	client.SetRetryMaxWaitTime(opts.RetryMaxWait)
	client.AddRetryCondition(isTransient)
	client.SetRetryAfter(exponentialBackoff(opts.RetryWait, opts.RetryMaxWait))

	if opts.RequestsPerSecond > 0 {
		rateLimiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
		client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return rateLimiter.Wait(req.Context())
		})
	}

	telemetry.InstrumentResty(client, "lib/platforms/eol/http")
	restyutil.InstrumentClient(client, opts.Dump)

	return &Transport{http: client, queryURL: opts.QueryURL}
}

func isTransient(res *resty.Response, err error) bool {
	if err != nil {
		return !errors.Is(err, context.Canceled) &&
			!errors.Is(err, context.DeadlineExceeded)
	}
	if res == nil {
		return false
	}
	switch res.StatusCode() {
	case http.StatusInternalServerError, http.StatusBadGateway:
		return true
	}
	return false
}

func exponentialBackoff(base, max time.Duration) resty.RetryAfterFunc {
	return func(_ *resty.Client, res *resty.Response) (time.Duration, error) {
		attempt := 1
		if res != nil && res.Request != nil && res.Request.Attempt > 0 {
			attempt = res.Request.Attempt
		}
		return backoffFor(base, max, attempt), nil
	}
}

// backoffFor is the wait after `attempt` failed tries.
func backoffFor(base, max time.Duration, attempt int) time.Duration {
	wait := base
	for i := 1; i < attempt; i++ {
		wait *= 2
		if wait >= max {
			return max
		}
	}
	if wait > max {
		return max
	}
	return wait
}

// Post sends body as JSON to the query endpoint and returns the raw response body.
func (t *Transport) Post(ctx context.Context, body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("json marshal: %w", err)
	}

	res, err := t.http.R().
		SetContext(ctx).
		SetBody(payload).
		Post(t.queryURL)
	if err != nil {
		return nil, fmt.Errorf("%w: post %s: %w", ErrNetwork, t.queryURL, err)
	}
	if res.IsError() {
		return nil, fmt.Errorf("%w: post %s: %s", ErrNetwork, t.queryURL, res.Status())
	}
	return res.Body(), nil
}

// Get fetches a path on the static data host. A 404 is reported as ErrNotFound.
func (t *Transport) Get(ctx context.Context, path string) ([]byte, error) {
	res, err := t.http.R().
		SetContext(ctx).
		Get(path)
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %w", ErrNetwork, path, err)
	}
	if res.StatusCode() == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if res.IsError() {
		return nil, fmt.Errorf("%w: get %s: %s", ErrNetwork, path, res.Status())
	}
	return res.Body(), nil
}
