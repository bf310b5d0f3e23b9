package eol

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"gaokao-admissions/lib/telemetry"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = telemetry.Tracer("lib/platforms/eol")
var meter = telemetry.Meter("lib/platforms/eol")
var rateLimitedCounter, _ = meter.Int64Counter("eol.rate_limited")
var splitCounter, _ = meter.Int64Counter("eol.split")

// Poster is the part of Transport the engine depends on.
type Poster interface {
	Post(ctx context.Context, body any) ([]byte, error)
}

// Querier is anything that answers a query with a page, normally *Engine.
type Querier interface {
	Query(ctx context.Context, params Params) (Page, error)
}

type EngineOptions struct {
	// RetryInterval is the backoff after a rate limited response.
	RetryInterval time.Duration
	// QueryInterval separates the sub-requests of a split.
	QueryInterval time.Duration
	Waiter        Waiter
	// OnRateLimited is called before every rate limit backoff with the
	// number of consecutive retries for the current request.
	OnRateLimited func(ctx context.Context, retries int)
}

// Engine layers the api's envelope protocol over a Poster: it backs off and
// retries on rate limits forever, splits oversized pages and fails on
// everything else.
type Engine struct {
	transport Poster
	opts      EngineOptions
}

func NewEngine(transport Poster, opts EngineOptions) *Engine {
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = 120 * time.Second
	}
	if opts.QueryInterval < 0 {
		opts.QueryInterval = 0
	}
	if opts.Waiter == nil {
		opts.Waiter = SleepWaiter{}
	}
	return &Engine{transport: transport, opts: opts}
}

func (e *Engine) Query(ctx context.Context, params Params) (Page, error) {
	ctx, span := tracer.Start(ctx, "engine:Query")
	defer span.End()

	span.SetAttributes(
		attribute.String("eol.uri", params.URI()),
		attribute.Int("eol.page", params.Page()),
		attribute.Int("eol.size", params.Size()),
	)

	page, err := e.query(ctx, params, 0)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		return Page{}, err
	}
	span.SetAttributes(attribute.Int("eol.num_found", page.NumFound))
	return page, nil
}

func (e *Engine) query(ctx context.Context, params Params, depth int) (Page, error) {
	retries := 0
	for {
		slog.DebugContext(ctx, "sending query", "uri", params.URI(), "page", params.Page(), "size", params.Size())

		raw, err := e.transport.Post(ctx, params)
		if err != nil {
			return Page{}, err
		}
		env, err := decodeEnvelope(raw)
		if err != nil {
			return Page{}, err
		}

		switch env.Code {
		case CodeOK:
			if retries > 0 {
				slog.InfoContext(ctx, "rate limit retry succeeded", "uri", params.URI(), "retries", retries)
			}
			return decodePage(env.Data)

		case CodeRateLimited:
			retries++
			rateLimitedCounter.Add(ctx, 1)
			slog.WarnContext(
				ctx, "rate limited, backing off",
				"uri", params.URI(),
				"retry", retries,
				"wait", e.opts.RetryInterval,
			)
			if e.opts.OnRateLimited != nil {
				e.opts.OnRateLimited(ctx, retries)
			}
			err = e.opts.Waiter.Wait(ctx, e.opts.RetryInterval)
			if err != nil {
				return Page{}, err
			}

		case CodeOversize:
			return e.splitAndFetch(ctx, params, depth)

		default:
			slog.ErrorContext(ctx, "unrecoverable response", "uri", params.URI(), "code", env.Code, "message", env.Message)
			return Page{}, &ProtocolError{Code: env.Code, Message: env.Message}
		}
	}
}

// Fetch runs a query and decodes its items into T.
func Fetch[T any](ctx context.Context, q Querier, params Params) (int, []T, error) {
	page, err := q.Query(ctx, params)
	if err != nil {
		return 0, nil, err
	}
	items := make([]T, len(page.Items))
	for i, raw := range page.Items {
		err = json.Unmarshal(raw, &items[i])
		if err != nil {
			return 0, nil, fmt.Errorf("%w: %s item %d: %w", ErrDecode, params.URI(), i, err)
		}
	}
	return page.NumFound, items, nil
}
