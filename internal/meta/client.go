package meta

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/radiusdt/agency-portal/internal/apperr"
	"github.com/radiusdt/agency-portal/internal/config"
	"github.com/radiusdt/agency-portal/internal/json"
	"github.com/radiusdt/agency-portal/internal/metrics"
)

const maxBodyBytes = 16 << 20

// Client performs read calls against the Graph API. Each call is retried on
// transport failures and 5xx responses and runs behind a circuit breaker.
// Structured API errors are returned at once as *apperr.UpstreamRejectedError.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer
}

// NewClient creates a Graph API client. m may be nil.
func NewClient(cfg config.MetaConfig, logger *zap.Logger, m *metrics.Metrics) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryBaseDelay,
		logger:     logger,
		metrics:    m,
		tracer:     otel.Tracer("github.com/radiusdt/agency-portal/internal/meta"),
	}
	if c.retryDelay <= 0 {
		c.retryDelay = 200 * time.Millisecond
	}
	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "meta-graph",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// A rejected request proves the platform is reachable.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, apperr.ErrUpstreamRejected)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return c
}

// get fetches path with params and decodes the JSON body into dst. endpoint
// labels metrics, spans and logs; the access token never appears in them.
func (c *Client) get(ctx context.Context, endpoint, path string, params url.Values, dst any) error {
	ctx, span := c.tracer.Start(ctx, "meta."+endpoint,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("meta.path", path)),
	)
	defer span.End()

	u := c.baseURL + "/" + strings.TrimLeft(path, "/") + "?" + params.Encode()

	attempt := func() error {
		_, err := c.breaker.Execute(func() (interface{}, error) {
			return nil, c.do(ctx, endpoint, u, dst)
		})
		switch {
		case err == nil:
			return nil
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			return backoff.Permanent(fmt.Errorf("%w: %s: %v", apperr.ErrTransport, endpoint, err))
		case errors.Is(err, apperr.ErrUpstreamRejected):
			return backoff.Permanent(err)
		case ctx.Err() != nil:
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.retryDelay
	policy.MaxElapsedTime = 0
	retries := c.maxRetries
	if retries < 0 {
		retries = 0
	}
	bo := backoff.WithMaxRetries(backoff.WithContext(policy, ctx), uint64(retries))

	err := backoff.RetryNotify(attempt, bo, func(err error, wait time.Duration) {
		if c.metrics != nil {
			c.metrics.RecordUpstreamRetry(endpoint)
		}
		c.logger.Warn("retrying ad platform request",
			zap.String("endpoint", endpoint),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// do performs one HTTP round-trip.
func (c *Client) do(ctx context.Context, endpoint, u string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("build request: %w", err))
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.record(endpoint, 0, start)
		// url.Error embeds the full URL, token included.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return fmt.Errorf("%w: %s: %v", apperr.ErrTransport, endpoint, err)
	}
	defer resp.Body.Close()
	c.record(endpoint, resp.StatusCode, start)

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: %s: read body: %v", apperr.ErrTransport, endpoint, err)
	}

	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error != nil {
		return &apperr.UpstreamRejectedError{
			Message:   env.Error.Message,
			Type:      env.Error.Type,
			Code:      env.Error.Code,
			FBTraceID: env.Error.FBTraceID,
		}
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: %s: status %d", apperr.ErrTransport, endpoint, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &apperr.UpstreamRejectedError{
			Message: fmt.Sprintf("unexpected status %d", resp.StatusCode),
			Code:    resp.StatusCode,
		}
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return backoff.Permanent(fmt.Errorf("%w: %s: malformed response: %v", apperr.ErrTransport, endpoint, err))
	}
	return nil
}

func (c *Client) record(endpoint string, status int, start time.Time) {
	if c.metrics != nil {
		c.metrics.RecordUpstream(endpoint, status, time.Since(start))
	}
}

// Me returns the identity behind token.
func (c *Client) Me(ctx context.Context, token string) (*Me, error) {
	params := url.Values{}
	params.Set("fields", "id,name")
	params.Set("access_token", token)

	var me Me
	if err := c.get(ctx, "me", "me", params, &me); err != nil {
		return nil, err
	}
	return &me, nil
}
