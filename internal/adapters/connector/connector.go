package connector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"net"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen/process-engine/internal/platform/logging"
)

const (
	instrumentationName = "github.com/jsamuelsen/process-engine/connector"

	defaultTimeout       = 10 * time.Second
	defaultMaxAttempts   = 3
	defaultInitial       = 100 * time.Millisecond
	defaultMaxInterval   = 5 * time.Second
	defaultMultiplier    = 2.0
	defaultMaxFailures   = 5
	defaultCooldown      = 30 * time.Second
	defaultHalfOpenLimit = 1

	// backoff jitter is +/-25%
	jitterFactor = 0.25

	maxErrorBody = 64 << 10
)

// RetryPolicy configures exponential backoff between attempts.
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
}

// Config configures a connector. Zero values get defaults.
type Config struct {
	// Name identifies the called service in logs, spans and health checks.
	Name string

	// BaseURL is prefixed to every request path.
	BaseURL string

	// Timeout bounds a single attempt.
	Timeout time.Duration

	Retry   RetryPolicy
	Breaker BreakerConfig

	Logger *slog.Logger

	// Transport replaces the default pooled transport.
	Transport http.RoundTripper
}

// Client is an instrumented HTTP client for one external service.
type Client struct {
	name    string
	baseURL string
	retry   RetryPolicy
	http    *http.Client
	breaker *Breaker
	logger  *slog.Logger

	tracer   trace.Tracer
	duration metric.Float64Histogram
	total    metric.Int64Counter
}

// New creates a connector client.
func New(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("connector config is required")
	}

	if cfg.Name == "" {
		return nil, errors.New("connector name is required")
	}

	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("connector %s: base URL is required", cfg.Name)
	}

	c := *cfg
	applyDefaults(&c)

	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}

	logger = logger.With(slog.String("component", "connector.Client"), slog.String("connector", c.Name))

	meter := otel.Meter(instrumentationName)

	duration, err := meter.Float64Histogram(
		"connector.request.duration",
		metric.WithDescription("Duration of connector calls, retries included"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating duration metric: %w", err)
	}

	total, err := meter.Int64Counter(
		"connector.request.total",
		metric.WithDescription("Connector calls by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating request counter: %w", err)
	}

	transport := c.Transport
	if transport == nil {
		transport = &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		}
	}

	client := &Client{
		name:     c.Name,
		baseURL:  strings.TrimSuffix(c.BaseURL, "/"),
		retry:    c.Retry,
		http:     &http.Client{Timeout: c.Timeout, Transport: transport},
		logger:   logger,
		tracer:   otel.Tracer(instrumentationName),
		duration: duration,
		total:    total,
	}

	client.breaker = NewBreaker(c.Breaker, func(from, to State) {
		logger.Warn("circuit breaker state changed",
			slog.String("from", from.String()),
			slog.String("to", to.String()),
		)
	})

	return client, nil
}

func applyDefaults(c *Config) {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}

	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = defaultMaxAttempts
	}

	if c.Retry.InitialInterval <= 0 {
		c.Retry.InitialInterval = defaultInitial
	}

	if c.Retry.MaxInterval <= 0 {
		c.Retry.MaxInterval = defaultMaxInterval
	}

	if c.Retry.Multiplier < 1 {
		c.Retry.Multiplier = defaultMultiplier
	}

	if c.Breaker.MaxFailures <= 0 {
		c.Breaker.MaxFailures = defaultMaxFailures
	}

	if c.Breaker.Cooldown <= 0 {
		c.Breaker.Cooldown = defaultCooldown
	}

	if c.Breaker.HalfOpenLimit <= 0 {
		c.Breaker.HalfOpenLimit = defaultHalfOpenLimit
	}
}

// Name identifies the connector. It is also its health check name.
func (c *Client) Name() string { return "connector:" + c.name }

// Check reports the connector unhealthy while its circuit is open.
func (c *Client) Check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if c.breaker.State() == StateOpen {
		return ErrCircuitOpen
	}

	return nil
}

// CircuitState returns the breaker state.
func (c *Client) CircuitState() State { return c.breaker.State() }

// PostJSON sends payload as JSON to path. The body is replayed on retries.
func (c *Client) PostJSON(ctx context.Context, path string, payload any, header http.Header) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding connector payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(path), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	for k, v := range header {
		req.Header[k] = v
	}

	req.Header.Set("Content-Type", "application/json")

	return c.Do(ctx, req)
}

// Do sends req with retries. Transport errors and 5xx responses are retried;
// any other response is returned to the caller, who must close its body.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	start := time.Now()
	logger := logging.FromContext(ctx).With(
		slog.String("connector", c.name),
		slog.String("method", req.Method),
		slog.String("path", req.URL.Path),
	)

	if !c.breaker.Allow() {
		c.record(ctx, req.Method, 0, start, "circuit_open")
		logger.WarnContext(ctx, "connector call blocked by circuit breaker")

		return nil, fmt.Errorf("connector %s: %w", c.name, ErrCircuitOpen)
	}

	ctx, span := c.tracer.Start(ctx, "connector "+c.name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", req.Method),
			attribute.String("http.url", req.URL.String()),
			attribute.String("peer.service", c.name),
		),
	)
	defer span.End()

	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.attempt(ctx, req, logger)
	if err != nil {
		c.breaker.Failure()
		span.SetStatus(codes.Error, err.Error())
		c.record(ctx, req.Method, 0, start, "error")
		logger.ErrorContext(ctx, "connector call failed",
			slog.Duration("duration", time.Since(start)),
			slog.Any("error", err),
		)

		return nil, err
	}

	c.breaker.Success()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode >= http.StatusBadRequest {
		span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", resp.StatusCode))
	}

	c.record(ctx, req.Method, resp.StatusCode, start, fmt.Sprintf("%dxx", resp.StatusCode/100))
	logger.DebugContext(ctx, "connector call completed",
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)

	return resp, nil
}

func (c *Client) attempt(ctx context.Context, req *http.Request, logger *slog.Logger) (*http.Response, error) {
	var lastErr error

	for n := range c.retry.MaxAttempts {
		if n > 0 {
			wait := c.backoff(n)
			logger.DebugContext(ctx, "retrying connector call",
				slog.Int("attempt", n+1),
				slog.Duration("backoff", wait),
			)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}

			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, fmt.Errorf("rewinding request body: %w", err)
				}

				req.Body = body
			}
		}

		resp, err := c.http.Do(req.WithContext(ctx))

		switch {
		case err != nil && !retryable(err):
			return nil, err
		case err != nil:
			lastErr = err
		case resp.StatusCode >= http.StatusInternalServerError:
			lastErr = newStatusError(c.name, resp.StatusCode, resp.Body)
			_ = resp.Body.Close()
		default:
			return resp, nil
		}
	}

	return nil, fmt.Errorf("connector %s: %w: %w", c.name, ErrRetriesExhausted, lastErr)
}

func (c *Client) url(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	return c.baseURL + path
}

// backoff returns initial * multiplier^(n-1), capped and jittered.
func (c *Client) backoff(n int) time.Duration {
	d := float64(c.retry.InitialInterval) * math.Pow(c.retry.Multiplier, float64(n-1))
	d = math.Min(d, float64(c.retry.MaxInterval))
	d += d * jitterFactor * (rand.Float64()*2 - 1) //nolint:gosec // jitter needs no crypto randomness

	return time.Duration(d)
}

func (c *Client) record(ctx context.Context, method string, status int, start time.Time, result string) {
	attrs := []attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("peer.service", c.name),
		attribute.String("result", result),
	}

	if status > 0 {
		attrs = append(attrs, attribute.Int("http.status_code", status))
	}

	c.duration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(attrs...))
	c.total.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var opErr *net.OpError

	return errors.As(err, &opErr)
}
