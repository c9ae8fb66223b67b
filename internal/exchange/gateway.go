// Package exchange fetches exchange rates from the remote rate function.
//
// The remote side speaks the callable-function convention: a POST whose JSON
// body is {"data": <payload>} answered by {"result": <value>} on success or
// {"error": {"status": ..., "message": ...}} on failure. The rate payload is
// {"from_currency": "USD", "to_currency": "EUR"} and the result carries
// {"data": {"EUR": {"value": 0.92}}}. Nothing outside this package sees that shape.
package exchange

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strings"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/mmynk/flicksplit/internal/metrics"
)

var (
	// ErrNetworkUnavailable means the rate service could not be reached
	// (offline, timeout, or the service reported itself unavailable).
	ErrNetworkUnavailable = errors.New("exchange rate service unreachable")

	// ErrRateNotFound means the service answered but had no usable rate for
	// the pair, or the answer did not have the expected shape.
	ErrRateNotFound = errors.New("exchange rate not found")

	// ErrService covers any other failure reported by the rate service.
	ErrService = errors.New("exchange rate service error")
)

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 1 << 20

// RateSource converts a currency pair into a multiplier.
type RateSource interface {
	GetRate(ctx context.Context, from, to string) (float64, error)
}

// Ensure Gateway implements RateSource
var _ RateSource = (*Gateway)(nil)

// Gateway is an HTTP client for the remote exchange rate function.
// It performs no retries and no caching: every call for a distinct pair hits
// the network.
type Gateway struct {
	url     string
	client  *http.Client
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Gateway) { g.client = c }
}

// WithTimeout sets the request timeout on the gateway's HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		c := *g.client
		c.Timeout = d
		g.client = &c
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gateway) { g.logger = l }
}

// WithMetrics records fetch outcomes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gateway) { g.metrics = m }
}

// NewGateway creates a gateway that posts to url.
func NewGateway(url string, opts ...Option) *Gateway {
	g := &Gateway{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// GetRate returns how many units of to one unit of from buys.
// Identical codes return 1 without touching the network.
func (g *Gateway) GetRate(ctx context.Context, from, to string) (float64, error) {
	if from == to {
		g.metrics.ObserveRateFetch(metrics.OutcomeIdentity, 0)
		return 1, nil
	}

	start := time.Now()
	rate, err := g.fetch(ctx, from, to)
	elapsed := time.Since(start)

	switch {
	case err == nil:
		g.metrics.ObserveRateFetch(metrics.OutcomeOK, elapsed)
		g.logger.Debug("Exchange rate fetched", "from", from, "to", to, "rate", rate, "duration_ms", elapsed.Milliseconds())
	case errors.Is(err, ErrNetworkUnavailable):
		g.metrics.ObserveRateFetch(metrics.OutcomeOffline, elapsed)
		g.logger.Warn("Exchange rate service unreachable", "from", from, "to", to, "error", err)
	case errors.Is(err, ErrRateNotFound):
		g.metrics.ObserveRateFetch(metrics.OutcomeNotFound, elapsed)
		g.logger.Warn("Exchange rate not found", "from", from, "to", to, "error", err)
	case errors.Is(err, context.Canceled):
		g.logger.Debug("Exchange rate request canceled", "from", from, "to", to)
	default:
		g.metrics.ObserveRateFetch(metrics.OutcomeError, elapsed)
		g.logger.Error("Exchange rate request failed", "from", from, "to", to, "error", err)
	}
	return rate, err
}

func (g *Gateway) fetch(ctx context.Context, from, to string) (float64, error) {
	body, err := encodeRequest(from, to)
	if err != nil {
		return 0, fmt.Errorf("failed to encode rate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to build rate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(ctxErr, context.DeadlineExceeded) {
			return 0, ctxErr
		}
		if isNetworkError(err) {
			return 0, fmt.Errorf("%w: %v", ErrNetworkUnavailable, err)
		}
		return 0, fmt.Errorf("%w: %v", ErrService, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return 0, fmt.Errorf("%w: reading response: %v", ErrNetworkUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return 0, statusError(resp.StatusCode, raw)
	}
	return decodeRate(raw, to)
}

func encodeRequest(from, to string) ([]byte, error) {
	payload, err := structpb.NewStruct(map[string]any{
		"data": map[string]any{
			"from_currency": from,
			"to_currency":   to,
		},
	})
	if err != nil {
		return nil, err
	}
	return protojson.Marshal(payload)
}

// decodeRate extracts result.data[TO].value. Any deviation from that shape,
// or a missing or non-positive value, is ErrRateNotFound.
func decodeRate(raw []byte, to string) (float64, error) {
	var envelope structpb.Struct
	if err := protojson.Unmarshal(raw, &envelope); err != nil {
		return 0, fmt.Errorf("%w: malformed response: %v", ErrRateNotFound, err)
	}

	key := strings.ToUpper(to)
	entry := envelope.GetFields()["result"].GetStructValue().
		GetFields()["data"].GetStructValue().
		GetFields()[key]
	if entry == nil {
		return 0, fmt.Errorf("%w: no entry for %s", ErrRateNotFound, key)
	}

	value, ok := entry.GetStructValue().GetFields()["value"].GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, fmt.Errorf("%w: entry for %s has no numeric value", ErrRateNotFound, key)
	}
	rate := value.NumberValue
	if rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return 0, fmt.Errorf("%w: unusable value %v for %s", ErrRateNotFound, rate, key)
	}
	return rate, nil
}

// statusError maps a non-200 response. The callable convention reports
// {"error": {"status": "UNAVAILABLE", "message": "..."}}.
func statusError(code int, raw []byte) error {
	var status, message string
	var envelope structpb.Struct
	if err := protojson.Unmarshal(raw, &envelope); err == nil {
		e := envelope.GetFields()["error"].GetStructValue()
		status = e.GetFields()["status"].GetStringValue()
		message = e.GetFields()["message"].GetStringValue()
	}

	detail := fmt.Sprintf("http %d", code)
	if status != "" {
		detail += " " + status
	}
	if message != "" {
		detail += ": " + message
	}

	switch {
	case code == http.StatusServiceUnavailable,
		code == http.StatusGatewayTimeout,
		code == http.StatusRequestTimeout,
		strings.EqualFold(status, "UNAVAILABLE"),
		strings.EqualFold(status, "DEADLINE_EXCEEDED"),
		containsNetworkHint(message):
		return fmt.Errorf("%w: %s", ErrNetworkUnavailable, detail)
	case code == http.StatusNotFound, strings.EqualFold(status, "NOT_FOUND"):
		return fmt.Errorf("%w: %s", ErrRateNotFound, detail)
	default:
		return fmt.Errorf("%w: %s", ErrService, detail)
	}
}

var networkHints = []string{"network", "fetch", "timeout", "timed out", "unavailable", "connection refused", "no such host"}

func containsNetworkHint(msg string) bool {
	msg = strings.ToLower(msg)
	for _, hint := range networkHints {
		if strings.Contains(msg, hint) {
			return true
		}
	}
	return false
}

func isNetworkError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	return containsNetworkHint(err.Error())
}
