package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/flicksplit/internal/metrics"
)

// rateServer fakes the callable rate function and counts requests.
func rateServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	io.WriteString(w, body)
}

func TestGetRate_Identity(t *testing.T) {
	srv, calls := rateServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"result":{"data":{}}}`)
	})
	g := NewGateway(srv.URL)

	for _, code := range []string{"USD", "EUR", "XYZ", ""} {
		rate, err := g.GetRate(context.Background(), code, code)
		require.NoError(t, err)
		assert.Equal(t, 1.0, rate)
	}
	assert.Equal(t, int32(0), calls.Load(), "identity pairs must not hit the network")
}

func TestGetRate_Success(t *testing.T) {
	srv, calls := rateServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body struct {
			Data struct {
				From string `json:"from_currency"`
				To   string `json:"to_currency"`
			} `json:"data"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "USD", body.Data.From)
		assert.Equal(t, "eur", body.Data.To)

		writeJSON(w, http.StatusOK, `{"result":{"data":{"EUR":{"code":"EUR","value":0.92}}}}`)
	})
	m := metrics.New(prometheus.NewRegistry())
	g := NewGateway(srv.URL, WithMetrics(m))

	rate, err := g.GetRate(context.Background(), "USD", "eur")
	require.NoError(t, err)
	assert.Equal(t, 0.92, rate)

	// no caching: a second identical call fetches again
	_, err = g.GetRate(context.Background(), "USD", "eur")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGetRate_NotFound(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"missing key", http.StatusOK, `{"result":{"data":{"EUR":{"value":0.92}}}}`},
		{"zero value", http.StatusOK, `{"result":{"data":{"XYZ":{"value":0}}}}`},
		{"negative value", http.StatusOK, `{"result":{"data":{"XYZ":{"value":-3}}}}`},
		{"string value", http.StatusOK, `{"result":{"data":{"XYZ":{"value":"1.2"}}}}`},
		{"no result", http.StatusOK, `{}`},
		{"data not an object", http.StatusOK, `{"result":{"data":[1,2]}}`},
		{"not json", http.StatusOK, `<html>oops</html>`},
		{"not found status", http.StatusNotFound, `{"error":{"status":"NOT_FOUND","message":"pair unsupported"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := rateServer(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, tt.body)
			})
			rate, err := NewGateway(srv.URL).GetRate(context.Background(), "USD", "XYZ")
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrRateNotFound), "got %v", err)
			assert.False(t, errors.Is(err, ErrNetworkUnavailable))
			assert.Zero(t, rate)
		})
	}
}

func TestGetRate_NetworkUnavailable(t *testing.T) {
	t.Run("unavailable status", func(t *testing.T) {
		srv, _ := rateServer(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusServiceUnavailable, `{"error":{"status":"UNAVAILABLE","message":"try later"}}`)
		})
		_, err := NewGateway(srv.URL).GetRate(context.Background(), "USD", "EUR")
		assert.ErrorIs(t, err, ErrNetworkUnavailable)
	})

	t.Run("network hint in message", func(t *testing.T) {
		srv, _ := rateServer(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusInternalServerError, `{"error":{"status":"INTERNAL","message":"Network request failed"}}`)
		})
		_, err := NewGateway(srv.URL).GetRate(context.Background(), "USD", "EUR")
		assert.ErrorIs(t, err, ErrNetworkUnavailable)
	})

	t.Run("server down", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()
		_, err := NewGateway(url).GetRate(context.Background(), "USD", "EUR")
		assert.ErrorIs(t, err, ErrNetworkUnavailable)
	})

	t.Run("timeout", func(t *testing.T) {
		release := make(chan struct{})
		srv, _ := rateServer(t, func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		})
		defer close(release)
		_, err := NewGateway(srv.URL, WithTimeout(50*time.Millisecond)).GetRate(context.Background(), "USD", "EUR")
		assert.ErrorIs(t, err, ErrNetworkUnavailable)
	})
}

func TestGetRate_ServiceError(t *testing.T) {
	srv, _ := rateServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, `{"error":{"status":"INTERNAL","message":"boom"}}`)
	})
	_, err := NewGateway(srv.URL).GetRate(context.Background(), "USD", "EUR")
	assert.ErrorIs(t, err, ErrService)
	assert.NotErrorIs(t, err, ErrNetworkUnavailable)
	assert.NotErrorIs(t, err, ErrRateNotFound)
}

func TestGetRate_Canceled(t *testing.T) {
	srv, _ := rateServer(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewGateway(srv.URL).GetRate(ctx, "USD", "EUR")
	assert.ErrorIs(t, err, context.Canceled)
}
