package main

import (
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/flicksplit/internal/config"
	"github.com/mmynk/flicksplit/internal/currency"
	"github.com/mmynk/flicksplit/internal/exchange"
	"github.com/mmynk/flicksplit/internal/metrics"
	"github.com/mmynk/flicksplit/internal/middleware"
	"github.com/mmynk/flicksplit/internal/service"
	"github.com/mmynk/flicksplit/internal/storage/sqlite"
	"github.com/mmynk/flicksplit/pkg/api/apiconnect"
	"github.com/mmynk/flicksplit/pkg/logging"
)

func main() {
	cfg, err := config.Load(config.Path(""))
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.RequireExchange(); err != nil {
		slog.Error("Exchange rate service not configured", "error", err)
		os.Exit(1)
	}

	logFile := logging.SetupWithOptions(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	defer logFile.Close()

	// Initialize SQLite storage
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.DBPath)

	m := metrics.Default()
	gateway := exchange.NewGateway(cfg.Exchange.URL,
		exchange.WithTimeout(cfg.Exchange.Timeout),
		exchange.WithMetrics(m),
	)
	slog.Info("Exchange rate gateway configured", "timeout", cfg.Exchange.Timeout)

	svc := service.NewSplitService(store, gateway,
		service.WithDirectory(currency.Default()),
		service.WithMetrics(m),
	)

	interceptors := []connect.Interceptor{middleware.LoggingInterceptor(slog.Default())}
	if cfg.RateLimit.RequestsPerMinute > 0 {
		limiter := middleware.NewRateLimiter(middleware.RateLimit{
			RequestsPerMinute: float64(cfg.RateLimit.RequestsPerMinute),
			Burst:             cfg.RateLimit.Burst,
		}, apiconnect.SplitServiceGetRateProcedure)
		interceptors = append(interceptors, limiter.Interceptor())
		slog.Info("Rate limiting enabled", "requests_per_minute", cfg.RateLimit.RequestsPerMinute, "burst", cfg.RateLimit.Burst)
	}

	mux := http.NewServeMux()

	// Register Connect service
	splitPath, splitHandler := apiconnect.NewSplitServiceHandler(svc, connect.WithInterceptors(interceptors...))
	mux.Handle(splitPath, splitHandler)

	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Add logging and CORS middleware
	loggedHandler := loggingMiddleware(corsMiddleware(mux))

	// Wrap with h2c for HTTP/2 without TLS (required for Connect)
	h2cHandler := h2c.NewHandler(loggedHandler, &http2.Server{})

	addr := cfg.Addr()
	slog.Info("Connect server starting", "address", addr, "url", "http://localhost"+addr)
	if err := http.ListenAndServe(addr, h2cHandler); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

// loggingMiddleware logs all incoming requests
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		if r.URL.Path == "/metrics" || r.URL.Path == "/healthz" {
			next.ServeHTTP(w, r)
			return
		}

		slog.Debug("Request received",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"user_agent", r.UserAgent(),
		)

		next.ServeHTTP(w, r)

		slog.Info("Request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// corsMiddleware adds CORS headers for browser access
func corsMiddleware(next http.Handler) http.Handler {
	exposed := strings.Join([]string{
		"Connect-Protocol-Version",
		"Connect-Timeout-Ms",
		service.AlertTitleHeader,
		service.AlertMessageHeader,
	}, ", ")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Connect-Protocol-Version, Connect-Timeout-Ms")
		w.Header().Set("Access-Control-Expose-Headers", exposed)

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
