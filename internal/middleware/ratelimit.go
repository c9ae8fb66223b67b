package middleware

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"connectrpc.com/connect"
	"golang.org/x/time/rate"
)

// RateLimit bounds calls per client.
type RateLimit struct {
	RequestsPerMinute float64
	Burst             int
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client address for a set of procedures.
type RateLimiter struct {
	limit      RateLimit
	procedures map[string]bool

	mu       sync.Mutex
	visitors map[string]*visitor
	idleTTL  time.Duration
	clockNow func() time.Time
}

// NewRateLimiter limits the given procedures. No procedures means every
// procedure is limited.
func NewRateLimiter(limit RateLimit, procedures ...string) *RateLimiter {
	procs := make(map[string]bool, len(procedures))
	for _, p := range procedures {
		procs[p] = true
	}
	return &RateLimiter{
		limit:      limit,
		procedures: procs,
		visitors:   make(map[string]*visitor),
		idleTTL:    5 * time.Minute,
		clockNow:   time.Now,
	}
}

// Interceptor rejects calls over the limit with CodeResourceExhausted.
func (r *RateLimiter) Interceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			procedure := req.Spec().Procedure
			if len(r.procedures) > 0 && !r.procedures[procedure] {
				return next(ctx, req)
			}
			id := clientID(req.Header().Get("X-Real-IP"), req.Header().Get("X-Forwarded-For"), req.Peer().Addr)
			if !r.allow(id) {
				return nil, connect.NewError(connect.CodeResourceExhausted,
					fmt.Errorf("rate limit exceeded for %s, try again shortly", procedure))
			}
			return next(ctx, req)
		}
	}
}

func (r *RateLimiter) allow(id string) bool {
	now := r.clockNow()

	r.mu.Lock()
	defer r.mu.Unlock()

	for key, v := range r.visitors {
		if now.Sub(v.lastSeen) > r.idleTTL {
			delete(r.visitors, key)
		}
	}

	v, ok := r.visitors[id]
	if !ok {
		perSecond := r.limit.RequestsPerMinute / 60.0
		if perSecond <= 0 {
			perSecond = 1
		}
		burst := r.limit.Burst
		if burst <= 0 {
			burst = 1
		}
		v = &visitor{limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
		r.visitors[id] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

func clientID(realIP, forwardedFor, peerAddr string) string {
	if ip := strings.TrimSpace(realIP); ip != "" {
		return ip
	}
	if forwardedFor != "" {
		first, _, _ := strings.Cut(forwardedFor, ",")
		first = strings.TrimSpace(first)
		if parsed := net.ParseIP(first); parsed != nil {
			return parsed.String()
		}
		return first
	}
	host, _, err := net.SplitHostPort(peerAddr)
	if err != nil {
		return peerAddr
	}
	return host
}
