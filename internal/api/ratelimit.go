package api

import (
	"math"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"wormarena/internal/config"
)

// Budgets are owned by the config layer so env overrides reach the router.
type (
	RateLimitConfig = config.RateLimitConfig
	RateBudget      = config.RateBudget
)

// RouteClass groups endpoints that draw on the same per-IP bucket.
type RouteClass uint8

const (
	ClassQuery   RouteClass = iota // GET reads and the minimap PNG
	ClassCommand                   // run start, minions, skill, mute
	ClassInput                     // steering posts
	numClasses
)

var classNames = [numClasses]string{"query", "command", "input"}

func (c RouteClass) String() string {
	if c < numClasses {
		return classNames[c]
	}
	return "unknown"
}

type bucketKey struct {
	ip    string
	class RouteClass
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

type classCounters struct {
	allowed  atomic.Uint64
	rejected atomic.Uint64
}

// RouteLimiter keeps one token bucket per client IP and route class.
// Steering at frame rate draws on its own bucket and never eats into the
// budget for reads or renders.
//
// Idle buckets are swept inline on the request path, so there is no
// background goroutine to stop.
type RouteLimiter struct {
	budgets [numClasses]RateBudget
	ttl     time.Duration
	now     func() time.Time

	mu        sync.Mutex
	buckets   map[bucketKey]*bucket
	lastSweep time.Time

	counts [numClasses]classCounters
}

// NewRouteLimiter builds a limiter. Budgets left at zero take the config
// defaults.
func NewRouteLimiter(cfg RateLimitConfig) *RouteLimiter {
	def := config.DefaultRateLimits()
	pick := func(b, fallback RateBudget) RateBudget {
		if b.PerSecond <= 0 || b.Burst <= 0 {
			return fallback
		}
		return b
	}
	ttl := cfg.IdleTTL
	if ttl <= 0 {
		ttl = def.IdleTTL
	}

	var budgets [numClasses]RateBudget
	budgets[ClassQuery] = pick(cfg.Query, def.Query)
	budgets[ClassCommand] = pick(cfg.Command, def.Command)
	budgets[ClassInput] = pick(cfg.Input, def.Input)

	return &RouteLimiter{
		budgets: budgets,
		ttl:     ttl,
		now:     time.Now,
		buckets: make(map[bucketKey]*bucket),
	}
}

// Budget returns the effective budget for class.
func (rl *RouteLimiter) Budget(class RouteClass) RateBudget {
	return rl.budgets[class]
}

func (rl *RouteLimiter) limiter(ip string, class RouteClass, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now.Sub(rl.lastSweep) > rl.ttl {
		for k, b := range rl.buckets {
			if now.Sub(b.seen) > rl.ttl {
				delete(rl.buckets, k)
			}
		}
		rl.lastSweep = now
	}

	k := bucketKey{ip: ip, class: class}
	b, ok := rl.buckets[k]
	if !ok {
		budget := rl.budgets[class]
		b = &bucket{lim: rate.NewLimiter(rate.Limit(budget.PerSecond), budget.Burst)}
		rl.buckets[k] = b
	}
	b.seen = now
	return b.lim
}

// Reserve takes one token from ip's bucket for class. On refusal it
// returns how long until a token frees up.
func (rl *RouteLimiter) Reserve(ip string, class RouteClass) (bool, time.Duration) {
	now := rl.now()
	res := rl.limiter(ip, class, now).ReserveN(now, 1)
	if wait := res.DelayFrom(now); wait > 0 {
		res.CancelAt(now)
		rl.counts[class].rejected.Add(1)
		return false, wait
	}
	rl.counts[class].allowed.Add(1)
	return true, 0
}

// Limit returns middleware charging each request to class.
func (rl *RouteLimiter) Limit(class RouteClass) func(http.Handler) http.Handler {
	reason := "rate_limit_" + class.String()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, wait := rl.Reserve(GetClientIP(r), class)
			if !ok {
				RecordConnectionRejected(reason)
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Buckets returns how many (ip, class) buckets are tracked.
func (rl *RouteLimiter) Buckets() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

// Stats returns allowed and rejected totals, overall and as
// "<class>.allowed" / "<class>.rejected".
func (rl *RouteLimiter) Stats() map[string]uint64 {
	out := make(map[string]uint64, 2+2*int(numClasses))
	for c := RouteClass(0); c < numClasses; c++ {
		a, r := rl.counts[c].allowed.Load(), rl.counts[c].rejected.Load()
		out[c.String()+".allowed"] = a
		out[c.String()+".rejected"] = r
		out["allowed"] += a
		out["rejected"] += r
	}
	return out
}

// GetClientIP returns the caller's address. Forwarding headers are taken
// as set by a fronting proxy; entries that do not parse as an IP are
// skipped.
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for _, hop := range strings.Split(xff, ",") {
			if addr, err := netip.ParseAddr(strings.TrimSpace(hop)); err == nil {
				return addr.Unmap().String()
			}
		}
	}
	if addr, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
		return addr.Unmap().String()
	}
	if ap, err := netip.ParseAddrPort(r.RemoteAddr); err == nil {
		return ap.Addr().Unmap().String()
	}
	return r.RemoteAddr
}

// ConnLimiter caps concurrent WebSocket connections per IP.
type ConnLimiter struct {
	maxPerIP int

	mu   sync.Mutex
	open map[string]int

	rejected atomic.Uint64
}

func NewConnLimiter(maxPerIP int) *ConnLimiter {
	return &ConnLimiter{maxPerIP: maxPerIP, open: make(map[string]int)}
}

// Acquire reserves a slot for ip, or returns false when ip is at the cap.
func (cl *ConnLimiter) Acquire(ip string) bool {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	if cl.open[ip] >= cl.maxPerIP {
		cl.rejected.Add(1)
		return false
	}
	cl.open[ip]++
	return true
}

// Release frees one of ip's slots. IPs with nothing open are forgotten.
func (cl *ConnLimiter) Release(ip string) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	switch n := cl.open[ip]; {
	case n > 1:
		cl.open[ip] = n - 1
	case n == 1:
		delete(cl.open, ip)
	}
}

// Count returns ip's open connections.
func (cl *ConnLimiter) Count(ip string) int {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return cl.open[ip]
}

func (cl *ConnLimiter) Stats() map[string]uint64 {
	cl.mu.Lock()
	ips := len(cl.open)
	cl.mu.Unlock()
	return map[string]uint64{
		"rejected": cl.rejected.Load(),
		"ips":      uint64(ips),
	}
}
