package httpserver

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ipLimiter throttles requests per socket peer address. Forwarding headers
// are ignored, they are client controlled.
type ipLimiter struct {
	mu          sync.Mutex
	limit       rate.Limit
	burst       int
	visitors    map[string]*visitor
	maxVisitors int
	lastSweep   time.Time
	now         func() time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const (
	// idleVisitor is how long an address is remembered after its last request.
	idleVisitor   = 10 * time.Minute
	sweepInterval = time.Minute
	maxVisitors   = 10000
)

func newIPLimiter(perMinute int) *ipLimiter {
	if perMinute <= 0 {
		perMinute = 20
	}
	return &ipLimiter{
		limit:       rate.Limit(float64(perMinute) / 60),
		burst:       perMinute,
		visitors:    map[string]*visitor{},
		maxVisitors: maxVisitors,
		now:         time.Now,
	}
}

func (l *ipLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= sweepInterval {
		l.sweep(now)
	}

	v, ok := l.visitors[ip]
	if !ok {
		if len(l.visitors) >= l.maxVisitors {
			l.evictOldest()
		}
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

func (l *ipLimiter) sweep(now time.Time) {
	for k, v := range l.visitors {
		if now.Sub(v.lastSeen) > idleVisitor {
			delete(l.visitors, k)
		}
	}
	l.lastSweep = now
}

func (l *ipLimiter) evictOldest() {
	var oldest string
	var seen time.Time
	for k, v := range l.visitors {
		if oldest == "" || v.lastSeen.Before(seen) {
			oldest, seen = k, v.lastSeen
		}
	}
	delete(l.visitors, oldest)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (l *ipLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.allow(clientIP(r)) {
			w.Header().Set("Retry-After", "60")
			writeJSON(w, http.StatusTooManyRequests, envelope{"success": false, "message": "Too many requests, please try again later"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
