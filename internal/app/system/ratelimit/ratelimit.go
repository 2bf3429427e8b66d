// internal/app/system/ratelimit/ratelimit.go
package ratelimit

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dalemusser/supportdesk/internal/app/system/normalize"
)

// Login windows. The IP limit is configurable (login_rate_limit); the email
// window is fixed.
const (
	defaultIPLimit = 10
	ipWindow       = time.Minute
	emailLimit     = 5
	emailWindow    = 5 * time.Minute
)

// Window counts hits per key over a fixed window. Limiter keeps the counts
// in process; RedisLimiter shares them between instances.
type Window interface {
	// Allow records a hit for key and reports whether it is still within
	// the limit for the current window.
	Allow(ctx context.Context, key string) bool
	// Reset forgets key, starting a fresh window on the next hit.
	Reset(ctx context.Context, key string)
}

// Limiter is an in-process fixed-window limiter. Each key gets a window that
// starts at its first hit and lasts duration; hits past limit inside that
// window are refused. It is safe for concurrent use.
type Limiter struct {
	mu       sync.Mutex
	windows  map[string]*window
	limit    int           // max hits per window
	duration time.Duration // window length
	cleanup  time.Duration // sweep interval for expired windows
}

type window struct {
	count     int
	expiresAt time.Time
}

// New creates a limiter allowing limit hits per key every duration.
// Expired windows are swept every 2*duration by a background goroutine that
// lives as long as the process.
func New(limit int, duration time.Duration) *Limiter {
	l := &Limiter{
		windows:  make(map[string]*window),
		limit:    limit,
		duration: duration,
		cleanup:  duration * 2,
	}
	go l.cleanupLoop()
	return l
}

// Allow records a hit for key. It returns false once key has used up its
// window; the refused hit is not counted.
func (l *Limiter) Allow(_ context.Context, key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	w, exists := l.windows[key]

	// First hit, or the previous window ran out: open a new one.
	if !exists || now.After(w.expiresAt) {
		l.windows[key] = &window{count: 1, expiresAt: now.Add(l.duration)}
		return true
	}

	if w.count >= l.limit {
		return false
	}
	w.count++
	return true
}

// Remaining returns how many hits key has left in its current window.
func (l *Limiter) Remaining(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, exists := l.windows[key]
	if !exists || time.Now().After(w.expiresAt) {
		return l.limit
	}
	if remaining := l.limit - w.count; remaining > 0 {
		return remaining
	}
	return 0
}

// Reset drops the window for key.
func (l *Limiter) Reset(_ context.Context, key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, key)
}

// cleanupLoop removes expired windows so keys from one-off callers do not
// accumulate.
func (l *Limiter) cleanupLoop() {
	ticker := time.NewTicker(l.cleanup)
	defer ticker.Stop()

	for range ticker.C {
		l.mu.Lock()
		now := time.Now()
		for key, w := range l.windows {
			if now.After(w.expiresAt) {
				delete(l.windows, key)
			}
		}
		l.mu.Unlock()
	}
}

// ClientIP returns the caller's address for rate limiting.
// The first X-Forwarded-For entry wins, then X-Real-IP, then RemoteAddr
// without its port. The headers are trusted, so the server is expected to
// sit behind a proxy that sets them.
func ClientIP(r *http.Request) string {
	// X-Forwarded-For is "client, proxy1, proxy2".
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ip := strings.TrimSpace(strings.Split(xff, ",")[0]); ip != "" {
			return ip
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// RemoteAddr without a port.
		return r.RemoteAddr
	}
	return ip
}

// LoginLimiter guards the login form and the token endpoint with two
// windows:
//   - per IP, against one client trying many accounts
//   - per email, against many clients trying one account
//
// Both windows may share one store; their keys are prefixed "ip:" and
// "email:".
type LoginLimiter struct {
	ipLimiter    Window
	emailLimiter Window
}

// NewLoginLimiter combines an IP window and an email window.
func NewLoginLimiter(ip, email Window) *LoginLimiter {
	return &LoginLimiter{ipLimiter: ip, emailLimiter: email}
}

// NewMemoryLoginLimiter keeps both windows in process: limit attempts per IP
// per minute (10 when limit <= 0) and 5 attempts per email every 5 minutes.
// Each server instance counts on its own.
func NewMemoryLoginLimiter(limit int) *LoginLimiter {
	if limit <= 0 {
		limit = defaultIPLimit
	}
	return NewLoginLimiter(New(limit, ipWindow), New(emailLimit, emailWindow))
}

func ipKey(ip string) string       { return "ip:" + ip }
func emailKey(email string) string { return "email:" + normalize.Email(email) }

// Check records a login attempt and reports whether it may proceed. When it
// may not, reason is the message to show the user. The IP window is checked
// first, so a refused IP does not use up the account's window.
func (ll *LoginLimiter) Check(r *http.Request, email string) (allowed bool, reason string) {
	ctx := r.Context()

	if !ll.ipLimiter.Allow(ctx, ipKey(ClientIP(r))) {
		return false, "Too many login attempts. Please wait a minute before trying again."
	}

	// A blank email fails validation later; it has no account to protect.
	if email != "" && !ll.emailLimiter.Allow(ctx, emailKey(email)) {
		return false, "Too many login attempts for this account. Please wait a few minutes."
	}
	return true, ""
}

// ResetEmail clears the account window after a successful sign-in. The IP
// window is left alone.
func (ll *LoginLimiter) ResetEmail(ctx context.Context, email string) {
	if email != "" {
		ll.emailLimiter.Reset(ctx, emailKey(email))
	}
}
