package ratelimit_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/supportdesk/internal/app/system/ratelimit"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func TestLimiter_AllowAndReset(t *testing.T) {
	ctx := context.Background()
	l := ratelimit.New(2, time.Minute)

	if !l.Allow(ctx, "k") || !l.Allow(ctx, "k") {
		t.Fatal("first two requests should pass")
	}
	if l.Allow(ctx, "k") {
		t.Fatal("third request should be limited")
	}
	if l.Remaining("k") != 0 {
		t.Errorf("Remaining = %d, want 0", l.Remaining("k"))
	}
	l.Reset(ctx, "k")
	if !l.Allow(ctx, "k") {
		t.Fatal("request after reset should pass")
	}
	if !l.Allow(ctx, "other") {
		t.Fatal("keys are independent")
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name   string
		xff    string
		xri    string
		remote string
		want   string
	}{
		{"forwarded", "1.2.3.4, 10.0.0.1", "", "9.9.9.9:1", "1.2.3.4"},
		{"real ip", "", "5.6.7.8", "9.9.9.9:1", "5.6.7.8"},
		{"remote", "", "", "9.9.9.9:1234", "9.9.9.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/login", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				r.Header.Set("X-Real-IP", tt.xri)
			}
			if got := ratelimit.ClientIP(r); got != tt.want {
				t.Errorf("ClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoginLimiter_EmailWindow(t *testing.T) {
	ll := ratelimit.NewLoginLimiter(ratelimit.New(100, time.Minute), ratelimit.New(1, time.Minute))
	r := httptest.NewRequest("POST", "/login", nil)

	if ok, _ := ll.Check(r, "a@x.com"); !ok {
		t.Fatal("first attempt should pass")
	}
	if ok, reason := ll.Check(r, " A@X.com "); ok || reason == "" {
		t.Fatal("second attempt for the same email should be limited")
	}
	ll.ResetEmail(context.Background(), "a@x.com")
	if ok, _ := ll.Check(r, "a@x.com"); !ok {
		t.Fatal("attempt after reset should pass")
	}
}

func TestRedisLimiter_FailsOpen(t *testing.T) {
	// Nothing listens on this port, so every command errors.
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	defer rdb.Close()

	l := ratelimit.NewRedis(rdb, "test:", 1, time.Minute, zap.NewNop())
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if !l.Allow(ctx, "k") {
			t.Fatal("unreachable redis must not block requests")
		}
	}
}

func TestLoginLimiter_RefusedIPLeavesEmailWindow(t *testing.T) {
	email := ratelimit.New(1, time.Minute)
	ll := ratelimit.NewLoginLimiter(ratelimit.New(1, time.Minute), email)

	busy := httptest.NewRequest("POST", "/login", nil)
	busy.RemoteAddr = "10.0.0.1:4000"
	if ok, _ := ll.Check(busy, "other@x.com"); !ok {
		t.Fatal("first attempt from 10.0.0.1 should pass")
	}
	if ok, _ := ll.Check(busy, "a@x.com"); ok {
		t.Fatal("second attempt from 10.0.0.1 should be limited")
	}
	if n := email.Remaining("email:a@x.com"); n != 1 {
		t.Errorf("email window Remaining = %d, want 1", n)
	}

	fresh := httptest.NewRequest("POST", "/login", nil)
	fresh.RemoteAddr = "10.0.0.2:4000"
	if ok, _ := ll.Check(fresh, "a@x.com"); !ok {
		t.Fatal("a@x.com from another IP should pass")
	}
}
