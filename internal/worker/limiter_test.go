package worker

import (
	"context"
	"testing"
	"time"
)

// ready reports whether a request could proceed without waiting
func ready(l *Limiter, rawURL string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	return l.Wait(ctx, rawURL) == nil
}

func TestLimiter_New(t *testing.T) {
	limiter := NewLimiter(10, 5)
	if limiter.defaultBurst != 5 {
		t.Errorf("expected burst 5, got %d", limiter.defaultBurst)
	}

	l2 := NewLimiter(10, -1)
	if l2.defaultBurst != 1 {
		t.Errorf("expected default burst 1 for negative input, got %d", l2.defaultBurst)
	}
}

func TestLimiter_Wait(t *testing.T) {
	limiter := NewLimiter(100, 1)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "https://api.sec-api.io?token=x"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
	if err := limiter.Wait(ctx, "https://api.sec-api.io/extractor"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
}

func TestLimiter_PacesSameHost(t *testing.T) {
	limiter := NewLimiter(20, 1) // one token every 50ms
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := limiter.Wait(ctx, "https://api.sec-api.io/insider-trading"); err != nil {
			t.Fatalf("wait failed: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 90*time.Millisecond {
		t.Errorf("expected pacing of at least 90ms, got %v", elapsed)
	}
}

func TestLimiter_HostsAreIndependent(t *testing.T) {
	limiter := NewLimiter(1, 1)

	if !ready(limiter, "https://api.sec-api.io") {
		t.Errorf("first request should pass")
	}
	if ready(limiter, "https://API.sec-api.io/extractor") {
		t.Errorf("second request to same host should be held")
	}
	if !ready(limiter, "https://www.sec.gov/cgi-bin/browse-edgar") {
		t.Errorf("other host should pass")
	}
}

func TestLimiter_Disabled(t *testing.T) {
	limiter := NewLimiter(0, 1)
	for i := 0; i < 10; i++ {
		if !ready(limiter, "https://api.sec-api.io") {
			t.Fatalf("request %d should pass with pacing disabled", i)
		}
	}
}

func TestLimiter_SetHostRate(t *testing.T) {
	limiter := NewLimiter(100, 10)
	limiter.SetHostRate("slow.example.com", 0.1, 1)

	if !ready(limiter, "http://slow.example.com/a") {
		t.Errorf("first request should pass")
	}
	if ready(limiter, "http://slow.example.com/b") {
		t.Errorf("second request should fail")
	}
	if !ready(limiter, "http://fast.example.com") {
		t.Errorf("other host should pass")
	}
}

func TestLimiter_WaitCancelled(t *testing.T) {
	limiter := NewLimiter(0.01, 1)
	ready(limiter, "https://api.sec-api.io")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := limiter.Wait(ctx, "https://api.sec-api.io"); err == nil {
		t.Errorf("expected error when context expires before a token is available")
	}
}

func TestHostOf(t *testing.T) {
	host, err := hostOf("https://API.sec-api.io/extractor?item=1A")
	if err != nil {
		t.Fatalf("hostOf failed: %v", err)
	}
	if host != "api.sec-api.io" {
		t.Errorf("expected api.sec-api.io, got %s", host)
	}

	if _, err := hostOf("::invalid"); err == nil {
		t.Errorf("expected error for invalid URL")
	}
	if _, err := hostOf("/relative/path"); err == nil {
		t.Errorf("expected error for URL without host")
	}
}
