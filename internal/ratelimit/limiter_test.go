package ratelimit

import (
	"strings"
	"sync"
	"testing"
	"time"
)

func TestNewLimiter(t *testing.T) {
	l := NewLimiter(10.0, 5)
	if l == nil {
		t.Fatal("NewLimiter returned nil")
	}
	if l.rate != 10.0 {
		t.Errorf("rate = %f, want 10.0", l.rate)
	}
	if l.burst != 5 {
		t.Errorf("burst = %d, want 5", l.burst)
	}
}

func TestAllow_WithinBurst(t *testing.T) {
	l := NewLimiter(1.0, 3)

	for i := 0; i < 3; i++ {
		if !l.Allow("run") {
			t.Errorf("request %d should be allowed (within burst)", i+1)
		}
	}
}

func TestAllow_ExceedsBurst(t *testing.T) {
	l := NewLimiter(1.0, 2)

	l.Allow("run")
	l.Allow("run")

	if l.Allow("run") {
		t.Error("request after burst exhaustion should be rejected")
	}
}

func TestAllow_RefillAfterWait(t *testing.T) {
	now := time.Now()
	l := NewLimiter(10.0, 2) // 10 tokens/sec
	l.nowFunc = func() time.Time { return now }

	l.Allow("run")
	l.Allow("run")

	if l.Allow("run") {
		t.Error("expected rejection after burst")
	}

	// Advance 200ms: 10 * 0.2 = 2 tokens refilled
	now = now.Add(200 * time.Millisecond)
	if !l.Allow("run") {
		t.Error("expected allowance after refill")
	}
}

func TestAllow_RefillCapsAtBurst(t *testing.T) {
	now := time.Now()
	l := NewLimiter(10.0, 2)
	l.nowFunc = func() time.Time { return now }

	// A long idle period must not accumulate more than burst tokens
	now = now.Add(time.Hour)
	for i := 0; i < 2; i++ {
		if !l.Allow("run") {
			t.Errorf("request %d should be allowed after idle", i+1)
		}
	}
	if l.Allow("run") {
		t.Error("tokens accumulated past burst cap")
	}
}

func TestAllow_KeysAreIndependent(t *testing.T) {
	l := NewLimiter(1.0, 1)

	if !l.Allow("a") {
		t.Error("first request for key a should be allowed")
	}
	if !l.Allow("b") {
		t.Error("first request for key b should be allowed despite key a's bucket being empty")
	}
	if l.Allow("a") {
		t.Error("second request for key a should be rejected")
	}
}

func TestAllow_ConcurrentAccess(t *testing.T) {
	l := NewLimiter(1000.0, 100)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				l.Allow("shared")
			}
		}()
	}
	wg.Wait()
}

func TestCheck_UnknownToolAllowed(t *testing.T) {
	tl := Defaults()

	if err := tl.Check("oster_unknown"); err != nil {
		t.Errorf("unknown tool should not be limited, got: %v", err)
	}
}

func TestCheck_LimitedToolRejects(t *testing.T) {
	tl := ToolLimiters{"oster_run": NewLimiter(0.001, 1)}

	if err := tl.Check("oster_run"); err != nil {
		t.Fatalf("first call should pass, got: %v", err)
	}
	err := tl.Check("oster_run")
	if err == nil {
		t.Fatal("second call should be rate limited")
	}
	if !strings.Contains(err.Error(), "rate limit exceeded") {
		t.Errorf("error = %v, want rate limit message", err)
	}
}

func TestDefaults_CoverAnalysisTools(t *testing.T) {
	tl := Defaults()

	for _, tool := range []string{"oster_generate", "oster_run", "oster_runs", "oster_show"} {
		if tl[tool] == nil {
			t.Errorf("no limiter configured for %s", tool)
		}
	}
}
