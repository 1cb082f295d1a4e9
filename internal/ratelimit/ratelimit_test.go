package ratelimit

import (
	"testing"
	"time"
)

func testConfig() Config {
	return Config{
		RequestsPerMinute: 60,
		BurstSize:         3,
		CleanupInterval:   time.Hour,
	}
}

func TestAllowWithinBurst(t *testing.T) {
	l := New(testConfig())
	defer l.Stop()

	for i := 0; i < 3; i++ {
		if !l.Allow("1.2.3.4") {
			t.Fatalf("request %d inside burst was denied", i)
		}
	}
	if l.Allow("1.2.3.4") {
		t.Error("request beyond burst was allowed")
	}
}

func TestSeparateClientsSeparateBuckets(t *testing.T) {
	l := New(testConfig())
	defer l.Stop()

	for i := 0; i < 3; i++ {
		l.Allow("1.1.1.1")
	}
	if !l.Allow("2.2.2.2") {
		t.Error("fresh client was denied because another client was throttled")
	}
}

func TestTokensRefillOverTime(t *testing.T) {
	l := New(testConfig())
	defer l.Stop()

	for i := 0; i < 3; i++ {
		l.Allow("1.2.3.4")
	}
	if l.Allow("1.2.3.4") {
		t.Fatal("bucket should be empty")
	}

	// 60 rpm refills one token per second.
	l.mu.Lock()
	l.clients["1.2.3.4"].lastCheck = time.Now().Add(-1100 * time.Millisecond)
	l.mu.Unlock()

	if !l.Allow("1.2.3.4") {
		t.Error("bucket did not refill after a second")
	}
}
