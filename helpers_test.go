package goToken

import (
	"encoding/json"
	"strconv"
	"sync"
	"testing"
	"time"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

// jsonNum is how a decoded integer claim looks.
func jsonNum(n int64) json.Number {
	return json.Number(strconv.FormatInt(n, 10))
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Signing.Secret = cloneBytes(testSecret)
	cfg.Tokens.Issuer = "issuer.test"
	cfg.Tokens.Audience = "api.test"
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true
	return cfg
}

func buildTestEngine(t *testing.T, cfg Config, clock *testClock) *Engine {
	t.Helper()

	b := New().WithConfig(cfg)
	if clock != nil {
		b = b.WithClock(clock.Now)
	}
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}
