package token_test

import (
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-session-auth/token"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

// testClock starts on a whole second so second-precision expiry is exact.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestSigner(t *testing.T) *token.HMACSigner {
	t.Helper()
	signer, err := token.NewHMACSigner(testSecret)
	require.NoError(t, err)
	return signer
}
