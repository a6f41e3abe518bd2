package token_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-session-auth/token"
	"github.com/stretchr/testify/require"
)

func TestInMemoryRevocationStore_Idempotent(t *testing.T) {
	clock := newTestClock()
	store := token.NewInMemoryRevocationStore(time.Hour, token.WithRevocationClock(clock.Now))

	store.Revoke("t1", "logout")
	clock.Advance(time.Minute)
	store.Revoke("t1", "admin")

	require.True(t, store.IsRevoked("t1"))
	require.Equal(t, 1, store.Len())

	entry, ok := store.Entry("t1")
	require.True(t, ok)
	require.Equal(t, "logout", entry.Reason)
	require.Equal(t, clock.Now().Add(-time.Minute), entry.RevokedAt)
	require.False(t, store.IsRevoked("t2"))
}

func TestInMemoryRevocationStore_Retention(t *testing.T) {
	clock := newTestClock()
	store := token.NewInMemoryRevocationStore(time.Hour, token.WithRevocationClock(clock.Now))

	store.Revoke("old", "logout")
	clock.Advance(30 * time.Minute)
	store.Revoke("new", "logout")
	require.Equal(t, 2, store.Len())

	clock.Advance(30 * time.Minute)
	require.False(t, store.IsRevoked("old"))
	require.True(t, store.IsRevoked("new"))
	require.Equal(t, 1, store.Len())

	store.Cleanup()
	require.Equal(t, 1, store.Len())

	clock.Advance(30 * time.Minute)
	store.Cleanup()
	require.Equal(t, 0, store.Len())
}

func TestInMemoryRevocationStore_ZeroRetentionKeepsEverything(t *testing.T) {
	clock := newTestClock()
	store := token.NewInMemoryRevocationStore(0, token.WithRevocationClock(clock.Now))

	store.Revoke("t1", "logout")
	clock.Advance(365 * 24 * time.Hour)
	store.Cleanup()
	require.True(t, store.IsRevoked("t1"))
}

func TestInMemoryRevocationStore_Concurrent(t *testing.T) {
	store := token.NewInMemoryRevocationStore(time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			store.Revoke(fmt.Sprintf("t%d", i%10), "logout")
		}(i)
		go func(i int) {
			defer wg.Done()
			_ = store.IsRevoked(fmt.Sprintf("t%d", i%10))
		}(i)
	}
	wg.Wait()

	require.Equal(t, 10, store.Len())
	for i := 0; i < 10; i++ {
		require.True(t, store.IsRevoked(fmt.Sprintf("t%d", i)))
	}
}

func TestInMemoryRevocationStore_RunStopsOnCancel(t *testing.T) {
	store := token.NewInMemoryRevocationStore(time.Millisecond)
	store.Revoke("t1", "logout")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		store.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return store.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
