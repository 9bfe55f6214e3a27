package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryCacheSetGet(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	if err := mc.Set(ctx, "k", payload{Name: "Widget", Count: 3}, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	var got payload
	if err := mc.Get(ctx, "k", &got); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Widget" || got.Count != 3 {
		t.Fatalf("unexpected value %+v", got)
	}

	var s string
	if err := mc.Set(ctx, "s", "plain", time.Minute); err != nil {
		t.Fatalf("set string: %v", err)
	}
	if err := mc.Get(ctx, "s", &s); err != nil || s != "plain" {
		t.Fatalf("get string = %q, %v", s, err)
	}

	if err := mc.Get(ctx, "missing", &s); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected cache miss, got %v", err)
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	_ = mc.Set(ctx, "k", "v", 10*time.Millisecond)
	time.Sleep(25 * time.Millisecond)
	ok, _ := mc.Exists(ctx, "k")
	if ok {
		t.Fatal("expired key still exists")
	}
}

func TestMemoryCacheTryLock(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()
	key := LockKey("prepare")

	ok, err := mc.TryLock(ctx, key, "a", time.Minute)
	if err != nil || !ok {
		t.Fatalf("first lock = %v, %v", ok, err)
	}
	ok, _ = mc.TryLock(ctx, key, "b", time.Minute)
	if ok {
		t.Fatal("second lock acquired while held")
	}
	if released, _ := mc.Unlock(ctx, key, "b"); released {
		t.Fatal("non-holder released the lock")
	}
	if released, _ := mc.Unlock(ctx, key, "a"); !released {
		t.Fatal("holder could not release the lock")
	}
	ok, _ = mc.TryLock(ctx, key, "b", time.Minute)
	if !ok {
		t.Fatal("lock not reacquired after unlock")
	}
}

func TestMemoryCacheStaleHolderKeepsNewLock(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()
	key := LockKey("forecast")

	stale, fresh := NewLockToken(), NewLockToken()
	if stale == fresh {
		t.Fatal("tokens not unique")
	}
	if ok, _ := mc.TryLock(ctx, key, stale, 10*time.Millisecond); !ok {
		t.Fatal("first holder could not lock")
	}
	time.Sleep(25 * time.Millisecond)
	if ok, _ := mc.TryLock(ctx, key, fresh, time.Minute); !ok {
		t.Fatal("lock not acquired after ttl expiry")
	}

	if released, _ := mc.Unlock(ctx, key, stale); released {
		t.Fatal("expired holder released the new lock")
	}
	if ok, _ := mc.TryLock(ctx, key, NewLockToken(), time.Minute); ok {
		t.Fatal("lock free while the new holder still owns it")
	}
}

func TestWithLock(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	var inner bool
	held, err := WithLock(ctx, mc, "run", time.Minute, func() error {
		nested, _ := WithLock(ctx, mc, "run", time.Minute, func() error {
			inner = true
			return nil
		})
		if nested {
			t.Error("nested lock acquired")
		}
		return nil
	})
	if err != nil || !held {
		t.Fatalf("WithLock = %v, %v", held, err)
	}
	if inner {
		t.Fatal("nested fn ran")
	}
	if ok, _ := mc.Exists(ctx, "run"); ok {
		t.Fatal("lock not released")
	}
}

func TestMemoryCacheIncrement(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		n, err := mc.Increment(ctx, "hits")
		if err != nil || n != i {
			t.Fatalf("increment %d = %d, %v", i, n, err)
		}
	}
}

func TestMemoryCacheEviction(t *testing.T) {
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()
	ctx := context.Background()

	_ = mc.Set(ctx, "a", "1", time.Minute)
	time.Sleep(time.Millisecond)
	_ = mc.Set(ctx, "b", "2", time.Minute)
	time.Sleep(time.Millisecond)
	_ = mc.Set(ctx, "c", "3", time.Minute)

	if ok, _ := mc.Exists(ctx, "a"); ok {
		t.Fatal("oldest key not evicted")
	}
	if ok, _ := mc.Exists(ctx, "c"); !ok {
		t.Fatal("newest key missing")
	}
}
