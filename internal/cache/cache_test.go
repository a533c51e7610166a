package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/opensource-finance/harrier/internal/domain"
)

func TestLRUCache(t *testing.T) {
	cache := NewLRUCache(100)
	ctx := context.Background()
	namespace := "test"

	t.Run("SetAndGet", func(t *testing.T) {
		err := cache.Set(ctx, namespace, "key1", []byte("value1"), time.Minute)
		if err != nil {
			t.Fatalf("Set failed: %v", err)
		}

		val, err := cache.Get(ctx, namespace, "key1")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}

		if string(val) != "value1" {
			t.Errorf("expected 'value1', got '%s'", string(val))
		}
	})

	t.Run("GetMiss", func(t *testing.T) {
		val, err := cache.Get(ctx, namespace, "nonexistent")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if val != nil {
			t.Errorf("expected nil for cache miss, got: %v", val)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		_ = cache.Set(ctx, namespace, "key2", []byte("value2"), time.Minute)

		err := cache.Delete(ctx, namespace, "key2")
		if err != nil {
			t.Fatalf("Delete failed: %v", err)
		}

		val, _ := cache.Get(ctx, namespace, "key2")
		if val != nil {
			t.Error("expected nil after delete")
		}
	})

	t.Run("TTLExpiration", func(t *testing.T) {
		_ = cache.Set(ctx, namespace, "expiring", []byte("temp"), 10*time.Millisecond)

		// Should be available immediately
		val, _ := cache.Get(ctx, namespace, "expiring")
		if val == nil {
			t.Error("expected value before expiration")
		}

		// Wait for expiration
		time.Sleep(20 * time.Millisecond)

		val, _ = cache.Get(ctx, namespace, "expiring")
		if val != nil {
			t.Error("expected nil after expiration")
		}
	})

	t.Run("LRUEviction", func(t *testing.T) {
		smallCache := NewLRUCache(3)

		_ = smallCache.Set(ctx, namespace, "a", []byte("1"), time.Minute)
		_ = smallCache.Set(ctx, namespace, "b", []byte("2"), time.Minute)
		_ = smallCache.Set(ctx, namespace, "c", []byte("3"), time.Minute)

		// Access 'a' to make it recently used
		_, _ = smallCache.Get(ctx, namespace, "a")

		// Add 'd' - should evict 'b' (oldest accessed)
		_ = smallCache.Set(ctx, namespace, "d", []byte("4"), time.Minute)

		// 'b' should be evicted
		val, _ := smallCache.Get(ctx, namespace, "b")
		if val != nil {
			t.Error("expected 'b' to be evicted")
		}

		// 'a' should still be there
		val, _ = smallCache.Get(ctx, namespace, "a")
		if val == nil {
			t.Error("expected 'a' to still exist")
		}
	})

	t.Run("NamespaceIsolation", func(t *testing.T) {
		_ = cache.Set(ctx, domain.CacheNamespaceResults, "shared-key", []byte("result-value"), time.Minute)
		_ = cache.Set(ctx, domain.CacheNamespaceAlerts, "shared-key", []byte("alert-value"), time.Minute)

		val1, _ := cache.Get(ctx, domain.CacheNamespaceResults, "shared-key")
		val2, _ := cache.Get(ctx, domain.CacheNamespaceAlerts, "shared-key")

		if string(val1) != "result-value" {
			t.Errorf("expected 'result-value', got '%s'", string(val1))
		}
		if string(val2) != "alert-value" {
			t.Errorf("expected 'alert-value', got '%s'", string(val2))
		}
	})

	t.Run("RequiresNamespace", func(t *testing.T) {
		err := cache.Set(ctx, "", "key", []byte("value"), time.Minute)
		if !errors.Is(err, ErrNamespaceRequired) {
			t.Errorf("expected ErrNamespaceRequired, got %v", err)
		}

		_, err = cache.Get(ctx, "", "key")
		if !errors.Is(err, ErrNamespaceRequired) {
			t.Errorf("expected ErrNamespaceRequired, got %v", err)
		}

		_, err = cache.IncrementCounter(ctx, "", "key", time.Second)
		if !errors.Is(err, ErrNamespaceRequired) {
			t.Errorf("expected ErrNamespaceRequired, got %v", err)
		}
	})

	t.Run("IncrementCounter", func(t *testing.T) {
		window := 100 * time.Millisecond

		count1, err := cache.IncrementCounter(ctx, namespace, "VNSGN-USLAX", window)
		if err != nil {
			t.Fatalf("IncrementCounter failed: %v", err)
		}
		if count1 != 1 {
			t.Errorf("expected count 1, got %d", count1)
		}

		count2, _ := cache.IncrementCounter(ctx, namespace, "VNSGN-USLAX", window)
		if count2 != 2 {
			t.Errorf("expected count 2, got %d", count2)
		}

		// Wait for window to expire
		time.Sleep(150 * time.Millisecond)

		count3, _ := cache.IncrementCounter(ctx, namespace, "VNSGN-USLAX", window)
		if count3 != 1 {
			t.Errorf("expected count 1 after window reset, got %d", count3)
		}
	})

	t.Run("CounterPruning", func(t *testing.T) {
		small := NewLRUCache(2)
		small.IncrementCounter(ctx, namespace, "a", time.Millisecond)
		small.IncrementCounter(ctx, namespace, "b", time.Millisecond)
		time.Sleep(5 * time.Millisecond)

		small.IncrementCounter(ctx, namespace, "c", time.Minute)
		small.mu.RLock()
		n := len(small.counters)
		small.mu.RUnlock()
		if n != 1 {
			t.Errorf("expired counters should be pruned, %d left", n)
		}
	})

	t.Run("ResultCache", func(t *testing.T) {
		res := &domain.ScoredResult{
			Score:   49.91,
			Level:   domain.LevelMedium,
			Region:  domain.RegionSEA,
			Factors: domain.RiskFactors{domain.FactorPort: 0.6, domain.FactorDelay: 0.667},
			Drivers: []domain.Factor{domain.FactorDelay, domain.FactorPort},
		}

		if err := cache.SetResult(ctx, "fp-001", res, time.Minute); err != nil {
			t.Fatalf("SetResult failed: %v", err)
		}

		got, err := cache.GetResult(ctx, "fp-001")
		if err != nil {
			t.Fatalf("GetResult failed: %v", err)
		}
		if got == nil || got.Score != res.Score || got.Region != res.Region {
			t.Fatalf("unexpected result: %+v", got)
		}
		if got.Factors[domain.FactorPort] != 0.6 || len(got.Drivers) != 2 {
			t.Errorf("factors or drivers lost: %+v", got)
		}

		// callers get independent copies
		got.Factors[domain.FactorPort] = 1
		again, _ := cache.GetResult(ctx, "fp-001")
		if again.Factors[domain.FactorPort] != 0.6 {
			t.Error("cached result was mutated through a previous hit")
		}

		miss, err := cache.GetResult(ctx, "fp-unknown")
		if err != nil || miss != nil {
			t.Errorf("expected nil, nil on miss, got %v, %v", miss, err)
		}
	})

	t.Run("CorruptResult", func(t *testing.T) {
		_ = cache.Set(ctx, domain.CacheNamespaceResults, "fp-bad", []byte("{not json"), time.Minute)
		if _, err := cache.GetResult(ctx, "fp-bad"); err == nil {
			t.Error("expected decode error")
		}
	})

	t.Run("Stats", func(t *testing.T) {
		statsCache := NewLRUCache(50)
		_ = statsCache.Set(ctx, namespace, "k1", []byte("v1"), time.Minute)
		_ = statsCache.Set(ctx, namespace, "k2", []byte("v2"), time.Minute)

		size, capacity := statsCache.Stats()
		if size != 2 {
			t.Errorf("expected size 2, got %d", size)
		}
		if capacity != 50 {
			t.Errorf("expected capacity 50, got %d", capacity)
		}
	})

	t.Run("Ping", func(t *testing.T) {
		if err := cache.Ping(ctx); err != nil {
			t.Errorf("Ping failed: %v", err)
		}
	})

	t.Run("Close", func(t *testing.T) {
		testCache := NewLRUCache(10)
		_ = testCache.Set(ctx, namespace, "k", []byte("v"), time.Minute)

		err := testCache.Close()
		if err != nil {
			t.Errorf("Close failed: %v", err)
		}

		// Cache should be empty after close
		val, _ := testCache.Get(ctx, namespace, "k")
		if val != nil {
			t.Error("expected cache to be cleared after close")
		}
	})
}

func TestNewCache(t *testing.T) {
	t.Run("MemoryType", func(t *testing.T) {
		cfg := domain.CacheConfig{
			Type:         "memory",
			LocalMaxSize: 100,
		}

		cache, err := New(cfg)
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		defer cache.Close()

		_, ok := cache.(*LRUCache)
		if !ok {
			t.Error("expected LRUCache for memory type")
		}
	})

	t.Run("UnsupportedType", func(t *testing.T) {
		cfg := domain.CacheConfig{
			Type: "memcached",
		}

		_, err := New(cfg)
		if err == nil {
			t.Error("expected error for unsupported type")
		}
	})
}
