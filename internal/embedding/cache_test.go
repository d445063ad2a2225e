package embedding

import (
	"fmt"
	"sync"
	"testing"
)

func testVector(provider string, seed float32) Vector {
	return Vector{
		Values:     []float32{seed, seed + 1, seed + 2},
		Dimensions: 3,
		ProviderID: provider,
		ModelID:    "test-model",
	}
}

func TestCache_GetPut(t *testing.T) {
	t.Parallel()

	c := NewCache(4)

	if _, ok := c.Get("gemini", "h1"); ok {
		t.Error("Get() on empty cache should miss")
	}

	want := testVector("gemini", 1)
	c.Put("gemini", "h1", want)

	got, ok := c.Get("gemini", "h1")
	if !ok {
		t.Fatal("Get() after Put() should hit")
	}
	if got.ProviderID != want.ProviderID || got.Values[0] != want.Values[0] {
		t.Errorf("Get() = %+v, want %+v", got, want)
	}
}

func TestCache_KeyIncludesProvider(t *testing.T) {
	t.Parallel()

	c := NewCache(4)
	c.Put("gemini", "h1", testVector("gemini", 1))

	if _, ok := c.Get("openai", "h1"); ok {
		t.Error("same hash under a different provider should miss")
	}
}

func TestCache_EvictsOldestFirst(t *testing.T) {
	t.Parallel()

	c := NewCache(2)
	c.Put("p", "h1", testVector("p", 1))
	c.Put("p", "h2", testVector("p", 2))
	c.Put("p", "h3", testVector("p", 3)) // evicts h1

	if _, ok := c.Get("p", "h1"); ok {
		t.Error("h1 should have been evicted first")
	}
	if _, ok := c.Get("p", "h2"); !ok {
		t.Error("h2 should still be cached")
	}
	if _, ok := c.Get("p", "h3"); !ok {
		t.Error("h3 should still be cached")
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
}

func TestCache_GetDoesNotPromote(t *testing.T) {
	t.Parallel()

	// Strict insertion order: reading h1 must not save it from
	// eviction the way an LRU would.
	c := NewCache(2)
	c.Put("p", "h1", testVector("p", 1))
	c.Put("p", "h2", testVector("p", 2))

	if _, ok := c.Get("p", "h1"); !ok {
		t.Fatal("h1 should be cached")
	}

	c.Put("p", "h3", testVector("p", 3))

	if _, ok := c.Get("p", "h1"); ok {
		t.Error("h1 should be evicted despite the recent Get")
	}
}

func TestCache_RePutKeepsPosition(t *testing.T) {
	t.Parallel()

	c := NewCache(2)
	c.Put("p", "h1", testVector("p", 1))
	c.Put("p", "h2", testVector("p", 2))
	c.Put("p", "h1", testVector("p", 9)) // replace, position unchanged

	got, ok := c.Get("p", "h1")
	if !ok || got.Values[0] != 9 {
		t.Fatalf("re-Put should replace the value, got %+v ok=%v", got, ok)
	}

	c.Put("p", "h3", testVector("p", 3))

	if _, ok := c.Get("p", "h1"); ok {
		t.Error("h1 keeps its original insertion position and is evicted first")
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
}

func TestCache_DefaultCapacity(t *testing.T) {
	t.Parallel()

	c := NewCache(0)
	if c.Capacity() != DefaultCacheCapacity {
		t.Errorf("Capacity() = %d, want %d", c.Capacity(), DefaultCacheCapacity)
	}
}

func TestCache_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	c := NewCache(64)

	var wg sync.WaitGroup
	const goroutines = 32
	const operations = 200

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < operations; j++ {
				key := fmt.Sprintf("h%d", j%100)
				if id%2 == 0 {
					c.Put("p", key, testVector("p", float32(j)))
				} else {
					_, _ = c.Get("p", key)
				}
			}
		}(i)
	}

	wg.Wait()

	if c.Len() > c.Capacity() {
		t.Errorf("Len() = %d exceeds capacity %d", c.Len(), c.Capacity())
	}
}
