package sigcache

import (
	"fmt"
	"testing"
	"time"
)

func newCache(t *testing.T) (*Cache, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	cache := New(store)
	t.Cleanup(cache.Destroy)
	return cache, store
}

func TestStoreAndGet(t *testing.T) {
	cache, _ := newCache(t)

	cache.Store("call_1", "sig-1", "thought one")

	sig, thought, ok := cache.Get("call_1")
	if !ok {
		t.Fatal("expected hit")
	}
	if sig != "sig-1" || thought != "thought one" {
		t.Errorf("got (%q, %q)", sig, thought)
	}

	if _, _, ok := cache.Get("call_unknown"); ok {
		t.Error("expected miss for unknown ID")
	}
}

func TestHotTierEvictsByInsertionOrder(t *testing.T) {
	cache, store := newCache(t)

	for i := 0; i < l1Cap+1; i++ {
		cache.Store(fmt.Sprintf("call_%d", i), "sig", "")
	}

	if cache.Size() != l1Cap {
		t.Errorf("hot tier size = %d, want %d", cache.Size(), l1Cap)
	}

	// The evicted entry survives in the durable tier and gets promoted on
	// the next lookup.
	if n, _ := store.Count(); n != l1Cap+1 {
		t.Errorf("durable count = %d, want %d", n, l1Cap+1)
	}
	if _, _, ok := cache.Get("call_0"); !ok {
		t.Error("oldest entry should still resolve through the durable tier")
	}
}

func TestExpiredEntryIsAMiss(t *testing.T) {
	cache, store := newCache(t)

	stale := Record{
		ToolCallID: "call_old",
		Signature:  "sig-old",
		CreatedAt:  time.Now().Add(-2 * entryTTL),
	}
	if err := store.Put(stale); err != nil {
		t.Fatal(err)
	}

	if _, _, ok := cache.Get("call_old"); ok {
		t.Error("expired record should not resolve")
	}
}

func TestSweepRemovesExpired(t *testing.T) {
	cache, store := newCache(t)

	store.Put(Record{ToolCallID: "call_old", Signature: "s", CreatedAt: time.Now().Add(-2 * entryTTL)})
	cache.Store("call_fresh", "s", "")

	cache.sweep()

	if _, found, _ := store.Get("call_old"); found {
		t.Error("sweep should remove expired durable records")
	}
	if _, _, ok := cache.Get("call_fresh"); !ok {
		t.Error("sweep must keep fresh records")
	}
}

func TestClear(t *testing.T) {
	cache, store := newCache(t)

	cache.Store("call_1", "sig", "")
	cache.Clear()

	if cache.Size() != 0 {
		t.Errorf("hot tier size = %d after clear", cache.Size())
	}
	if n, _ := store.Count(); n != 0 {
		t.Errorf("durable count = %d after clear", n)
	}
}
