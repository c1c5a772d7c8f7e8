package cache

import (
	"testing"
	"time"
)

func TestGetMissOnEmpty(t *testing.T) {
	c := New(time.Minute, true)
	if _, ok := c.Get("/a"); ok {
		t.Fatal("expected miss on empty cache")
	}
}

func TestPutThenGetHits(t *testing.T) {
	c := New(time.Minute, true)
	c.Put("/a", []byte("hello"))

	data, ok := c.Get("/a")
	if !ok {
		t.Fatal("expected hit after put")
	}
	if string(data) != "hello" {
		t.Fatalf("got %q, want hello", data)
	}
}

func TestGetNeverReturnsExpiredEntry(t *testing.T) {
	c := New(10*time.Millisecond, true)
	c.Put("/a", []byte("hello"))

	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("/a"); ok {
		t.Fatal("expected entry older than TTL to be treated as a miss")
	}
}

func TestGetEvictsStaleEntryOnAccess(t *testing.T) {
	c := New(10*time.Millisecond, true)
	c.Put("/a", []byte("hello"))
	time.Sleep(20 * time.Millisecond)

	c.Get("/a") // triggers lazy eviction
	if c.Len() != 0 {
		t.Fatalf("expected stale entry evicted, Len() = %d", c.Len())
	}
}

func TestPutOverwritesAndRefreshesTTL(t *testing.T) {
	c := New(50*time.Millisecond, true)
	c.Put("/a", []byte("v1"))
	time.Sleep(30 * time.Millisecond)
	c.Put("/a", []byte("v2"))
	time.Sleep(30 * time.Millisecond)

	data, ok := c.Get("/a")
	if !ok {
		t.Fatal("expected refreshed entry to still be fresh")
	}
	if string(data) != "v2" {
		t.Fatalf("got %q, want v2", data)
	}
}

func TestDistinctPathsCachedIndependently(t *testing.T) {
	c := New(time.Minute, true)
	c.Put("/a", []byte("a-bytes"))
	c.Put("/b", []byte("b-bytes"))

	da, _ := c.Get("/a")
	db, _ := c.Get("/b")
	if string(da) != "a-bytes" || string(db) != "b-bytes" {
		t.Fatalf("cross-contamination: a=%q b=%q", da, db)
	}
}

func TestConcurrentReadersAndWriter(t *testing.T) {
	c := New(time.Minute, true)
	c.Put("/a", []byte("hello"))

	done := make(chan struct{})
	for i := 0; i < 16; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				c.Get("/a")
			}
			done <- struct{}{}
		}()
	}
	go func() {
		for j := 0; j < 100; j++ {
			c.Put("/a", []byte("hello"))
		}
	}()
	for i := 0; i < 16; i++ {
		<-done
	}
}
