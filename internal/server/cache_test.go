package server

import "testing"

func TestCache(t *testing.T) {
	c := newCache(2)
	c.put("1+1", "2.0", "")
	c.put("8/0", "Error: division by zero at column 2", "arithmetic")
	if r, k, ok := c.get("8/0"); !ok || r != "Error: division by zero at column 2" || k != "arithmetic" {
		t.Errorf("wrong entry for 8/0: %q %q %t", r, k, ok)
	}
	// 1+1 is now least recent.
	c.put("2*3", "6.0", "")
	if _, _, ok := c.get("1+1"); ok {
		t.Error("1+1 should have been evicted")
	}
	if _, _, ok := c.get("8/0"); !ok {
		t.Error("8/0 should have been kept")
	}
	if n := c.len(); n != 2 {
		t.Errorf("want 2 entries, got %d", n)
	}
	c.put("2*3", "6.0", "")
	if n := c.len(); n != 2 {
		t.Errorf("re-adding changed size to %d", n)
	}
}

func TestNilCache(t *testing.T) {
	c := newCache(0)
	if c != nil {
		t.Fatal("zero size should disable the cache")
	}
	c.put("1", "1.0", "")
	if _, _, ok := c.get("1"); ok {
		t.Error("nil cache returned an entry")
	}
	if c.len() != 0 {
		t.Error("nil cache has entries")
	}
}
