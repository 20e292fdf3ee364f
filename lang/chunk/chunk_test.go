package chunk

import "testing"

func TestAddGet(t *testing.T) {
	c := New[int]()
	if addr := c.Add(10); addr != 0 {
		t.Fatalf("Add(10) = %d, want 0", addr)
	}
	if addr := c.Add(20); addr != 1 {
		t.Fatalf("Add(20) = %d, want 1", addr)
	}
	v, ok := c.Get(1)
	if !ok || v != 20 {
		t.Fatalf("Get(1) = %d, %v, want 20, true", v, ok)
	}
	if _, ok := c.Get(5); ok {
		t.Fatal("Get(5) should be out of range")
	}
}

func TestSet(t *testing.T) {
	c := New[string]()
	c.Add("a")
	c.Add("b")
	c.Set(1, "patched")
	v, _ := c.Get(1)
	if v != "patched" {
		t.Fatalf("Get(1) = %q, want %q", v, "patched")
	}
}

func TestLen(t *testing.T) {
	c := New[int]()
	if c.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", c.Len())
	}
	c.Add(1)
	c.Add(2)
	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", c.Len())
	}
}
