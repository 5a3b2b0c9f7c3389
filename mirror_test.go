package mirrorcache

import "testing"

func TestMirrorBasics(t *testing.T) {
	m := newMirror[string]()
	if _, ok := m.get("a"); ok {
		t.Fatalf("empty mirror reported a hit")
	}

	m.put("a", "1")
	m.put("b", "2")
	if v, ok := m.get("a"); !ok || v != "1" {
		t.Fatalf("get: ok=%v v=%q", ok, v)
	}
	if m.size() != 2 {
		t.Fatalf("size = %d, want 2", m.size())
	}

	m.remove("a")
	if _, ok := m.get("a"); ok {
		t.Fatalf("removed id still present")
	}
	m.remove("a") // idempotent

	m.clear()
	if m.size() != 0 {
		t.Fatalf("size after clear = %d", m.size())
	}
}

func TestMirrorGetManyPositional(t *testing.T) {
	m := newMirror[int]()
	m.put("a", 1)
	m.put("c", 3)

	vals, ok := m.getMany([]string{"a", "b", "c"})
	if !ok[0] || ok[1] || !ok[2] {
		t.Fatalf("ok = %v", ok)
	}
	if vals[0] != 1 || vals[2] != 3 {
		t.Fatalf("vals = %v", vals)
	}
}

func TestMirrorReplaceAll(t *testing.T) {
	m := newMirror[int]()
	m.put("old", 1)

	m.replaceAll(map[string]int{"a": 1, "b": 2})
	if _, ok := m.get("old"); ok {
		t.Fatalf("replaceAll kept a stale entry")
	}
	if m.size() != 2 {
		t.Fatalf("size = %d, want 2", m.size())
	}
	if got := len(m.getAll()); got != 2 {
		t.Fatalf("getAll returned %d values", got)
	}
}
