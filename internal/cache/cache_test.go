package cache

import (
	"errors"
	"testing"
)

func TestMemoGetOrCreate(t *testing.T) {
	m := New[int, string]()

	calls := 0
	create := func() (string, error) {
		calls++
		return "value", nil
	}

	v, err := m.GetOrCreate(1, create)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "value" {
		t.Errorf("expected %q, got %q", "value", v)
	}

	// Second request must not call create again.
	v, err = m.GetOrCreate(1, create)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "value" {
		t.Errorf("expected %q, got %q", "value", v)
	}
	if calls != 1 {
		t.Errorf("expected 1 create call, got %d", calls)
	}
	if m.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", m.Len())
	}
}

func TestMemoCreateErrorNotCached(t *testing.T) {
	m := New[string, int]()

	boom := errors.New("boom")
	calls := 0

	_, err := m.GetOrCreate("k", func() (int, error) {
		calls++
		return 0, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if m.Len() != 0 {
		t.Errorf("failed create must not be stored, len=%d", m.Len())
	}

	// A later successful create must run.
	v, err := m.GetOrCreate("k", func() (int, error) {
		calls++
		return 42, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 42 {
		t.Errorf("expected 42, got %d", v)
	}
	if calls != 2 {
		t.Errorf("expected 2 create calls, got %d", calls)
	}
}

func TestMemoDeleteAndClear(t *testing.T) {
	m := New[int, int]()

	for i := 0; i < 4; i++ {
		i := i
		if _, err := m.GetOrCreate(i, func() (int, error) { return i * i, nil }); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if !m.Delete(2) {
		t.Error("expected Delete(2) to report removal")
	}
	if m.Delete(2) {
		t.Error("expected second Delete(2) to report absence")
	}
	if m.Len() != 3 {
		t.Errorf("expected 3 entries, got %d", m.Len())
	}

	old := m.Clear()
	if len(old) != 3 {
		t.Errorf("expected 3 returned entries, got %d", len(old))
	}
	if m.Len() != 0 {
		t.Errorf("expected empty cache after Clear, got %d", m.Len())
	}
}
