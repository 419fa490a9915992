package registry

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestNew(t *testing.T) {
	reg := New()
	if reg == nil {
		t.Fatal("New() returned nil")
	}
	if reg.Len() != 0 {
		t.Errorf("Len() = %d, want 0", reg.Len())
	}
	if got := reg.ListSorted(); len(got) != 0 {
		t.Errorf("ListSorted() on empty registry = %v, want empty", got)
	}
}

func TestRegistry_ListSorted(t *testing.T) {
	reg := New()
	for _, v := range []int64{3, 1, 20240101120000, 2} {
		if err := reg.Register(NewScript(v, fmt.Sprintf("m%d", v), "SELECT 1", "")); err != nil {
			t.Fatalf("Register(%d) error = %v", v, err)
		}
	}

	got := reg.ListSorted()
	want := []int64{1, 2, 3, 20240101120000}
	if len(got) != len(want) {
		t.Fatalf("ListSorted() len = %d, want %d", len(got), len(want))
	}
	for i, m := range got {
		if m.Version() != want[i] {
			t.Errorf("ListSorted()[%d].Version() = %d, want %d", i, m.Version(), want[i])
		}
	}
}

func TestRegistry_ListSortedReturnsFreshSlice(t *testing.T) {
	reg := New()
	reg.MustRegister(NewScript(2, "b", "", ""))
	reg.MustRegister(NewScript(1, "a", "", ""))

	first := reg.ListSorted()
	first[0], first[1] = first[1], first[0]

	second := reg.ListSorted()
	if second[0].Version() != 1 || second[1].Version() != 2 {
		t.Errorf("mutating a returned slice changed the registry: got %d, %d", second[0].Version(), second[1].Version())
	}

	// Registering after a listing is reflected in the next listing.
	reg.MustRegister(NewScript(0, "zero", "", ""))
	third := reg.ListSorted()
	if len(third) != 3 || third[0].Version() != 0 {
		t.Errorf("ListSorted() after Register = %v", versions(third))
	}
}

func TestRegistry_RegisterDuplicate(t *testing.T) {
	reg := New()
	reg.MustRegister(NewScript(7, "first", "", ""))

	err := reg.Register(NewScript(7, "second", "", ""))
	if !errors.Is(err, ErrDuplicateVersion) {
		t.Fatalf("Register() error = %v, want ErrDuplicateVersion", err)
	}

	m, ok := reg.Lookup(7)
	if !ok || m.Name() != "first" {
		t.Errorf("Lookup(7) = %v, %v; want the first registration", m, ok)
	}
	if reg.Len() != 1 {
		t.Errorf("Len() = %d, want 1", reg.Len())
	}
}

func TestRegistry_RegisterNil(t *testing.T) {
	if err := New().Register(nil); err == nil {
		t.Error("Register(nil) expected error")
	}
}

func TestRegistry_MustRegisterPanics(t *testing.T) {
	reg := New()
	reg.MustRegister(NewScript(1, "a", "", ""))

	defer func() {
		if recover() == nil {
			t.Error("MustRegister() with a duplicate version did not panic")
		}
	}()
	reg.MustRegister(NewScript(1, "b", "", ""))
}

func TestRegistry_Lookup(t *testing.T) {
	reg := New()
	reg.MustRegister(NewScript(42, "answer", "", ""))

	tests := []struct {
		version int64
		wantOK  bool
	}{
		{42, true},
		{41, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.version), func(t *testing.T) {
			m, ok := reg.Lookup(tt.version)
			if ok != tt.wantOK {
				t.Fatalf("Lookup(%d) ok = %v, want %v", tt.version, ok, tt.wantOK)
			}
			if ok && m.Version() != tt.version {
				t.Errorf("Lookup(%d).Version() = %d", tt.version, m.Version())
			}
		})
	}
}

func TestRegistry_ConcurrentRegister(t *testing.T) {
	reg := New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(v int64) {
			defer wg.Done()
			_ = reg.Register(NewScript(v, "m", "", ""))
			_ = reg.ListSorted()
		}(int64(i))
	}
	wg.Wait()

	if reg.Len() != 50 {
		t.Errorf("Len() = %d, want 50", reg.Len())
	}
}

func TestSortByVersion_Stable(t *testing.T) {
	migrations := []Migration{
		NewScript(2, "b", "", ""),
		NewScript(1, "first-one", "", ""),
		NewScript(1, "second-one", "", ""),
	}
	SortByVersion(migrations)

	if migrations[0].Name() != "first-one" || migrations[1].Name() != "second-one" || migrations[2].Version() != 2 {
		t.Errorf("SortByVersion() = %v", versions(migrations))
	}
}

func versions(ms []Migration) []int64 {
	out := make([]int64, len(ms))
	for i, m := range ms {
		out[i] = m.Version()
	}
	return out
}
