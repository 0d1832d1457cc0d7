package combin

import (
	"testing"

	"github.com/metaphizix/BetwayCombinations/internal/pkg/models"
)

func TestNew_RejectsNonPositive(t *testing.T) {
	for _, n := range []int{0, -1} {
		if _, err := New(n); err == nil {
			t.Errorf("New(%d) should fail", n)
		}
	}
}

func TestNew_RejectsOversizedCount(t *testing.T) {
	if _, err := New(MaxN + 1); err == nil {
		t.Errorf("New(%d) should fail", MaxN+1)
	}
	g, err := New(MaxN)
	if err != nil {
		t.Fatalf("New(%d): %v", MaxN, err)
	}
	if g.Size() != 59049 {
		t.Errorf("Size() for n=%d = %d, want 59049", MaxN, g.Size())
	}
}

func TestSize(t *testing.T) {
	tests := []struct {
		n    int
		size int
	}{
		{1, 3},
		{2, 9},
		{3, 27},
		{4, 81},
	}
	for _, tt := range tests {
		g, err := New(tt.n)
		if err != nil {
			t.Fatalf("New(%d): %v", tt.n, err)
		}
		if g.Size() != tt.size {
			t.Errorf("Size() for n=%d = %d, want %d", tt.n, g.Size(), tt.size)
		}
	}
}

func TestAll_N2_ExactOrder(t *testing.T) {
	g, err := New(2)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"11", "1X", "12", "X1", "XX", "X2", "21", "2X", "22"}
	all := g.All()
	if len(all) != len(want) {
		t.Fatalf("got %d combinations, want %d", len(all), len(want))
	}
	for i, c := range all {
		if c.String() != want[i] {
			t.Errorf("combination %d = %s, want %s", i, c, want[i])
		}
	}
}

func TestAll_CoversSpaceExactlyOnce(t *testing.T) {
	for n := 1; n <= 4; n++ {
		g, err := New(n)
		if err != nil {
			t.Fatal(err)
		}
		seen := make(map[string]bool)
		for _, c := range g.All() {
			if len(c) != n {
				t.Fatalf("n=%d: combination length %d", n, len(c))
			}
			s := c.String()
			if seen[s] {
				t.Errorf("n=%d: duplicate combination %s", n, s)
			}
			seen[s] = true
		}
		if len(seen) != g.Size() {
			t.Errorf("n=%d: %d distinct combinations, want %d", n, len(seen), g.Size())
		}
	}
}

func TestAll_LexicographicOrder(t *testing.T) {
	g, err := New(3)
	if err != nil {
		t.Fatal(err)
	}
	all := g.All()
	for i := 1; i < len(all); i++ {
		if !less(all[i-1], all[i]) {
			t.Errorf("combinations %d and %d out of order: %s >= %s", i-1, i, all[i-1], all[i])
		}
	}
}

func TestAt_OutOfRange(t *testing.T) {
	g, err := New(2)
	if err != nil {
		t.Fatal(err)
	}
	for _, i := range []int{-1, 9, 100} {
		if _, err := g.At(i); err == nil {
			t.Errorf("At(%d) should fail", i)
		}
	}
}

func TestAt_Endpoints(t *testing.T) {
	g, err := New(3)
	if err != nil {
		t.Fatal(err)
	}
	first, err := g.At(0)
	if err != nil {
		t.Fatal(err)
	}
	if first.String() != "111" {
		t.Errorf("At(0) = %s, want 111", first)
	}
	last, err := g.At(g.Size() - 1)
	if err != nil {
		t.Fatal(err)
	}
	if last.String() != "222" {
		t.Errorf("At(last) = %s, want 222", last)
	}
}

// less compares combinations lexicographically over home < draw < away.
func less(a, b models.Combination) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
