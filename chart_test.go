package pcfg

import (
	"math"
	"testing"

	"github.com/pkg/errors"
)

func TestChartIndex(t *testing.T) {
	store := mustStore(t, unary("A", "x", 1))
	chart := newChart(store, []string{"a", "b", "c", "d", "e"})
	seen := map[int]bool{}
	for begin := 0; begin < 5; begin++ {
		for end := begin + 1; end <= 5; end++ {
			i := chart.index(begin, end)
			if i < 0 || i >= len(chart.cells) || seen[i] {
				t.Fatalf("span [%d, %d) maps to %d", begin, end, i)
			}
			seen[i] = true
		}
	}
	if len(seen) != 15 {
		t.Fatalf("15 cells expected, got %d", len(seen))
	}
}

func TestChartUpdateIfGreater(t *testing.T) {
	store := mustStore(t, binary("S", "NP", "VP", 1), unary("NP", "dog", 1), unary("VP", "barks", 1))
	chart := newChart(store, []string{"dog", "barks"})

	score, err := chart.Get(0, 1, "NP")
	if err != nil {
		t.Fatal(err)
	}
	if !math.IsInf(score, -1) {
		t.Fatalf("-Inf expected before any update, got %g", score)
	}

	updated, err := chart.UpdateIfGreater(0, 1, "NP", -1, Backpointer{Kind: LexicalBackpointer})
	if err != nil || !updated {
		t.Fatalf("first update must succeed: %v %v", updated, err)
	}
	// Idempotent
	updated, err = chart.UpdateIfGreater(0, 1, "NP", -1, Backpointer{Kind: LexicalBackpointer})
	if err != nil || updated {
		t.Fatalf("second update must not change state: %v %v", updated, err)
	}
	if score, _ := chart.Get(0, 1, "NP"); score != -1 {
		t.Fatalf("-1 expected, got %g", score)
	}

	// Lower candidates never replace the best one, equal ones keep the first
	if updated, _ := chart.UpdateIfGreater(0, 1, "NP", -3, Backpointer{Kind: UnaryBackpointer, Left: "VP"}); updated {
		t.Fatal("lower candidate accepted")
	}
	if updated, _ := chart.UpdateIfGreater(0, 1, "NP", -1, Backpointer{Kind: UnaryBackpointer, Left: "VP"}); updated {
		t.Fatal("tie replaced the first backpointer")
	}
	bp, err := chart.Backpointer(0, 1, "NP")
	if err != nil {
		t.Fatal(err)
	}
	if bp.Kind != LexicalBackpointer {
		t.Fatalf("Lexical expected, got %s", bp)
	}

	updated, _ = chart.UpdateIfGreater(0, 1, "NP", -0.5, Backpointer{Kind: UnaryBackpointer, Left: "VP"})
	if !updated {
		t.Fatal("greater candidate rejected")
	}
	if bp, _ := chart.Backpointer(0, 1, "NP"); bp.String() != "Unary{child:VP}" {
		t.Fatalf("Unary{child:VP} expected, got %s", bp)
	}

	// Other spans are untouched
	if score, _ := chart.Get(0, 2, "NP"); !math.IsInf(score, -1) {
		t.Fatalf("[0, 2) must be empty, got %g", score)
	}
}

func TestChartErrors(t *testing.T) {
	store := mustStore(t, unary("NP", "dog", 1))
	chart := newChart(store, []string{"dog", "dog"})

	if _, err := chart.Get(0, 1, "VP"); !errors.Is(err, ErrSymbolNotFound) {
		t.Fatalf("ErrSymbolNotFound expected, got %v", err)
	}
	if _, err := chart.UpdateIfGreater(0, 1, "VP", 0, Backpointer{Kind: LexicalBackpointer}); !errors.Is(err, ErrSymbolNotFound) {
		t.Fatalf("ErrSymbolNotFound expected, got %v", err)
	}
	if _, err := chart.UpdateIfGreater(0, 1, "NP", 0, Backpointer{Kind: UnaryBackpointer}); err == nil {
		t.Fatal("unary backpointer without child must fail")
	}
	for _, span := range [][2]int{{1, 1}, {-1, 1}, {0, 3}, {2, 1}} {
		if _, err := chart.Get(span[0], span[1], "NP"); err == nil {
			t.Errorf("span %v must be rejected", span)
		}
	}
}
