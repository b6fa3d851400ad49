package pcfg

import (
	"context"
	"fmt"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/pkg/errors"
)

func mustTreebank(t *testing.T, lines ...string) []*Node {
	t.Helper()
	trees, err := ReadTreebank(strings.NewReader(strings.Join(lines, "\n")))
	if err != nil {
		t.Fatal(err)
	}
	return trees
}

func probabilities(rules []WeightedRule) map[Rule]float64 {
	probs := map[Rule]float64{}
	for _, r := range rules {
		probs[r.Rule] = r.Probability
	}
	return probs
}

func TestCountTable(t *testing.T) {
	counts := NewCountTable()
	for _, tree := range mustTreebank(t,
		"(S (NP dog) (VP barks))",
		"(S (VP barks) (NP dog))",
		"(S (NP cat) (VP (V sees) (NP dog)))") {
		if err := counts.AddTree(tree); err != nil {
			t.Fatal(err)
		}
	}

	if counts.Trees != 3 {
		t.Fatalf("3 trees expected, got %d", counts.Trees)
	}
	if n := counts.Binary[BinaryRule("S", "NP", "VP")]; n != 2 {
		t.Errorf("S ::= NP VP counted %d times", n)
	}
	if n := counts.Binary[BinaryRule("S", "VP", "NP")]; n != 1 {
		t.Errorf("S ::= VP NP counted %d times", n)
	}
	if n := counts.BinaryByLhs["S"][[2]Symbol{"NP", "VP"}]; n != 3 {
		t.Errorf("sorted group of S counted %d times", n)
	}
	if n := counts.Unary[UnaryRule("NP", "dog")]; n != 3 {
		t.Errorf("NP ::= dog counted %d times", n)
	}
	if counts.UnaryTotal() != 7 {
		t.Errorf("7 unary occurrences expected, got %d", counts.UnaryTotal())
	}
}

func TestCountTableNotCNF(t *testing.T) {
	counts := NewCountTable()
	err := counts.AddTree(mustTree(t, "(S (NP (D the) (N dog)) (VP (V sees) (NP a) (NP b)))"))
	if !errors.Is(err, ErrNotChomskyNormalForm) {
		t.Fatalf("ErrNotChomskyNormalForm expected, got %v", err)
	}
	// Nothing of the failing tree is kept
	if counts.Trees != 0 || len(counts.Unary) != 0 || len(counts.Binary) != 0 {
		t.Fatalf("partial counts kept: %+v", counts)
	}
}

func TestEstimateMLE(t *testing.T) {
	counts := NewCountTable()
	for _, tree := range mustTreebank(t,
		"(S (NP dog) (VP barks))",
		"(S (NP dog) (VP barks))",
		"(S (VP barks) (NP dog))",
		"(NP (D the) (N dog))") {
		if err := counts.AddTree(tree); err != nil {
			t.Fatal(err)
		}
	}
	probs := probabilities(counts.Estimate(SmoothInventory))
	if math.Abs(probs[BinaryRule("S", "NP", "VP")]-2.0/3) > 1e-12 {
		t.Errorf("S ::= NP VP: %g", probs[BinaryRule("S", "NP", "VP")])
	}
	if math.Abs(probs[BinaryRule("S", "VP", "NP")]-1.0/3) > 1e-12 {
		t.Errorf("S ::= VP NP: %g", probs[BinaryRule("S", "VP", "NP")])
	}
	if probs[BinaryRule("NP", "D", "N")] != 1 {
		t.Errorf("NP ::= D N: %g", probs[BinaryRule("NP", "D", "N")])
	}

	sums := map[Symbol]float64{}
	for rule, p := range probs {
		if rule.IsBinary() {
			sums[rule.Lhs] += p
		}
	}
	for lhs, sum := range sums {
		if math.Abs(sum-1) > 1e-6 {
			t.Errorf("binary rules of %s sum to %g", lhs, sum)
		}
	}
}

func TestEstimateLaplace(t *testing.T) {
	counts := NewCountTable()
	if err := counts.AddTree(mustTree(t, "(S (NP dog) (VP barks))")); err != nil {
		t.Fatal(err)
	}
	rules := counts.Estimate(SmoothInventory)
	// (1 + 1) / (2 + 2 + 1)
	for _, r := range rules {
		if r.IsUnary() && math.Abs(r.Probability-0.4) > 1e-12 {
			t.Errorf("%s: 0.4 expected", r)
		}
	}

	// Sorted by lhs then right side
	expected := []Rule{UnaryRule("NP", "dog"), BinaryRule("S", "NP", "VP"), UnaryRule("VP", "barks")}
	got := []Rule{}
	for _, r := range rules {
		got = append(got, r.Rule)
	}
	if !reflect.DeepEqual(got, expected) {
		t.Fatalf("%v != %v", got, expected)
	}
}

// largeTreebank has 600 trees over 11 distinct unary rules
func largeTreebank() []string {
	lines := []string{}
	for i := 0; i < 600; i++ {
		lines = append(lines, fmt.Sprintf("(S (NP w%d) (VP barks))", i%10))
	}
	return lines
}

func TestEstimateLaplaceSum(t *testing.T) {
	trees := mustTreebank(t, largeTreebank()...)
	rules, err := NewInductor().Induce(context.Background(), trees)
	if err != nil {
		t.Fatal(err)
	}
	sum := 0.0
	for _, r := range rules {
		if r.IsUnary() {
			sum += r.Probability
		}
	}
	// (total + distinct) / (total + distinct + 1) = 1211 / 1212
	if math.Abs(sum-1211.0/1212) > 1e-9 {
		t.Fatalf("unary probabilities sum to %g", sum)
	}
	if 1-sum >= 1e-3 {
		t.Fatalf("unary probabilities sum to %g", sum)
	}
}

func TestEstimatePerSymbol(t *testing.T) {
	trees := mustTreebank(t, largeTreebank()...)
	inductor := &Inductor{Smoothing: SmoothPerSymbol, Workers: 2}
	rules, err := inductor.Induce(context.Background(), trees)
	if err != nil {
		t.Fatal(err)
	}
	probs := probabilities(rules)
	// NP: 60 of 600 over 10 words
	if p := probs[UnaryRule("NP", "w3")]; math.Abs(p-61.0/611) > 1e-12 {
		t.Errorf("NP ::= w3: %g", p)
	}
	// VP: 600 of 600 over 1 word
	if p := probs[UnaryRule("VP", "barks")]; math.Abs(p-601.0/602) > 1e-12 {
		t.Errorf("VP ::= barks: %g", p)
	}
}

func TestInductorParallel(t *testing.T) {
	trees := mustTreebank(t, append(largeTreebank(),
		"(S (NP cat) (VP (V sees) (NP dog)))",
		"(S (VP barks) (NP dog))")...)

	sequential, err := (&Inductor{Workers: 1}).Induce(context.Background(), trees)
	if err != nil {
		t.Fatal(err)
	}
	parallel, err := (&Inductor{Workers: 7}).Induce(context.Background(), trees)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(sequential, parallel) {
		t.Fatal("parallel counting must give the same grammar")
	}
}

func TestInductorInvalidTree(t *testing.T) {
	trees := mustTreebank(t,
		"(S (NP dog) (VP barks))",
		"(S (NP dog) (VP barks) (PP x))",
		"(S (NP cat) (VP meows))")

	_, err := (&Inductor{Workers: 1}).Count(context.Background(), trees)
	if !errors.Is(err, ErrNotChomskyNormalForm) {
		t.Fatalf("ErrNotChomskyNormalForm expected, got %v", err)
	}
	if !strings.Contains(err.Error(), "tree 2") {
		t.Fatalf("error must name the tree: %v", err)
	}

	counts, err := (&Inductor{Workers: 2, SkipInvalid: true}).Count(context.Background(), trees)
	if err != nil {
		t.Fatal(err)
	}
	if counts.Trees != 2 || counts.Skipped != 1 {
		t.Fatalf("%d trees, %d skipped", counts.Trees, counts.Skipped)
	}
	if _, ok := counts.Binary[BinaryRule("S", "NP", "VP")]; !ok {
		t.Fatal("valid trees must be counted")
	}
}

func TestInductorCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewInductor().Count(ctx, mustTreebank(t, "(S (NP dog) (VP barks))"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("context.Canceled expected, got %v", err)
	}
}

func TestParseSmoothing(t *testing.T) {
	for text, expected := range map[string]Smoothing{
		"":           SmoothInventory,
		"inventory":  SmoothInventory,
		"per-symbol": SmoothPerSymbol,
		"LHS":        SmoothPerSymbol,
	} {
		s, err := ParseSmoothing(text)
		if err != nil || s != expected {
			t.Errorf("%q: %v %v", text, s, err)
		}
	}
	if _, err := ParseSmoothing("kneser-ney"); err == nil {
		t.Error("unknown smoothing must fail")
	}
}
