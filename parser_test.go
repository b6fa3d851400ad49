package pcfg

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
)

func TestInduceAndParse(t *testing.T) {
	trees := mustTreebank(t,
		"(S (NP dog) (VP barks))",
		"(S (NP cat) (VP (V sees) (NP dog)))",
		"(S (NP cat) (VP meows))")

	rules, err := NewInductor().Induce(context.Background(), trees)
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	unaryFile, binaryFile := filepath.Join(dir, "unary.txt"), filepath.Join(dir, "binary.txt")
	if err := WriteRuleFiles(unaryFile, binaryFile, rules); err != nil {
		t.Fatal(err)
	}
	store, err := LoadRuleStore(unaryFile, binaryFile)
	if err != nil {
		t.Fatal(err)
	}
	parser, err := NewParser(store, "S")
	if err != nil {
		t.Fatal(err)
	}

	for _, tree := range trees {
		parsed, err := parser.Parse(context.Background(), tree.Leaves())
		if err != nil {
			t.Fatal(err)
		}
		if parsed.Bracketed() != tree.Bracketed() {
			t.Errorf("'%s' != '%s'", parsed.Bracketed(), tree.Bracketed())
		}
	}

	// Unseen combination of seen words
	parsed, err := parser.Parse(context.Background(), strings.Fields("dog sees cat"))
	if err != nil {
		t.Fatal(err)
	}
	if parsed.Bracketed() != "(S (NP dog) (VP (V sees) (NP cat)))" {
		t.Fatalf("unexpected parse %s", parsed.Bracketed())
	}
}

func TestParseNormalizesTokens(t *testing.T) {
	// "café" with a precomposed é in the grammar, decomposed in the input
	parser := mustParser(t, "S",
		binary("S", "NP", "VP", 1),
		unary("NP", "caf\u00e9", 1),
		unary("VP", "opens", 1))

	tree, err := parser.Parse(context.Background(), []string{"cafe\u0301", "opens"})
	if err != nil {
		t.Fatal(err)
	}
	if tree.LogProb != 0 {
		t.Fatalf("log2 p = %g", tree.LogProb)
	}
}
