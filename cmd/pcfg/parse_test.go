package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/davidcse/pcfg"
)

func TestParseSentences(t *testing.T) {
	store, err := pcfg.NewRuleStore([]pcfg.WeightedRule{
		{Rule: pcfg.BinaryRule("S", "NP", "VP"), Probability: 1},
		{Rule: pcfg.UnaryRule("NP", "dog"), Probability: 0.5},
		{Rule: pcfg.UnaryRule("VP", "barks"), Probability: 1},
	})
	if err != nil {
		t.Fatal(err)
	}
	parser, err := pcfg.NewParser(store, "S")
	if err != nil {
		t.Fatal(err)
	}

	sentences, err := readSentences(strings.NewReader("dog barks\n\n  barks dog \n"))
	if err != nil {
		t.Fatal(err)
	}
	if len(sentences) != 2 {
		t.Fatalf("2 sentences expected, got %d", len(sentences))
	}

	var out bytes.Buffer
	if err := parseSentences(context.Background(), parser, sentences, &out); err != nil {
		t.Fatal(err)
	}
	expected := "(S (NP dog) (VP barks))\t-1.000000\nunparseable\tbarks dog\n"
	if out.String() != expected {
		t.Fatalf("%q != %q", out.String(), expected)
	}
}

func TestAllCommands(t *testing.T) {
	app := AllCommands()
	names := []string{}
	for _, cmd := range app.Subcommands {
		names = append(names, cmd.Name())
		if cmd.Flag.Lookup(NUM_CPUS_FLAG) == nil {
			t.Errorf("%s has no -%s flag", cmd.Name(), NUM_CPUS_FLAG)
		}
	}
	if strings.Join(names, " ") != "induce parse" {
		t.Fatalf("commands: %v", names)
	}
}
