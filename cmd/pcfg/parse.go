package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/davidcse/pcfg"
	"github.com/gonuts/commander"
	"github.com/gonuts/flag"
	"github.com/pkg/errors"
)

var prettyOut bool

// parseSentences parses every sentence and writes one result line each.
// Unparseable sentences are reported, other errors stop the run.
func parseSentences(ctx context.Context, parser *pcfg.Parser, sentences [][]string, out io.Writer) error {
	for _, tokens := range sentences {
		tree, err := parser.Parse(ctx, tokens)
		if errors.Is(err, pcfg.ErrNoParseFound) {
			fmt.Fprintf(out, "unparseable\t%s\n", strings.Join(tokens, " "))
			continue
		}
		if err != nil {
			return err
		}
		if prettyOut {
			fmt.Fprintf(out, "%s\nlog2 p = %.6f\n", tree.String(), tree.LogProb)
		} else {
			fmt.Fprintf(out, "%s\t%.6f\n", tree.Bracketed(), tree.LogProb)
		}
	}
	return nil
}

// readSentences reads one whitespace tokenized sentence per non-blank line
func readSentences(r io.Reader) ([][]string, error) {
	sentences := [][]string{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		tokens := strings.Fields(scanner.Text())
		if len(tokens) > 0 {
			sentences = append(sentences, tokens)
		}
	}
	return sentences, errors.Wrap(scanner.Err(), "reading sentences")
}

func Parse(cmd *commander.Command, args []string) error {
	conf, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	parser, err := conf.Parser()
	if err != nil {
		return err
	}

	sentences := [][]string{args}
	if len(args) == 0 {
		if sentences, err = readSentences(os.Stdin); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return parseSentences(ctx, parser, sentences, os.Stdout)
}

func ParseCmd() *commander.Command {
	cmd := &commander.Command{
		Run:       Parse,
		UsageLine: "parse <file options> [arguments] [token ...]",
		Short:     "parse sentences with CKY",
		Long: `
parse sentences with a PCFG read from rule files

	$ pcfg parse [-config conf.yaml] [-unary file] [-binary file] [-start S] dog barks

Without tokens on the command line, every line of stdin is a sentence of
whitespace separated tokens. Each result line holds the bracketed best parse
and its log2 probability, or "unparseable".
`,
		Flag: *flag.NewFlagSet("parse", flag.ExitOnError),
	}
	registerConfigFlags(cmd)
	cmd.Flag.StringVar(&startSymbol, "start", pcfg.DefaultStartSymbol, "Start symbol")
	cmd.Flag.BoolVar(&prettyOut, "pretty", false, "Print indented trees")
	return cmd
}
