package pcfg

import (
	"context"
	"runtime"

	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// Parser is the struct for PCFG parsing. It only reads its RuleStore, one
// Parser may serve concurrent calls to Parse.
type Parser struct {
	store *RuleStore
	start Symbol

	// Workers is the number of goroutines filling the cells of one span
	// size, <= 0 means all CPUs
	Workers int
}

// NewParser creates a new instance of PCFG parser for the grammar in store,
// returning parses rooted at start
func NewParser(store *RuleStore, start Symbol) (*Parser, error) {
	if store == nil {
		return nil, errors.New("NewParser: nil rule store")
	}
	if !store.HasSymbol(start) {
		return nil, errors.Wrapf(ErrSymbolNotFound, "NewParser: start symbol '%s'", start)
	}
	return &Parser{store: store, start: start, Workers: 1}, nil
}

// Store returns the grammar of the parser
func (p *Parser) Store() *RuleStore {
	return p.store
}

// Start returns the start symbol
func (p *Parser) Start() Symbol {
	return p.start
}

// Fill builds the CKY chart of tokens. It returns ctx.Err() when ctx is done
// before the chart is complete.
func (p *Parser) Fill(ctx context.Context, tokens []string) (*Chart, error) {
	words := make([]string, len(tokens))
	for i, tok := range tokens {
		words[i] = normalize(tok)
	}
	workers := p.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	s := &solver{
		store:   p.store,
		chart:   newChart(p.store, tokens),
		words:   words,
		workers: workers,
	}
	if err := s.fill(ctx); err != nil {
		return nil, errors.Wrap(err, "Fill")
	}
	return s.chart, nil
}

// Parse parses tokens and returns the most probable parsing tree. When the
// sentence does not match the grammar the error is ErrNoParseFound.
func (p *Parser) Parse(ctx context.Context, tokens []string) (*Tree, error) {
	chart, err := p.Fill(ctx, tokens)
	if err != nil {
		return nil, err
	}
	tree, err := chart.BestParse(p.start)
	if err != nil {
		return nil, err
	}
	glog.V(1).Infof("Parse: %d tokens, log2 p = %.4f", len(tokens), tree.LogProb)
	return tree, nil
}
