package pcfg

import (
	"context"
	"math"
	"strings"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// solver fills a chart with the CKY algorithm. Spans are processed in
// increasing size; all cells of one size are independent and may be filled
// by parallel workers, and a size only starts once the previous one is done.
type solver struct {
	store   *RuleStore
	chart   *Chart
	words   []string
	workers int
}

// fill runs the whole algorithm: the lexical diagonal, then spans of size 2
// to n. Every cell is closed under unary rules after it is filled.
func (s *solver) fill(ctx context.Context) error {
	n := len(s.words)
	if err := s.wave(ctx, 1, s.fillLexical); err != nil {
		return err
	}
	for span := 2; span <= n; span++ {
		if err := s.wave(ctx, span, s.fillBinary); err != nil {
			return err
		}
	}
	return nil
}

// wave fills every cell of size span with fillCell followed by unary closure
func (s *solver) wave(ctx context.Context, span int, fillCell func(begin, end int)) error {
	columns := len(s.words) - span + 1
	if s.workers <= 1 || columns <= 1 {
		for begin := 0; begin < columns; begin++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			fillCell(begin, begin+span)
			s.closeUnary(begin, begin+span)
		}
	} else {
		g, ctx := errgroup.WithContext(ctx)
		g.SetLimit(s.workers)
		for begin := 0; begin < columns; begin++ {
			begin := begin
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				fillCell(begin, begin+span)
				s.closeUnary(begin, begin+span)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}

	if glog.V(2) {
		row := []string{}
		for begin := 0; begin < columns; begin++ {
			row = append(row, s.chart.cellString(begin, begin+span))
		}
		glog.Infof("CKY span %d: %s", span, strings.Join(row, " "))
	}
	return nil
}

// fillLexical applies the unary rules producing the token of [begin, end)
func (s *solver) fillLexical(begin, end int) {
	for _, rule := range s.store.lexicon[s.words[begin]] {
		s.chart.updateIfGreater(begin, end, rule.lhs, rule.logProb,
			backpointer{kind: LexicalBackpointer, left: -1, right: -1})
	}
}

// fillBinary tries every split point begin < split < end and every binary
// rule whose children both reach their part of the span
func (s *solver) fillBinary(begin, end int) {
	for split := begin + 1; split < end; split++ {
		for _, left := range s.chart.reached(begin, split) {
			leftScore := s.chart.score(begin, split, left)
			for _, rule := range s.store.byLeft[left] {
				rightScore := s.chart.score(split, end, rule.right)
				if math.IsInf(rightScore, -1) {
					continue
				}
				s.chart.updateIfGreater(begin, end, rule.lhs, leftScore+rightScore+rule.logProb,
					backpointer{kind: BinaryBackpointer, split: split, left: left, right: rule.right})
			}
		}
	}
}

// closeUnary applies unary chain rules A -> B over [begin, end) until a pass
// changes nothing. A pass that changes something improves at least one
// symbol, so with probabilities <= 1 a fixpoint needs at most one pass per
// symbol plus the pass that confirms it. It returns the number of passes.
func (s *solver) closeUnary(begin, end int) int {
	limit := s.store.NumSymbols() + 1
	pass := 0
	for pass < limit {
		pass++
		updated := false
		for _, rule := range s.store.closure {
			childScore := s.chart.score(begin, end, rule.left)
			if math.IsInf(childScore, -1) {
				continue
			}
			if s.chart.updateIfGreater(begin, end, rule.lhs, childScore+rule.logProb,
				backpointer{kind: UnaryBackpointer, left: rule.left, right: -1}) {
				updated = true
			}
		}
		if !updated {
			return pass
		}
	}
	glog.Warningf("CKY: unary closure of span [%d, %d) stopped after %d passes", begin, end, pass)
	return pass
}

// BestParse reconstructs the most probable parse of the whole sentence rooted
// at start. It fails with ErrNoParseFound when start does not reach [0, n).
func (c *Chart) BestParse(start Symbol) (*Tree, error) {
	id, ok := c.store.symbolID(start)
	if !ok {
		return nil, errors.Wrapf(ErrSymbolNotFound, "start symbol '%s'", start)
	}
	n := len(c.tokens)
	if n == 0 {
		return nil, errors.Wrap(ErrNoParseFound, "empty sentence")
	}
	score := c.score(0, n, id)
	if math.IsInf(score, -1) {
		return nil, errors.Wrapf(ErrNoParseFound, "'%s' does not derive '%s'", start, strings.Join(c.tokens, " "))
	}

	root, err := c.buildNode(0, n, id, 0)
	if err != nil {
		return nil, err
	}
	return &Tree{Node: root, LogProb: score}, nil
}

// buildNode follows the backpointers of symbol id over [begin, end).
// unaryDepth counts the unary steps taken inside this span.
func (c *Chart) buildNode(begin, end, id, unaryDepth int) (*Node, error) {
	node := &Node{Symbol: string(c.store.symbols[id]), Begin: begin, End: end}
	bp := c.back(begin, end, id)
	switch bp.kind {
	case LexicalBackpointer:
		node.Children = []*Node{{Symbol: c.tokens[begin], Begin: begin, End: end}}
	case UnaryBackpointer:
		if unaryDepth >= c.store.NumSymbols() {
			return nil, errors.Errorf("BestParse: cyclic unary derivation of '%s' over [%d, %d)",
				node.Symbol, begin, end)
		}
		child, err := c.buildNode(begin, end, bp.left, unaryDepth+1)
		if err != nil {
			return nil, err
		}
		node.Children = []*Node{child}
	case BinaryBackpointer:
		left, err := c.buildNode(begin, bp.split, bp.left, 0)
		if err != nil {
			return nil, err
		}
		right, err := c.buildNode(bp.split, end, bp.right, 0)
		if err != nil {
			return nil, err
		}
		node.Children = []*Node{left, right}
	default:
		return nil, errors.Errorf("BestParse: '%s' over [%d, %d) has no backpointer", node.Symbol, begin, end)
	}
	return node, nil
}
