package pcfg

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// BackpointerKind tells how the best score of a chart entry was derived
type BackpointerKind uint8

const (
	// NoBackpointer marks an unreachable entry
	NoBackpointer BackpointerKind = iota

	// LexicalBackpointer: a unary rule matched the single token of the span
	LexicalBackpointer

	// UnaryBackpointer: a unary rule applied to another symbol of the span
	UnaryBackpointer

	// BinaryBackpointer: a binary rule combined [begin, split) and [split, end)
	BinaryBackpointer
)

func (k BackpointerKind) String() string {
	switch k {
	case LexicalBackpointer:
		return "Lexical"
	case UnaryBackpointer:
		return "Unary"
	case BinaryBackpointer:
		return "Binary"
	}
	return "None"
}

// Backpointer records how the best score for a symbol over a span was
// derived. For unary backpointers Left is the child symbol, for binary
// backpointers Left and Right are the children and Split the split point.
type Backpointer struct {
	Kind        BackpointerKind
	Split       int
	Left, Right Symbol
}

func (b Backpointer) String() string {
	switch b.Kind {
	case UnaryBackpointer:
		return fmt.Sprintf("Unary{child:%s}", b.Left)
	case BinaryBackpointer:
		return fmt.Sprintf("Binary{split:%d, left:%s, right:%s}", b.Split, b.Left, b.Right)
	}
	return b.Kind.String()
}

// backpointer is Backpointer with symbol ids
type backpointer struct {
	kind        BackpointerKind
	split       int
	left, right int
}

// cell stores the best score and backpointer per symbol id for one span.
// Slices are allocated on first update; a nil cell scores -Inf everywhere.
type cell struct {
	mu     sync.Mutex
	scores []float64
	backs  []backpointer
}

// Chart is the triangular CKY table over a token sequence, with one cell per
// span [begin, end), 0 <= begin < end <= n. It belongs to a single parse.
type Chart struct {
	store  *RuleStore
	tokens []string
	cells  []cell
}

// newChart allocates an empty chart for tokens
func newChart(store *RuleStore, tokens []string) *Chart {
	n := len(tokens)
	return &Chart{
		store:  store,
		tokens: tokens,
		cells:  make([]cell, n*(n+1)/2),
	}
}

// Len returns the number of tokens
func (c *Chart) Len() int {
	return len(c.tokens)
}

// Tokens returns the tokens the chart was built for
func (c *Chart) Tokens() []string {
	return c.tokens
}

// index maps span [begin, end) to its position in cells. Spans starting
// before begin occupy begin*n - begin*(begin-1)/2 cells.
func (c *Chart) index(begin, end int) int {
	n := len(c.tokens)
	return begin*n - begin*(begin-1)/2 + end - begin - 1
}

func (c *Chart) checkSpan(begin, end int) error {
	if begin < 0 || end > len(c.tokens) || begin >= end {
		return errors.Errorf("span [%d, %d) out of range for %d tokens", begin, end, len(c.tokens))
	}
	return nil
}

// score returns the best score of symbol id over [begin, end) without
// locking. Only safe on cells no other goroutine is updating.
func (c *Chart) score(begin, end, id int) float64 {
	cl := &c.cells[c.index(begin, end)]
	if cl.scores == nil {
		return negInf
	}
	return cl.scores[id]
}

// back returns the backpointer of symbol id over [begin, end) without
// locking
func (c *Chart) back(begin, end, id int) backpointer {
	cl := &c.cells[c.index(begin, end)]
	if cl.backs == nil {
		return backpointer{}
	}
	return cl.backs[id]
}

// updateIfGreater replaces the score and backpointer of symbol id over
// [begin, end) if candidate is strictly greater than the current score. It
// returns true when the entry changed. Ties keep the first backpointer.
func (c *Chart) updateIfGreater(begin, end, id int, candidate float64, bp backpointer) bool {
	cl := &c.cells[c.index(begin, end)]
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if cl.scores == nil {
		if math.IsInf(candidate, -1) || math.IsNaN(candidate) {
			return false
		}
		size := c.store.NumSymbols()
		cl.scores = make([]float64, size)
		cl.backs = make([]backpointer, size)
		for i := range cl.scores {
			cl.scores[i] = negInf
		}
	}
	if !(candidate > cl.scores[id]) {
		return false
	}
	cl.scores[id] = candidate
	cl.backs[id] = bp
	return true
}

// Get returns the best log probability of sym over [begin, end), or -Inf if
// sym never reached the span. It fails with ErrSymbolNotFound when sym is not
// a symbol of the grammar.
func (c *Chart) Get(begin, end int, sym Symbol) (float64, error) {
	if err := c.checkSpan(begin, end); err != nil {
		return negInf, err
	}
	id, ok := c.store.symbolID(sym)
	if !ok {
		return negInf, errors.Wrapf(ErrSymbolNotFound, "'%s'", sym)
	}
	cl := &c.cells[c.index(begin, end)]
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return c.score(begin, end, id), nil
}

// Backpointer returns the backpointer of sym over [begin, end). Kind is
// NoBackpointer when sym never reached the span.
func (c *Chart) Backpointer(begin, end int, sym Symbol) (Backpointer, error) {
	if err := c.checkSpan(begin, end); err != nil {
		return Backpointer{}, err
	}
	id, ok := c.store.symbolID(sym)
	if !ok {
		return Backpointer{}, errors.Wrapf(ErrSymbolNotFound, "'%s'", sym)
	}
	cl := &c.cells[c.index(begin, end)]
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return c.exportBackpointer(c.back(begin, end, id)), nil
}

// UpdateIfGreater is the exported form of the chart update: it replaces the
// entry of sym over [begin, end) when candidate is strictly greater than the
// current score, and reports whether it did.
func (c *Chart) UpdateIfGreater(begin, end int, sym Symbol, candidate float64, bp Backpointer) (bool, error) {
	if err := c.checkSpan(begin, end); err != nil {
		return false, err
	}
	id, ok := c.store.symbolID(sym)
	if !ok {
		return false, errors.Wrapf(ErrSymbolNotFound, "'%s'", sym)
	}
	internal := backpointer{kind: bp.Kind, split: bp.Split, left: -1, right: -1}
	for _, child := range []struct {
		sym Symbol
		id  *int
	}{{bp.Left, &internal.left}, {bp.Right, &internal.right}} {
		if child.sym == "" {
			continue
		}
		childID, ok := c.store.symbolID(child.sym)
		if !ok {
			return false, errors.Wrapf(ErrSymbolNotFound, "'%s'", child.sym)
		}
		*child.id = childID
	}
	if (bp.Kind == UnaryBackpointer && internal.left < 0) ||
		(bp.Kind == BinaryBackpointer && (internal.left < 0 || internal.right < 0)) {
		return false, errors.Errorf("incomplete backpointer %s", bp)
	}
	return c.updateIfGreater(begin, end, id, candidate, internal), nil
}

func (c *Chart) exportBackpointer(bp backpointer) Backpointer {
	out := Backpointer{Kind: bp.kind}
	switch bp.kind {
	case UnaryBackpointer:
		out.Left = c.store.symbols[bp.left]
	case BinaryBackpointer:
		out.Split = bp.split
		out.Left = c.store.symbols[bp.left]
		out.Right = c.store.symbols[bp.right]
	}
	return out
}

// reached returns the ids of the symbols with a finite score over
// [begin, end), ascending. Reads without locking, like score.
func (c *Chart) reached(begin, end int) []int {
	cl := &c.cells[c.index(begin, end)]
	ids := []int{}
	for id, score := range cl.scores {
		if !math.IsInf(score, -1) {
			ids = append(ids, id)
		}
	}
	return ids
}

// cellString formats the reachable symbols of a span for debugging
func (c *Chart) cellString(begin, end int) string {
	reprs := []string{}
	for _, id := range c.reached(begin, end) {
		reprs = append(reprs, fmt.Sprintf("%s:%.3f", c.store.symbols[id], c.score(begin, end, id)))
	}
	return fmt.Sprintf("[%d,%d: %s]", begin, end, strings.Join(reprs, " "))
}
