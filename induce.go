package pcfg

import (
	"context"
	"runtime"
	"sort"
	"strings"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Smoothing selects how unary (lexical) rule probabilities are smoothed
type Smoothing int

const (
	// SmoothInventory applies add-one smoothing over the whole unary rule
	// inventory: (count + 1) / (total + distinct + 1), where total and
	// distinct are taken over all unary rules. The probabilities of the
	// rules of one symbol do not sum to 1.
	SmoothInventory Smoothing = iota

	// SmoothPerSymbol applies the same formula within the unary rules of
	// each left hand symbol
	SmoothPerSymbol
)

// ParseSmoothing parses "inventory" or "per-symbol"
func ParseSmoothing(text string) (Smoothing, error) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "", "inventory":
		return SmoothInventory, nil
	case "per-symbol", "persymbol", "lhs":
		return SmoothPerSymbol, nil
	}
	return SmoothInventory, errors.Errorf("ParseSmoothing: unknown smoothing '%s'", text)
}

func (s Smoothing) String() string {
	if s == SmoothPerSymbol {
		return "per-symbol"
	}
	return "inventory"
}

// CountTable holds the rule occurrence counts of a treebank
type CountTable struct {
	// Occurrences of each rule, keyed by the full rule
	Unary  map[Rule]int
	Binary map[Rule]int

	// Occurrences grouped by left hand symbol, used for denominators.
	// Binary children are keyed in sorted order, so A -> B C and A -> C B
	// share an entry
	UnaryByLhs  map[Symbol]map[Symbol]int
	BinaryByLhs map[Symbol]map[[2]Symbol]int

	// Number of trees counted and skipped
	Trees   int
	Skipped int
}

// NewCountTable creates an empty CountTable
func NewCountTable() *CountTable {
	return &CountTable{
		Unary:       map[Rule]int{},
		Binary:      map[Rule]int{},
		UnaryByLhs:  map[Symbol]map[Symbol]int{},
		BinaryByLhs: map[Symbol]map[[2]Symbol]int{},
	}
}

func (c *CountTable) addUnary(rule Rule, n int) {
	c.Unary[rule] += n
	if c.UnaryByLhs[rule.Lhs] == nil {
		c.UnaryByLhs[rule.Lhs] = map[Symbol]int{}
	}
	c.UnaryByLhs[rule.Lhs][rule.Rhs[0]] += n
}

func (c *CountTable) addBinary(rule Rule, n int) {
	c.Binary[rule] += n
	if c.BinaryByLhs[rule.Lhs] == nil {
		c.BinaryByLhs[rule.Lhs] = map[[2]Symbol]int{}
	}
	c.BinaryByLhs[rule.Lhs][sortedPair(rule.Rhs[0], rule.Rhs[1])] += n
}

// AddTree counts the rules of the tree rooted at root. A node with more than
// two children fails with ErrNotChomskyNormalForm, and then nothing of the
// tree is counted.
func (c *CountTable) AddTree(root *Node) error {
	local := NewCountTable()
	for _, node := range PostOrder(root) {
		lhs := Symbol(node.Symbol)
		switch len(node.Children) {
		case 0:
			// a word, counted by its parent
		case 1:
			local.addUnary(UnaryRule(lhs, node.Children[0].Symbol), 1)
		case 2:
			left, right := node.Children[0], node.Children[1]
			local.addBinary(BinaryRule(lhs, Symbol(left.Symbol), Symbol(right.Symbol)), 1)
		default:
			return errors.Wrapf(ErrNotChomskyNormalForm,
				"node '%s' has %d children", node.Symbol, len(node.Children))
		}
	}
	local.Trees = 1
	c.Merge(local)
	return nil
}

// Merge adds the counts of other into c
func (c *CountTable) Merge(other *CountTable) {
	for rule, n := range other.Unary {
		c.addUnary(rule, n)
	}
	for rule, n := range other.Binary {
		c.addBinary(rule, n)
	}
	c.Trees += other.Trees
	c.Skipped += other.Skipped
}

// UnaryTotal returns the number of unary rule occurrences
func (c *CountTable) UnaryTotal() int {
	total := 0
	for _, n := range c.Unary {
		total += n
	}
	return total
}

func sumCounts[K comparable](counts map[K]int) int {
	total := 0
	for _, n := range counts {
		total += n
	}
	return total
}

// Estimate converts counts into rule probabilities. Binary rules get the
// maximum likelihood estimate count(rule) / count(lhs), unary rules get
// add-one smoothed estimates selected by smoothing. Rules are sorted by lhs
// then right side.
func (c *CountTable) Estimate(smoothing Smoothing) []WeightedRule {
	rules := make([]WeightedRule, 0, len(c.Unary)+len(c.Binary))

	total, distinct := c.UnaryTotal(), len(c.Unary)
	for rule, n := range c.Unary {
		if smoothing == SmoothPerSymbol {
			total = sumCounts(c.UnaryByLhs[rule.Lhs])
			distinct = len(c.UnaryByLhs[rule.Lhs])
		}
		rules = append(rules, WeightedRule{
			Rule:        rule,
			Probability: float64(n+1) / float64(total+distinct+1),
		})
	}

	for rule, n := range c.Binary {
		rules = append(rules, WeightedRule{
			Rule:        rule,
			Probability: float64(n) / float64(sumCounts(c.BinaryByLhs[rule.Lhs])),
		})
	}

	sort.Slice(rules, func(i, j int) bool { return rules[i].less(rules[j].Rule) })
	return rules
}

// Inductor estimates a PCFG from a treebank
type Inductor struct {
	// Smoothing of unary rules
	Smoothing Smoothing

	// Number of goroutines counting trees, <= 0 means all CPUs
	Workers int

	// When set, trees that are not in Chomsky normal form are skipped with a
	// warning. Otherwise the first such tree aborts the whole run
	SkipInvalid bool
}

// NewInductor creates an Inductor with inventory smoothing that aborts on
// the first invalid tree
func NewInductor() *Inductor {
	return &Inductor{Workers: runtime.NumCPU()}
}

func (ind *Inductor) workers(n int) int {
	workers := ind.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > n {
		workers = n
	}
	if workers < 1 {
		workers = 1
	}
	return workers
}

// Count counts the rules of all trees. Trees are split into contiguous
// chunks counted in parallel, then merged in order.
func (ind *Inductor) Count(ctx context.Context, trees []*Node) (*CountTable, error) {
	workers := ind.workers(len(trees))
	chunkSize := (len(trees) + workers - 1) / workers
	tables := make([]*CountTable, workers)

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		w := w
		begin, end := w*chunkSize, (w+1)*chunkSize
		if end > len(trees) {
			end = len(trees)
		}
		tables[w] = NewCountTable()
		g.Go(func() error {
			for i := begin; i < end; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				err := tables[w].AddTree(trees[i])
				if err == nil {
					continue
				}
				if ind.SkipInvalid && errors.Is(err, ErrNotChomskyNormalForm) {
					glog.Warningf("Inductor: skipping tree %d: %v", i+1, err)
					tables[w].Skipped++
					continue
				}
				return errors.Wrapf(err, "tree %d", i+1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	counts := NewCountTable()
	for _, table := range tables {
		counts.Merge(table)
	}
	if glog.V(1) {
		glog.Infof("Inductor: counted %d trees (%d skipped), %d unary rules, %d binary rules",
			counts.Trees, counts.Skipped, len(counts.Unary), len(counts.Binary))
	}
	return counts, nil
}

// Induce counts trees and estimates the rule probabilities
func (ind *Inductor) Induce(ctx context.Context, trees []*Node) ([]WeightedRule, error) {
	counts, err := ind.Count(ctx, trees)
	if err != nil {
		return nil, err
	}
	return counts.Estimate(ind.Smoothing), nil
}
