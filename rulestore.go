package pcfg

import (
	"math"
	"sort"

	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// ruleRef is a rule compiled against symbol ids, as used by the CKY solver
type ruleRef struct {
	lhs int

	// child of a unary chain rule, or left child of a binary rule
	left int

	// right child of a binary rule
	right int

	logProb float64
}

// RuleStore stores the rules of a grammar in Chomsky normal form with their
// base-2 log probabilities. It is built once by NewRuleStore and read-only
// afterwards, so it may be shared by concurrent parses.
type RuleStore struct {
	// Map from symbol name to its id
	symbolIds map[Symbol]int

	// Map from symbolId to symbol name
	symbols []Symbol

	// Rules in construction order and their log probabilities
	rules    []Rule
	logProbs map[Rule]float64

	// Map from left hand symbol to its rules
	byLhs map[Symbol][]Rule

	// Map from word to the lexical rules producing it
	lexicon map[string][]ruleRef

	// Binary rules indexed by left child id, sorted by right child id. For
	// rule A -> BC it maps B to the rule itself
	byLeft [][]ruleRef

	// Unary rules whose right side is a symbol, ordered so that a rule comes
	// after every rule producing its child when unary chains are acyclic
	closure []ruleRef

	// Strongly connected unary chains
	cycles [][]Symbol
}

// NewRuleStore builds a RuleStore from rules. Probabilities must lie in
// (0, 1]. When a rule occurs more than once the last probability wins.
func NewRuleStore(rules []WeightedRule) (*RuleStore, error) {
	s := &RuleStore{
		symbolIds: map[Symbol]int{},
		symbols:   []Symbol{},
		rules:     []Rule{},
		logProbs:  map[Rule]float64{},
		byLhs:     map[Symbol][]Rule{},
		lexicon:   map[string][]ruleRef{},
	}

	for _, r := range rules {
		if !validSymbol(string(r.Lhs)) || !validSymbol(string(r.Rhs[0])) ||
			(r.IsBinary() && !validSymbol(string(r.Rhs[1]))) {
			return nil, errors.Errorf("NewRuleStore: rule '%s' has an empty or invalid symbol", r.Rule)
		}
		if math.IsNaN(r.Probability) || r.Probability <= 0 || r.Probability > 1 {
			return nil, errors.Wrapf(ErrInvalidProbability, "rule '%s' has probability %g", r.Rule, r.Probability)
		}
		if _, ok := s.logProbs[r.Rule]; ok {
			glog.Warningf("NewRuleStore: duplicate rule '%s', keeping probability %g", r.Rule, r.Probability)
		} else {
			s.rules = append(s.rules, r.Rule)
			s.byLhs[r.Lhs] = append(s.byLhs[r.Lhs], r.Rule)
		}
		s.logProbs[r.Rule] = r.LogProb()
	}

	// Nonterminals are the left hand symbols and the children of binary rules
	for _, r := range s.rules {
		s.intern(r.Lhs)
		if r.IsBinary() {
			s.intern(r.Rhs[0])
			s.intern(r.Rhs[1])
		}
	}

	s.byLeft = make([][]ruleRef, len(s.symbols))
	unaryGraph := newDirectedGraph()
	for _, r := range s.rules {
		lhs := s.symbolIds[r.Lhs]
		logProb := s.logProbs[r]
		if r.IsBinary() {
			left, right := s.symbolIds[r.Rhs[0]], s.symbolIds[r.Rhs[1]]
			s.byLeft[left] = append(s.byLeft[left], ruleRef{lhs, left, right, logProb})
			continue
		}

		s.lexicon[r.Word()] = append(s.lexicon[r.Word()], ruleRef{lhs, -1, -1, logProb})
		if child, ok := s.symbolIds[r.Rhs[0]]; ok {
			s.closure = append(s.closure, ruleRef{lhs, child, -1, logProb})
			unaryGraph.add(lhs, child)
		}
	}
	for _, refs := range s.byLeft {
		sort.SliceStable(refs, func(i, j int) bool { return refs[i].right < refs[j].right })
	}

	// Topological order puts lhs before child, process rules with the
	// latest lhs first
	position := map[int]int{}
	for i, v := range unaryGraph.topologicalSort() {
		position[v] = i
	}
	sort.SliceStable(s.closure, func(i, j int) bool {
		return position[s.closure[i].lhs] > position[s.closure[j].lhs]
	})
	for _, component := range unaryGraph.strongComponents() {
		cycle := make([]Symbol, len(component))
		for i, id := range component {
			cycle[i] = s.symbols[id]
		}
		glog.Warningf("NewRuleStore: cyclic unary chain %v", cycle)
		s.cycles = append(s.cycles, cycle)
	}

	if glog.V(1) {
		glog.Infof("NewRuleStore: %d rules, %d symbols, %d words, %d unary chain rules",
			len(s.rules), len(s.symbols), len(s.lexicon), len(s.closure))
	}
	return s, nil
}

// intern gets the id of given symbol. If the symbol not exist in the store
// insert a new one
func (s *RuleStore) intern(sym Symbol) int {
	if id, ok := s.symbolIds[sym]; ok {
		return id
	}
	id := len(s.symbols)
	s.symbolIds[sym] = id
	s.symbols = append(s.symbols, sym)
	return id
}

// Probability returns the base-2 log probability of rule
func (s *RuleStore) Probability(rule Rule) (float64, error) {
	logProb, ok := s.logProbs[rule]
	if !ok {
		return math.Inf(-1), errors.Wrapf(ErrRuleNotFound, "'%s'", rule)
	}
	return logProb, nil
}

// Contains returns whether rule is in the store
func (s *RuleStore) Contains(rule Rule) bool {
	_, ok := s.logProbs[rule]
	return ok
}

// RulesWithLhs returns the rules whose left hand symbol is sym, in the order
// they were added. It returns an empty slice when sym produces nothing.
func (s *RuleStore) RulesWithLhs(sym Symbol) []Rule {
	rules := s.byLhs[sym]
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

// HasSymbol returns whether sym is a nonterminal of the grammar
func (s *RuleStore) HasSymbol(sym Symbol) bool {
	_, ok := s.symbolIds[sym]
	return ok
}

// Symbols returns the nonterminal symbols of the grammar
func (s *RuleStore) Symbols() []Symbol {
	out := make([]Symbol, len(s.symbols))
	copy(out, s.symbols)
	return out
}

// NumSymbols returns the number of distinct nonterminal symbols
func (s *RuleStore) NumSymbols() int {
	return len(s.symbols)
}

// Len returns the number of rules
func (s *RuleStore) Len() int {
	return len(s.rules)
}

// Rules returns all rules with their linear probabilities, in the order they
// were added
func (s *RuleStore) Rules() []WeightedRule {
	out := make([]WeightedRule, len(s.rules))
	for i, r := range s.rules {
		out[i] = WeightedRule{Rule: r, Probability: math.Exp2(s.logProbs[r])}
	}
	return out
}

// UnaryCycles returns the groups of symbols that derive each other through
// unary rules only, like A -> B, B -> A
func (s *RuleStore) UnaryCycles() [][]Symbol {
	return s.cycles
}

// symbolID returns the id of sym, or false if sym is not a nonterminal
func (s *RuleStore) symbolID(sym Symbol) (int, bool) {
	id, ok := s.symbolIds[sym]
	return id, ok
}
