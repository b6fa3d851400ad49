package pcfg

import (
	"fmt"
	"math"
	"strings"
)

// Symbol represents a nonterminal or part-of-speech category in a rule. A
// Symbol is compared by value.
type Symbol string

// Rule represents a PCFG rule in Chomsky normal form. It is either a unary
// (lexical) rule like NP -> dog, or a binary rule like S -> NP VP. Rules are
// comparable and can be used as map keys, two rules are equal iff all of
// their fields match.
type Rule struct {
	// Symbol in the left of rule
	Lhs Symbol

	// Right side of rule. For unary rules Rhs[1] is empty and Rhs[0] holds
	// the word (or the child symbol of a unary chain)
	Rhs [2]Symbol
}

// UnaryRule creates the rule lhs -> word
func UnaryRule(lhs Symbol, word string) Rule {
	return Rule{Lhs: lhs, Rhs: [2]Symbol{Symbol(word)}}
}

// BinaryRule creates the rule lhs -> left right
func BinaryRule(lhs, left, right Symbol) Rule {
	return Rule{Lhs: lhs, Rhs: [2]Symbol{left, right}}
}

// IsBinary returns true if it's a binary rule, like A -> BC
func (r Rule) IsBinary() bool {
	return r.Rhs[1] != ""
}

// IsUnary returns true if it's a unary rule, like A -> b
func (r Rule) IsUnary() bool {
	return r.Rhs[1] == ""
}

// Word returns the right side of a unary rule
func (r Rule) Word() string {
	return string(r.Rhs[0])
}

// Left returns the first child of a binary rule
func (r Rule) Left() Symbol {
	return r.Rhs[0]
}

// Right returns the second child of a binary rule
func (r Rule) Right() Symbol {
	return r.Rhs[1]
}

// less orders rules by lhs, then right side. Unary rules sort before binary
// rules of the same lhs.
func (r Rule) less(o Rule) bool {
	if r.Lhs != o.Lhs {
		return r.Lhs < o.Lhs
	}
	if r.IsBinary() != o.IsBinary() {
		return r.IsUnary()
	}
	if r.Rhs[0] != o.Rhs[0] {
		return r.Rhs[0] < o.Rhs[0]
	}
	return r.Rhs[1] < o.Rhs[1]
}

// String converts rule to string format
func (r Rule) String() string {
	if r.IsUnary() {
		return fmt.Sprintf("%s ::= %s", r.Lhs, r.Rhs[0])
	}
	return fmt.Sprintf("%s ::= %s %s", r.Lhs, r.Rhs[0], r.Rhs[1])
}

// WeightedRule is a rule with its probability in linear space. It is the unit
// exchanged between the inductor, the rule files and the RuleStore.
type WeightedRule struct {
	Rule
	Probability float64
}

// LogProb returns the base-2 logarithm of the rule probability
func (w WeightedRule) LogProb() float64 {
	return math.Log2(w.Probability)
}

// String converts weighted rule to string format
func (w WeightedRule) String() string {
	return fmt.Sprintf("%s ; %.3f", w.Rule.String(), w.Probability)
}

// fields returns the columns of w in rule-file order, without the
// probability column
func (w WeightedRule) fields() []string {
	if w.IsUnary() {
		return []string{string(w.Lhs), w.Word()}
	}
	return []string{string(w.Lhs), string(w.Rhs[0]), string(w.Rhs[1])}
}

// splitRules partitions rules into unary and binary rules, keeping order
func splitRules(rules []WeightedRule) (unary, binary []WeightedRule) {
	for _, r := range rules {
		if r.IsUnary() {
			unary = append(unary, r)
		} else {
			binary = append(binary, r)
		}
	}
	return
}

// validSymbol reports whether s can be written to a rule file
func validSymbol(s string) bool {
	return s != "" && !strings.ContainsAny(s, "\t\n\r")
}
