package pcfg

import (
	"fmt"
	"strings"
)

// Node represents a single node in a treebank tree or a parsing tree. A node
// without children is a word.
type Node struct {
	// Children nodes
	Children []*Node

	// Symbol in current node, or the word for a leaf
	Symbol string

	// Span [Begin, End) of the tokens covered by this node. Only set in
	// parsing trees
	Begin, End int
}

// Tree represents the parsing tree
type Tree struct {
	*Node

	// LogProb is the base-2 log probability of the tree under the grammar
	LogProb float64
}

// IsLeaf returns true if n is a word
func (n *Node) IsLeaf() bool {
	return len(n.Children) == 0
}

// PostOrder returns the nodes of the tree rooted at n bottom-up: every node
// comes after all of its children, and siblings keep their order. The
// traversal is iterative and the result can be walked any number of times.
func PostOrder(n *Node) []*Node {
	if n == nil {
		return nil
	}
	type frame struct {
		node  *Node
		child int
	}
	order := []*Node{}
	stack := []frame{{n, 0}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.child < len(top.node.Children) {
			child := top.node.Children[top.child]
			top.child++
			stack = append(stack, frame{child, 0})
			continue
		}
		order = append(order, top.node)
		stack = stack[:len(stack)-1]
	}
	return order
}

// Leaves returns the words of the tree from left to right
func (n *Node) Leaves() []string {
	words := []string{}
	for _, node := range PostOrder(n) {
		if node.IsLeaf() {
			words = append(words, node.Symbol)
		}
	}
	return words
}

// Bracketed returns the one-line bracketed form of the tree, like
//     (S (NP dog) (VP barks))
// which is the format read by ParseBracketed
func (n *Node) Bracketed() string {
	var sb strings.Builder
	n.writeBracketed(&sb)
	return sb.String()
}

func (n *Node) writeBracketed(sb *strings.Builder) {
	if n.IsLeaf() {
		sb.WriteString(n.Symbol)
		return
	}
	sb.WriteByte('(')
	sb.WriteString(n.Symbol)
	for _, child := range n.Children {
		sb.WriteByte(' ')
		child.writeBracketed(sb)
	}
	sb.WriteByte(')')
}

// Convert the node to string
func (n *Node) String() string {
	return n.repr(0)
}

// Repr get the string representation of the ndoe recursively
func (n *Node) repr(level int) string {
	// Don't wrap with parentheses when it's a leaf node
	prefix := strings.Repeat(" ", level*2)
	if level != 0 {
		prefix = "\n" + prefix
	}

	if n.IsLeaf() {
		return prefix + n.Symbol
	}

	childrenReprs := []string{}
	for _, child := range n.Children {
		childrenReprs = append(childrenReprs, child.repr(level+1))
	}

	return fmt.Sprintf(
		"%s(%s %s)",
		prefix,
		n.Symbol,
		strings.Join(childrenReprs, " "))
}
