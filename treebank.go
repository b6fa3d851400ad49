package pcfg

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// maxLineSize bounds a single treebank or rule-file line
const maxLineSize = 16 * 1024 * 1024

// splitBrackets splits a bracketed tree into "(", ")" and atom tokens
func splitBrackets(text string) []string {
	tokens := []string{}
	atom := strings.Builder{}
	flush := func() {
		if atom.Len() > 0 {
			tokens = append(tokens, atom.String())
			atom.Reset()
		}
	}
	for _, r := range text {
		switch {
		case r == '(' || r == ')':
			flush()
			tokens = append(tokens, string(r))
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			flush()
		default:
			atom.WriteRune(r)
		}
	}
	flush()
	return tokens
}

// ParseBracketed parses a tree like
//     (S (NP (DT the) (NN dog)) (VP barks))
// Atoms that are not labels become leaves (words). A Penn-style unlabeled
// wrapper like "( (S ...) )" is removed.
func ParseBracketed(text string) (*Node, error) {
	tokens := splitBrackets(text)
	if len(tokens) == 0 {
		return nil, errors.Wrap(ErrMalformedTree, "empty tree")
	}
	if tokens[0] != "(" {
		return nil, errors.Wrapf(ErrMalformedTree, "'%s': tree must start with '('", text)
	}

	pos := 0
	var parse func() (*Node, error)
	parse = func() (*Node, error) {
		// tokens[pos] == "("
		pos++
		node := &Node{}
		if pos < len(tokens) && tokens[pos] != "(" && tokens[pos] != ")" {
			node.Symbol = normalize(tokens[pos])
			pos++
		}
		for pos < len(tokens) {
			switch tokens[pos] {
			case ")":
				pos++
				if node.Symbol == "" && len(node.Children) == 0 {
					return nil, errors.Wrapf(ErrMalformedTree, "'%s': empty brackets", text)
				}
				return node, nil
			case "(":
				child, err := parse()
				if err != nil {
					return nil, err
				}
				node.Children = append(node.Children, child)
			default:
				node.Children = append(node.Children, &Node{Symbol: normalize(tokens[pos])})
				pos++
			}
		}
		return nil, errors.Wrapf(ErrMalformedTree, "'%s': missing ')'", text)
	}

	root, err := parse()
	if err != nil {
		return nil, err
	}
	if pos != len(tokens) {
		return nil, errors.Wrapf(ErrMalformedTree, "'%s': unexpected '%s' after tree", text, tokens[pos])
	}

	// Unlabeled wrapper
	for root.Symbol == "" && len(root.Children) == 1 && !root.Children[0].IsLeaf() {
		root = root.Children[0]
	}
	if root.Symbol == "" {
		return nil, errors.Wrapf(ErrMalformedTree, "'%s': root has no label", text)
	}
	for _, node := range PostOrder(root) {
		if node.Symbol == "" {
			return nil, errors.Wrapf(ErrMalformedTree, "'%s': node without label", text)
		}
	}
	return root, nil
}

// ReadTreebank reads one bracketed tree per line from r. Blank lines are
// skipped. The error of a malformed tree names its line.
func ReadTreebank(r io.Reader) ([]*Node, error) {
	trees := []*Node{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		tree, err := ParseBracketed(line)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", lineNo)
		}
		trees = append(trees, tree)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "ReadTreebank")
	}
	return trees, nil
}

// ReadTreebankFile reads the treebank stored in file
func ReadTreebankFile(file string) ([]*Node, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, errors.Wrap(err, "ReadTreebankFile")
	}
	defer f.Close()

	trees, err := ReadTreebank(f)
	if err != nil {
		return nil, errors.Wrap(err, file)
	}
	glog.V(1).Infof("ReadTreebankFile: read %d trees from %s", len(trees), file)
	return trees, nil
}
