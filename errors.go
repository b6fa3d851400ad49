package pcfg

import (
	"github.com/pkg/errors"
)

// Error kinds returned by this package. Use errors.Is to test for them, the
// returned errors carry extra context such as file positions or spans.
var (
	ErrSymbolNotFound       = errors.New("symbol not found")
	ErrRuleNotFound         = errors.New("rule not found")
	ErrNotChomskyNormalForm = errors.New("not in chomsky normal form")
	ErrMalformedRuleLine    = errors.New("malformed rule line")
	ErrMalformedTree        = errors.New("malformed tree")
	ErrInvalidProbability   = errors.New("invalid probability")

	// ErrNoParseFound means the sentence is not generated by the grammar. It
	// is an expected outcome of parsing, not a failure of the parser.
	ErrNoParseFound = errors.New("no parse found")
)
