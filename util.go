package pcfg

import (
	"math"

	"golang.org/x/text/unicode/norm"
)

// normalize puts s in Unicode normalization form C, so that words and labels
// coming from different files compare equal regardless of their encoding
func normalize(s string) string {
	return norm.NFC.String(s)
}

// negInf is the log probability of an unreachable symbol
var negInf = math.Inf(-1)

// sortedPair returns a and b in ascending order
func sortedPair(a, b Symbol) [2]Symbol {
	if b < a {
		return [2]Symbol{b, a}
	}
	return [2]Symbol{a, b}
}
