package pcfg

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// ParseRuleLine parses a line of a rule file. The columns are tab separated:
//     SYMBOL	WORD	PROBABILITY
// for unary rules and
//     SYMBOL	LEFT_SYMBOL	RIGHT_SYMBOL	PROBABILITY
// for binary rules. A single trailing tab is accepted. The probability is
// linear and must lie in (0, 1].
func ParseRuleLine(line string, binary bool) (WeightedRule, error) {
	line = strings.TrimRight(line, "\r\n")
	fields := strings.Split(line, "\t")
	if len(fields) > 1 && fields[len(fields)-1] == "" {
		fields = fields[:len(fields)-1]
	}

	expected := 3
	if binary {
		expected = 4
	}
	if len(fields) != expected {
		return WeightedRule{}, errors.Wrapf(ErrMalformedRuleLine,
			"'%s': expected %d columns, found %d", line, expected, len(fields))
	}

	symbols := fields[:expected-1]
	for i, s := range symbols {
		if s == "" {
			return WeightedRule{}, errors.Wrapf(ErrMalformedRuleLine, "'%s': empty column %d", line, i+1)
		}
		symbols[i] = normalize(s)
	}

	weightText := strings.TrimSpace(fields[expected-1])
	probability, err := strconv.ParseFloat(weightText, 64)
	if err != nil {
		return WeightedRule{}, errors.Wrapf(ErrMalformedRuleLine,
			"'%s': float expected but '%s' found", line, weightText)
	}
	if probability <= 0 || probability > 1 {
		return WeightedRule{}, errors.Wrapf(ErrMalformedRuleLine,
			"'%s': probability %g out of (0, 1]", line, probability)
	}

	rule := WeightedRule{Probability: probability}
	if binary {
		rule.Rule = BinaryRule(Symbol(symbols[0]), Symbol(symbols[1]), Symbol(symbols[2]))
	} else {
		rule.Rule = UnaryRule(Symbol(symbols[0]), symbols[1])
	}
	return rule, nil
}

// ReadRules reads a unary or binary rule file from r. Blank lines are
// skipped, any other bad line fails the whole read.
func ReadRules(r io.Reader, binary bool) ([]WeightedRule, error) {
	rules := []WeightedRule{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		rule, err := ParseRuleLine(line, binary)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", lineNo)
		}
		rules = append(rules, rule)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "ReadRules")
	}
	return rules, nil
}

// ReadRuleFile reads the rules stored in file
func ReadRuleFile(file string, binary bool) ([]WeightedRule, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, errors.Wrap(err, "ReadRuleFile")
	}
	defer f.Close()

	rules, err := ReadRules(f, binary)
	if err != nil {
		return nil, errors.Wrap(err, file)
	}
	return rules, nil
}

// LoadRuleStore reads the unary and binary rule files and builds a RuleStore
func LoadRuleStore(unaryFile, binaryFile string) (*RuleStore, error) {
	unary, err := ReadRuleFile(unaryFile, false)
	if err != nil {
		return nil, err
	}
	binary, err := ReadRuleFile(binaryFile, true)
	if err != nil {
		return nil, err
	}
	glog.V(1).Infof("LoadRuleStore: %d unary rules from %s, %d binary rules from %s",
		len(unary), unaryFile, len(binary), binaryFile)
	return NewRuleStore(append(unary, binary...))
}

// WriteRules writes rules to w, one tab separated line per rule
func WriteRules(w io.Writer, rules []WeightedRule) error {
	bw := bufio.NewWriter(w)
	for _, rule := range rules {
		fields := rule.fields()
		for _, f := range fields {
			if !validSymbol(f) {
				return errors.Errorf("WriteRules: rule '%s' cannot be written", rule.Rule)
			}
		}
		fields = append(fields, strconv.FormatFloat(rule.Probability, 'g', -1, 64))
		if _, err := bw.WriteString(strings.Join(fields, "\t") + "\n"); err != nil {
			return errors.Wrap(err, "WriteRules")
		}
	}
	return errors.Wrap(bw.Flush(), "WriteRules")
}

// WriteRuleFiles writes the unary rules to unaryFile and the binary rules to
// binaryFile. Both files are written to temporary files first and renamed
// only when both succeeded.
func WriteRuleFiles(unaryFile, binaryFile string, rules []WeightedRule) (err error) {
	unary, binary := splitRules(rules)
	temps := []string{}
	defer func() {
		if err != nil {
			for _, tmp := range temps {
				os.Remove(tmp)
			}
		}
	}()

	for _, out := range []struct {
		file  string
		rules []WeightedRule
	}{{unaryFile, unary}, {binaryFile, binary}} {
		tmp, err := writeTemp(out.file, out.rules)
		if tmp != "" {
			temps = append(temps, tmp)
		}
		if err != nil {
			return err
		}
	}

	for i, file := range []string{unaryFile, binaryFile} {
		if err := os.Rename(temps[i], file); err != nil {
			return errors.Wrap(err, "WriteRuleFiles")
		}
	}
	glog.V(1).Infof("WriteRuleFiles: %d unary rules to %s, %d binary rules to %s",
		len(unary), unaryFile, len(binary), binaryFile)
	return nil
}

// writeTemp writes rules to a temporary file next to file and returns its
// name
func writeTemp(file string, rules []WeightedRule) (string, error) {
	f, err := os.CreateTemp(filepath.Dir(file), "."+filepath.Base(file)+".*")
	if err != nil {
		return "", errors.Wrap(err, "WriteRuleFiles")
	}
	if err := WriteRules(f, rules); err != nil {
		f.Close()
		return f.Name(), errors.Wrap(err, file)
	}
	if err := f.Close(); err != nil {
		return f.Name(), errors.Wrap(err, file)
	}
	return f.Name(), nil
}
