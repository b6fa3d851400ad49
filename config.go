package pcfg

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Default rule file names written by induction and read by the parser
const (
	DefaultUnaryRulesFile  = "ckyparse_input_unary.txt"
	DefaultBinaryRulesFile = "ckyparse_input_binary.txt"
	DefaultStartSymbol     = "S"
)

// Config holds the settings shared by induction and parsing
type Config struct {
	UnaryRules  string `yaml:"unary_rules"`
	BinaryRules string `yaml:"binary_rules"`
	StartSymbol string `yaml:"start_symbol"`

	// Goroutines used for counting trees and filling chart spans, 0 = all CPUs
	Workers int `yaml:"workers"`

	// "inventory" or "per-symbol"
	Smoothing string `yaml:"smoothing"`

	// Skip trees that are not in Chomsky normal form instead of aborting
	SkipInvalid bool `yaml:"skip_invalid"`
}

// DefaultConfig returns the configuration used when no file is given
func DefaultConfig() *Config {
	return &Config{
		UnaryRules:  DefaultUnaryRulesFile,
		BinaryRules: DefaultBinaryRulesFile,
		StartSymbol: DefaultStartSymbol,
		Smoothing:   SmoothInventory.String(),
	}
}

// LoadConfig reads a YAML configuration file. Fields missing from the file
// keep their default values.
func LoadConfig(file string) (*Config, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.Wrap(err, "LoadConfig")
	}
	return ParseConfig(data)
}

// ParseConfig parses a YAML configuration over the defaults
func ParseConfig(data []byte) (*Config, error) {
	c := DefaultConfig()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, errors.Wrap(err, "ParseConfig")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.UnaryRules == "" || c.BinaryRules == "" {
		return errors.New("config: rule file names must not be empty")
	}
	if c.StartSymbol == "" {
		return errors.New("config: start_symbol must not be empty")
	}
	if c.Workers < 0 {
		return errors.Errorf("config: workers must be >= 0, got %d", c.Workers)
	}
	if _, err := ParseSmoothing(c.Smoothing); err != nil {
		return errors.Wrap(err, "config")
	}
	return nil
}

// Inductor returns an Inductor set up from c
func (c *Config) Inductor() (*Inductor, error) {
	smoothing, err := ParseSmoothing(c.Smoothing)
	if err != nil {
		return nil, err
	}
	return &Inductor{
		Smoothing:   smoothing,
		Workers:     c.Workers,
		SkipInvalid: c.SkipInvalid,
	}, nil
}

// Parser loads the rule files named by c and returns a parser for them
func (c *Config) Parser() (*Parser, error) {
	store, err := LoadRuleStore(c.UnaryRules, c.BinaryRules)
	if err != nil {
		return nil, err
	}
	parser, err := NewParser(store, Symbol(c.StartSymbol))
	if err != nil {
		return nil, err
	}
	parser.Workers = c.Workers
	return parser, nil
}
