package main

import (
	"context"
	"fmt"

	"github.com/davidcse/pcfg"
	"github.com/golang/glog"
	"github.com/gonuts/commander"
	"github.com/gonuts/flag"
	"github.com/pkg/errors"
)

func Induce(cmd *commander.Command, args []string) error {
	if len(args) != 1 {
		cmd.Usage()
		return errors.New("induce: expected exactly one treebank file")
	}
	conf, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	inductor, err := conf.Inductor()
	if err != nil {
		return err
	}

	glog.V(1).Infof("induce: treebank %s, smoothing %s, skip invalid %v",
		args[0], inductor.Smoothing, inductor.SkipInvalid)
	trees, err := pcfg.ReadTreebankFile(args[0])
	if err != nil {
		return err
	}
	rules, err := inductor.Induce(context.Background(), trees)
	if err != nil {
		return errors.Wrap(err, args[0])
	}

	if glog.V(1) {
		sum := 0.0
		for _, rule := range rules {
			if rule.IsUnary() {
				sum += rule.Probability
			}
		}
		glog.Infof("induce: unary probabilities sum to %.6f", sum)
	}

	if err := pcfg.WriteRuleFiles(conf.UnaryRules, conf.BinaryRules, rules); err != nil {
		return err
	}
	fmt.Printf("written into : %s\n", conf.UnaryRules)
	fmt.Printf("written into : %s\n", conf.BinaryRules)
	return nil
}

func InduceCmd() *commander.Command {
	cmd := &commander.Command{
		Run:       Induce,
		UsageLine: "induce <file options> [arguments] train.tree",
		Short:     "estimate a PCFG from a treebank",
		Long: `
estimate a PCFG in Chomsky normal form from a treebank

	$ pcfg induce [-config conf.yaml] [-unary file] [-binary file] train.tree

The treebank holds one bracketed tree per line, like (S (NP dog) (VP barks)).
Binary rules get maximum likelihood estimates, unary rules add-one smoothed
estimates. Both rule files are written only if every tree was read.
`,
		Flag: *flag.NewFlagSet("induce", flag.ExitOnError),
	}
	registerConfigFlags(cmd)
	cmd.Flag.StringVar(&smoothing, "smoothing", pcfg.SmoothInventory.String(), "Unary smoothing: inventory or per-symbol")
	cmd.Flag.BoolVar(&skipInvalid, "skip-invalid", false, "Skip trees not in Chomsky normal form instead of failing")
	return cmd
}
