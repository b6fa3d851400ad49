package main

import (
	goflag "flag"
	"os"
	"runtime"
	"strconv"

	"github.com/davidcse/pcfg"
	"github.com/golang/glog"
	"github.com/gonuts/commander"
	"github.com/gonuts/flag"
	"github.com/pkg/errors"
)

const (
	NUM_CPUS_FLAG = "cpus"
)

var (
	CPUs      int
	Verbosity int

	// shared options, see loadConfig
	configFile  string
	unaryFile   string
	binaryFile  string
	startSymbol string
	workers     int
	smoothing   string
	skipInvalid bool
)

// AllCommands returns the root command with every subcommand wrapped by
// InitCommand
func AllCommands() *commander.Command {
	cmd := &commander.Command{
		UsageLine:   os.Args[0] + " <command> [options]",
		Short:       "PCFG induction and CKY parsing",
		Subcommands: []*commander.Command{InduceCmd(), ParseCmd()},
		Flag:        *flag.NewFlagSet("pcfg", flag.ExitOnError),
	}
	for _, app := range cmd.Subcommands {
		app.Run = NewAppWrapCommand(app.Run)
		app.Flag.IntVar(&CPUs, NUM_CPUS_FLAG, 0, "Max CPUS to use (runtime.GOMAXPROCS); 0 = all")
		app.Flag.IntVar(&Verbosity, "v", 0, "Log verbosity, logs go to stderr")
	}
	return cmd
}

// registerConfigFlags adds the flags that override the configuration file
func registerConfigFlags(cmd *commander.Command) {
	cmd.Flag.StringVar(&configFile, "config", "", "YAML configuration file")
	cmd.Flag.StringVar(&unaryFile, "unary", pcfg.DefaultUnaryRulesFile, "Unary rule file")
	cmd.Flag.StringVar(&binaryFile, "binary", pcfg.DefaultBinaryRulesFile, "Binary rule file")
	cmd.Flag.IntVar(&workers, "workers", 0, "Worker goroutines; 0 = all CPUs")
}

func InitCommand(cmd *commander.Command, args []string) {
	goflag.Set("logtostderr", "true")
	goflag.Set("v", strconv.Itoa(Verbosity))

	maxCPUs := runtime.NumCPU()
	if CPUs > maxCPUs {
		glog.Warningf("Number of CPUs capped to all available (%d)", maxCPUs)
		CPUs = 0
	}
	if CPUs == 0 {
		CPUs = maxCPUs
	}
	runtime.GOMAXPROCS(CPUs)
}

func NewAppWrapCommand(f func(cmd *commander.Command, args []string) error) func(cmd *commander.Command, args []string) error {
	wrapped := func(cmd *commander.Command, args []string) error {
		InitCommand(cmd, args)
		return f(cmd, args)
	}

	return wrapped
}

// loadConfig reads the -config file, if any, then applies the flags given
// on the command line
func loadConfig(cmd *commander.Command) (*pcfg.Config, error) {
	conf := pcfg.DefaultConfig()
	if configFile != "" {
		var err error
		if conf, err = pcfg.LoadConfig(configFile); err != nil {
			return nil, err
		}
	}

	cmd.Flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "unary":
			conf.UnaryRules = unaryFile
		case "binary":
			conf.BinaryRules = binaryFile
		case "start":
			conf.StartSymbol = startSymbol
		case "workers":
			conf.Workers = workers
		case "smoothing":
			conf.Smoothing = smoothing
		case "skip-invalid":
			conf.SkipInvalid = skipInvalid
		}
	})
	if err := conf.Validate(); err != nil {
		return nil, errors.Wrap(err, cmd.Name())
	}
	return conf, nil
}
