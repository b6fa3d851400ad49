// Command pcfg induces a probabilistic context-free grammar from a treebank
// and parses sentences with it.
//
//	pcfg induce [options] train.tree
//	pcfg parse [options] [token ...]
package main

import (
	"fmt"
	"os"

	"github.com/golang/glog"
)

func main() {
	app := AllCommands()
	err := app.Flag.Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "**err**: %v\n", err)
		os.Exit(1)
	}

	err = app.Dispatch(app.Flag.Args())
	glog.Flush()
	if err != nil {
		fmt.Fprintf(os.Stderr, "**err**: %v\n", err)
		os.Exit(1)
	}
}
