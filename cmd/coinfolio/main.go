// Command coinfolio queries live crypto prices and values investment records
// from the terminal.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")

	commander.Register(&priceCmd{}, "market")
	commander.Register(&searchCmd{}, "market")
	commander.Register(&detailCmd{}, "market")
	commander.Register(&valuateCmd{}, "portfolio")
	commander.Register(&shareCodeCmd{}, "portfolio")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
