// Package maincmd implements the lox command-line driver: flag parsing
// and dispatch between the REPL, run-file and dump subcommands.
package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"
)

const binName = "lox"

var (
	shortUsage = fmt.Sprintf(`
usage: %s [<option>...] [<path>]
       %[1]s dump <path>
Run '%[1]s --help' for details.
`, binName)

	longUsage = fmt.Sprintf(`usage: %s [<option>...] [<path>]
       %[1]s dump <path>
       %[1]s -h|--help
       %[1]s -v|--version

Single-pass bytecode compiler and virtual machine for the %[1]s
scripting language.

With no <path>, %[1]s starts an interactive REPL: each line is compiled
and run against a VM shared across the whole session, so declarations
made on one line are visible on the next. With a <path>, it compiles
and runs that source file.

The <dump> command compiles <path> and prints the disassembled
bytecode of every function it produced (main, each fun, each loop
body), without running any of it.

Valid flag options are:
       -h --help                 Show this help and exit.
       -v --version              Print version and exit.
       --debug                   Trace every opcode dispatched, same
                                  as setting DEBUG=1 in the environment.
       --config <path>           Load debug settings from a YAML
                                  file.

More information on the %[1]s repository:
       https://github.com/loxlang/lox
`, binName)
)

// Cmd holds the parsed command line and dispatches to the appropriate
// subcommand from Main.
type Cmd struct {
	BuildVersion string
	BuildDate    string

	Help    bool   `flag:"h,help"`
	Version bool   `flag:"v,version"`
	Debug   bool   `flag:"debug"`
	Config  string `flag:"config"`

	args []string
}

func (c *Cmd) SetArgs(args []string)          { c.args = args }
func (c *Cmd) SetFlags(_ map[string]bool)     {}

// Validate checks the positional arguments once flags have been parsed:
// at most a subcommand name and a path, and "dump" always requires a
// path.
func (c *Cmd) Validate() error {
	if c.Help || c.Version {
		return nil
	}
	if len(c.args) > 2 {
		return fmt.Errorf("too many arguments")
	}
	if len(c.args) > 0 && c.args[0] == "dump" && len(c.args) < 2 {
		return fmt.Errorf("dump: a source path is required")
	}
	if len(c.args) == 2 && c.args[0] != "dump" {
		return fmt.Errorf("too many arguments")
	}
	return nil
}

func (c *Cmd) Main(args []string, stdio mainer.Stdio) mainer.ExitCode {
	p := mainer.Parser{
		EnvVars:   false, // leaving this here for now in case some flags can use this
		EnvPrefix: binName + "_",
	}
	if err := p.Parse(args, c); err != nil {
		fmt.Fprintf(stdio.Stderr, "invalid arguments: %s\n%s", err, shortUsage)
		return mainer.InvalidArgs
	}

	switch {
	case c.Help:
		fmt.Fprint(stdio.Stdout, longUsage)
		return mainer.Success

	case c.Version:
		fmt.Fprintf(stdio.Stdout, "%s %s %s\n", binName, c.BuildVersion, c.BuildDate)
		return mainer.Success
	}

	debug := c.Debug || os.Getenv("DEBUG") != ""
	if c.Config != "" {
		cfg, err := loadConfig(c.Config)
		if err != nil {
			fmt.Fprintf(stdio.Stderr, "config: %s\n", err)
			return mainer.Failure
		}
		debug = debug || cfg.Debug
	}

	ctx := mainer.CancelOnSignal(context.Background(), os.Interrupt)

	var err error
	switch {
	case len(c.args) == 0:
		err = RunREPL(ctx, stdio, debug, defaultPrompt)
	case c.args[0] == "dump":
		err = DumpFile(ctx, stdio, c.args[1])
	default:
		err = RunFile(ctx, stdio, c.args[0], debug)
	}
	if err != nil {
		// each subcommand takes care of printing its own errors
		return mainer.Failure
	}
	return mainer.Success
}
