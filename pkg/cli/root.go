package cli

import (
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
)

// Command represents a CLI command
type Command struct {
	Name        string
	Description string
	Run         func(args []string) error
	Subcommands map[string]*Command
	Flags       *flag.FlagSet
}

// NewRootCommand creates the root command writing to stdout
func NewRootCommand() *Command {
	return newRootCommand(os.Stdout)
}

func newRootCommand(out io.Writer) *Command {
	root := &Command{
		Name:        "registry-cli",
		Description: "DataHub entity registry CLI",
		Subcommands: make(map[string]*Command),
		Flags:       flag.NewFlagSet("registry-cli", flag.ContinueOnError),
	}

	root.Subcommands["extract"] = newExtractCommand(out)
	root.Subcommands["validate"] = newValidateCommand(out)
	root.Subcommands["fields"] = newFieldsCommand(out)
	root.Subcommands["reload"] = newReloadCommand(out)

	return root
}

// Execute runs the subcommand named by the first of os.Args[1:]
func (c *Command) Execute() error {
	return c.ExecuteArgs(os.Args[1:])
}

// ExecuteArgs runs the subcommand named by args[0]
func (c *Command) ExecuteArgs(args []string) error {
	if len(args) == 0 {
		return c.usage(os.Stdout)
	}

	if args[0] == "-h" || args[0] == "--help" {
		return c.usage(os.Stdout)
	}

	if subcmd, ok := c.Subcommands[args[0]]; ok {
		return subcmd.Run(args[1:])
	}

	return fmt.Errorf("unknown command: %s", args[0])
}

// usage prints the command usage
func (c *Command) usage(w io.Writer) error {
	fmt.Fprintf(w, "Usage: %s <command> [args]\n\n", c.Name)
	fmt.Fprintf(w, "Commands:\n")
	names := make([]string, 0, len(c.Subcommands))
	for name := range c.Subcommands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-15s %s\n", name, c.Subcommands[name].Description)
	}
	return nil
}
