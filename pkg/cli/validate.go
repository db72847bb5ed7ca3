package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
)

func newValidateCommand(out io.Writer) *Command {
	cmd := &Command{
		Name:        "validate",
		Description: "Validate Searchable annotations in schema documents",
		Flags:       flag.NewFlagSet("validate", flag.ContinueOnError),
	}

	dir := cmd.Flags.String("dir", ".", "Directory containing schema documents")
	strict := cmd.Flags.Bool("strict", false, "Treat warnings as errors")

	cmd.Run = func(args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}

		snapshot, err := buildDir(context.Background(), *dir)
		if err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}

		for _, w := range snapshot.Warnings {
			fmt.Fprintf(out, "warning: %s\n", w)
		}
		if *strict && len(snapshot.Warnings) > 0 {
			return fmt.Errorf("validation failed: %d warnings", len(snapshot.Warnings))
		}

		fmt.Fprintf(out, "%d aspects with %d searchable fields are valid\n", len(snapshot.Aspects), snapshot.FieldCount())
		return nil
	}

	return cmd
}
