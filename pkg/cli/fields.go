package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
)

func newFieldsCommand(out io.Writer) *Command {
	cmd := &Command{
		Name:        "fields",
		Description: "List searchable fields as a table",
		Flags:       flag.NewFlagSet("fields", flag.ContinueOnError),
	}

	dir := cmd.Flags.String("dir", ".", "Directory containing schema documents")
	aspect := cmd.Flags.String("aspect", "", "Only list fields of this aspect")

	cmd.Run = func(args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}

		snapshot, err := buildDir(context.Background(), *dir)
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ASPECT\tPATH\tFIELD NAME\tTYPE\tFILTER")
		found := false
		for _, a := range snapshot.Aspects {
			if *aspect != "" && a.Name != *aspect {
				continue
			}
			found = true
			for _, f := range a.Fields {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					a.Name, f.Path, f.FieldName, f.Annotation.FieldType, strconv.FormatBool(f.Annotation.AddToFilters))
			}
		}
		if *aspect != "" && !found {
			return fmt.Errorf("aspect %s not found in %s", *aspect, *dir)
		}
		return tw.Flush()
	}

	return cmd
}
