package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/sta4152/datahub/pkg/storage"
)

type extractOutput struct {
	Digest   string                 `json:"digest"`
	Aspects  []storage.AspectRecord `json:"aspects"`
	Warnings []string               `json:"warnings,omitempty"`
}

func newExtractCommand(out io.Writer) *Command {
	cmd := &Command{
		Name:        "extract",
		Description: "Extract searchable field specs from schema documents as JSON",
		Flags:       flag.NewFlagSet("extract", flag.ContinueOnError),
	}

	dir := cmd.Flags.String("dir", ".", "Directory containing schema documents")
	output := cmd.Flags.String("output", "", "Output file (default stdout)")
	aspect := cmd.Flags.String("aspect", "", "Only extract this aspect")

	cmd.Run = func(args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}

		snapshot, err := buildDir(context.Background(), *dir)
		if err != nil {
			return err
		}

		result := extractOutput{Digest: snapshot.Digest, Aspects: snapshot.Aspects, Warnings: snapshot.Warnings}
		if *aspect != "" {
			a, ok := snapshot.Aspect(*aspect)
			if !ok {
				return fmt.Errorf("aspect %s not found in %s", *aspect, *dir)
			}
			result.Aspects = []storage.AspectRecord{*a}
		}

		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode field specs: %w", err)
		}
		data = append(data, '\n')

		if *output == "" {
			_, err = out.Write(data)
			return err
		}
		if err := os.WriteFile(*output, data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", *output, err)
		}
		fmt.Fprintf(out, "Wrote %d aspects to %s\n", len(result.Aspects), *output)
		return nil
	}

	return cmd
}
