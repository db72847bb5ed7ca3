package cli

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type reloadResponse struct {
	ID      string `json:"id"`
	Digest  string `json:"digest"`
	Aspects int    `json:"aspects"`
	Fields  int    `json:"fields"`
	Error   string `json:"error"`
}

func newReloadCommand(out io.Writer) *Command {
	cmd := &Command{
		Name:        "reload",
		Description: "Ask a running registry to reload its schemas",
		Flags:       flag.NewFlagSet("reload", flag.ContinueOnError),
	}

	registryURL := cmd.Flags.String("registry", "http://localhost:8080", "Registry URL")
	timeout := cmd.Flags.Duration("timeout", 30*time.Second, "Request timeout")

	cmd.Run = func(args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}

		client := &http.Client{Timeout: *timeout}
		resp, err := client.Post(strings.TrimSuffix(*registryURL, "/")+"/api/v1/reload", "application/json", nil)
		if err != nil {
			return fmt.Errorf("failed to reach registry: %w", err)
		}
		defer resp.Body.Close()

		var body reloadResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return fmt.Errorf("failed to decode registry response (status %d): %w", resp.StatusCode, err)
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("reload failed with status %d: %s", resp.StatusCode, body.Error)
		}

		fmt.Fprintf(out, "Snapshot %s (%s): %d aspects, %d searchable fields\n", body.ID, body.Digest, body.Aspects, body.Fields)
		return nil
	}

	return cmd
}
