package transcriptcmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/folio/pkg/config"
	"github.com/papercomputeco/folio/proxy"
)

const transcriptLongDesc string = `Print the exchanges a running folio proxy has answered.

Reads the proxy's in-memory transcript from its /transcript endpoint.
The proxy must be started with --transcript, and the transcript only
lives as long as the proxy process.

Examples:
  folio transcript
  folio transcript --server http://192.168.1.42:8080
  folio transcript --json`

const transcriptShortDesc string = "Print the proxy's transcript"

type transcriptCommander struct {
	serverURL string
	asJSON    bool
}

type transcriptResponse struct {
	Count     int                     `json:"count"`
	Histories []proxy.HistoryResponse `json:"histories"`
}

func NewTranscriptCmd() *cobra.Command {
	cmder := &transcriptCommander{}

	cmd := &cobra.Command{
		Use:   "transcript",
		Short: transcriptShortDesc,
		Long:  transcriptLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd)
		},
	}

	cmd.Flags().StringVarP(&cmder.serverURL, "server", "s", config.DefaultServerURL, "URL of the folio proxy")
	cmd.Flags().BoolVar(&cmder.asJSON, "json", false, "Print the raw JSON")

	return cmd
}

func (c *transcriptCommander) run(ctx context.Context, cmd *cobra.Command) error {
	serverURL := strings.TrimRight(c.serverURL, "/")

	result, err := c.fetch(ctx, serverURL)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if c.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	if result.Count == 0 {
		fmt.Fprintln(out, "No exchanges recorded yet.")
		return nil
	}

	for i, history := range result.Histories {
		if i > 0 {
			fmt.Fprintln(out)
		}
		for _, msg := range history.Messages {
			fmt.Fprintf(out, "[%s] %s\n", msg.Role, msg.Content)
		}
	}
	fmt.Fprintf(out, "\n%d exchanges\n", result.Count)

	return nil
}

func (c *transcriptCommander) fetch(ctx context.Context, serverURL string) (*transcriptResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, serverURL+"/transcript", nil)
	if err != nil {
		return nil, fmt.Errorf("could not build request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%s keeps no transcript; start it with folio serve --transcript", serverURL)
	}
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(respBody))
	}

	var result transcriptResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("could not decode response: %w", err)
	}

	return &result, nil
}
