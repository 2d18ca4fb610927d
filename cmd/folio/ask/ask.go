package askcmder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/folio/pkg/client"
	"github.com/papercomputeco/folio/pkg/config"
	"github.com/papercomputeco/folio/pkg/typewriter"
)

const askLongDesc string = `Ask a running folio proxy a single question.

The answer is typed out one character at a time unless --instant is
set. Unlike the chat view, failures are reported as errors.

Examples:
  folio ask "What languages do you know?"
  folio ask --server http://192.168.1.42:8080 --instant what are you working on`

const askShortDesc string = "Ask a single question"

type askCommander struct {
	serverURL string
	instant   bool
	interval  time.Duration
	timeout   time.Duration
}

func NewAskCmd() *cobra.Command {
	cmder := &askCommander{}

	cmd := &cobra.Command{
		Use:   "ask <question...>",
		Short: askShortDesc,
		Long:  askLongDesc,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd, strings.Join(args, " "))
		},
	}

	cmd.Flags().StringVarP(&cmder.serverURL, "server", "s", config.DefaultServerURL, "URL of the folio proxy")
	cmd.Flags().BoolVar(&cmder.instant, "instant", false, "Print the answer at once")
	cmd.Flags().DurationVar(&cmder.interval, "interval", typewriter.DefaultInterval, "Delay between typed characters")
	cmd.Flags().DurationVar(&cmder.timeout, "timeout", time.Minute, "Give up waiting for an answer after this long")

	return cmd
}

func (c *askCommander) run(ctx context.Context, cmd *cobra.Command, question string) error {
	if strings.TrimSpace(question) == "" {
		return fmt.Errorf("question must not be blank")
	}

	askCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		askCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	reply, err := client.New(c.serverURL).Ask(askCtx, question)
	if err != nil {
		return fmt.Errorf("could not ask %s: %w", c.serverURL, err)
	}

	interval := c.interval
	if c.instant {
		interval = 0
	}
	if err := typewriter.Play(ctx, cmd.OutOrStdout(), reply, interval); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout())

	return nil
}
