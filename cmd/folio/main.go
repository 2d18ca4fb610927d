package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	askcmder "github.com/papercomputeco/folio/cmd/folio/ask"
	chatcmder "github.com/papercomputeco/folio/cmd/folio/chat"
	mcpcmder "github.com/papercomputeco/folio/cmd/folio/mcp"
	servecmder "github.com/papercomputeco/folio/cmd/folio/serve"
	transcriptcmder "github.com/papercomputeco/folio/cmd/folio/transcript"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

const rootLongDesc string = `folio answers questions about a resume.

It runs a small chat proxy in front of a question-answering backend,
and a terminal chat client that talks to it.`

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "folio",
		Short:         "Chat with a resume",
		Long:          rootLongDesc,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(servecmder.NewServeCmd(Version))
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(askcmder.NewAskCmd())
	cmd.AddCommand(mcpcmder.NewMCPCmd(Version))
	cmd.AddCommand(transcriptcmder.NewTranscriptCmd())

	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
