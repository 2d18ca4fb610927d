package chatcmder

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/papercomputeco/folio/pkg/chatview"
	"github.com/papercomputeco/folio/pkg/client"
	"github.com/papercomputeco/folio/pkg/config"
	"github.com/papercomputeco/folio/pkg/conversation"
	"github.com/papercomputeco/folio/pkg/logger"
	"github.com/papercomputeco/folio/pkg/typewriter"
)

const chatLongDesc string = `Chat with a running folio proxy.

On a terminal this opens a full-screen chat view: type a question,
press enter, and the answer is typed out as it arrives. Press ctrl+s
to reveal an answer at once and esc to quit.

When stdin is not a terminal, each input line is sent as a question
and the answers are written to stdout.

Logs go to a rotating file, since the terminal belongs to the chat.

Examples:
  folio chat
  folio chat --server http://192.168.1.42:8080
  echo "What languages do you know?" | folio chat --instant`

const chatShortDesc string = "Chat with a folio proxy"

const linePrompt = "› "

type chatCommander struct {
	configPath string
	serverURL  string
	greeting   string
	logFile    string
	timeout    time.Duration
	instant    bool
	debug      bool
}

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd)
		},
	}

	cmd.Flags().StringVarP(&cmder.configPath, "config", "c", "", "Path to a TOML config file")
	cmd.Flags().StringVarP(&cmder.serverURL, "server", "s", config.DefaultServerURL, "URL of the folio proxy")
	cmd.Flags().StringVar(&cmder.greeting, "greeting", "", "Replace the opening message")
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Log file (default: folio-chat.log in the user cache directory)")
	cmd.Flags().DurationVar(&cmder.timeout, "timeout", 2*time.Minute, "Give up waiting for an answer after this long")
	cmd.Flags().BoolVar(&cmder.instant, "instant", false, "Show answers at once instead of typing them out")
	cmd.Flags().BoolVarP(&cmder.debug, "debug", "d", false, "Enable debug logging")

	return cmd
}

func (c *chatCommander) run(ctx context.Context, cmd *cobra.Command) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return fmt.Errorf("could not load config: %w", err)
	}
	if cmd.Flags().Changed("server") {
		cfg.Chat.ServerURL = c.serverURL
	}
	if cmd.Flags().Changed("greeting") {
		cfg.Chat.Greeting = c.greeting
	}
	if c.instant {
		cfg.Chat.RevealInterval = 0
	}

	logPath, err := c.resolveLogFile(cfg.Log.File)
	if err != nil {
		return err
	}
	log := logger.New(logger.Options{Debug: c.debug || cfg.Log.Debug, File: logPath})
	defer log.Sync()

	log.Info("chat client starting", zap.String("server", cfg.Chat.ServerURL))

	conv := conversation.New(cfg.Chat.Greeting)
	asker := c.asker(client.New(cfg.Chat.ServerURL))

	if in, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(in.Fd())) {
		return c.runView(ctx, cmd, in, conv, asker, cfg.Chat, log)
	}
	return c.runLines(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), conv, asker, cfg.Chat.RevealInterval, log)
}

// asker bounds every round trip by the timeout, so an answer that never
// comes still settles into the apology.
func (c *chatCommander) asker(api *client.Client) conversation.Asker {
	if c.timeout <= 0 {
		return api
	}
	return conversation.AskerFunc(func(ctx context.Context, question string) (string, error) {
		ctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		return api.Ask(ctx, question)
	})
}

func (c *chatCommander) resolveLogFile(configured string) (string, error) {
	if c.logFile != "" {
		return c.logFile, nil
	}
	if configured != "" {
		return configured, nil
	}
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("could not resolve log directory: %w", err)
	}
	return filepath.Join(dir, "folio", "folio-chat.log"), nil
}

func (c *chatCommander) runView(ctx context.Context, cmd *cobra.Command, in *os.File, conv *conversation.Conversation, asker conversation.Asker, chat config.ChatConfig, log *zap.Logger) error {
	style := "light"
	if termenv.HasDarkBackground() {
		style = "dark"
	}

	model := chatview.New(ctx, conv, asker, chatview.Options{
		RevealInterval: chat.RevealInterval,
		MarkdownStyle:  style,
		Logger:         log,
	})

	program := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
		tea.WithInput(in),
		tea.WithOutput(cmd.OutOrStdout()),
	)
	if _, err := program.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("chat view failed: %w", err)
	}
	return nil
}

// runLines is the non-interactive chat: one question per input line.
// Failed round trips show the apology like the view does.
func (c *chatCommander) runLines(ctx context.Context, in io.Reader, out io.Writer, conv *conversation.Conversation, asker conversation.Asker, interval time.Duration, log *zap.Logger) error {
	if err := say(ctx, out, conv.Latest().Content, interval); err != nil {
		return err
	}

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := scanner.Text()

		ok, err := conv.Submit(ctx, asker, line)
		if !ok {
			continue
		}
		if err != nil {
			log.Warn("chat request failed", zap.Error(err))
		}

		fmt.Fprintln(out, linePrompt+line)
		if err := say(ctx, out, conv.Latest().Content, interval); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func say(ctx context.Context, out io.Writer, text string, interval time.Duration) error {
	if err := typewriter.Play(ctx, out, text, interval); err != nil {
		return err
	}
	_, err := fmt.Fprintln(out)
	return err
}
