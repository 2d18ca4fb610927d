package mcpcmder

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/folio/pkg/answer"
	"github.com/papercomputeco/folio/pkg/config"
	"github.com/papercomputeco/folio/pkg/logger"
	"github.com/papercomputeco/folio/proxy"
)

const mcpLongDesc string = `Serve the ask_question tool over MCP on stdio.

Lets an MCP client, such as a coding assistant, ask the resume
chatbot questions directly. Each tool call is one independent
question; no conversation is kept.

Logs go to stderr because stdout carries the protocol.

Examples:
  folio mcp --backend http://localhost:8000
  folio mcp --strategy canned`

const mcpShortDesc string = "Serve the chatbot as an MCP tool"

type mcpCommander struct {
	version    string
	configPath string
	backendURL string
	strategy   string
	debug      bool

	transport mcp.Transport
}

func NewMCPCmd(version string) *cobra.Command {
	return newMCPCmd(&mcpCommander{version: version})
}

func newMCPCmd(cmder *mcpCommander) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: mcpShortDesc,
		Long:  mcpLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd)
		},
	}

	cmd.Flags().StringVarP(&cmder.configPath, "config", "c", "", "Path to a TOML config file")
	cmd.Flags().StringVarP(&cmder.backendURL, "backend", "b", "", "Base URL of the question-answering backend")
	cmd.Flags().StringVar(&cmder.strategy, "strategy", config.StrategyLive, "Answer strategy: live or canned")
	cmd.Flags().BoolVarP(&cmder.debug, "debug", "d", false, "Enable debug logging")

	return cmd
}

func (c *mcpCommander) run(ctx context.Context, cmd *cobra.Command) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return fmt.Errorf("could not load config: %w", err)
	}
	if cmd.Flags().Changed("backend") {
		cfg.Backend.URL = c.backendURL
	}
	if cmd.Flags().Changed("strategy") {
		cfg.Backend.Strategy = c.strategy
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logOpts := logger.Options{Debug: c.debug || cfg.Log.Debug, File: cfg.Log.File}
	if logOpts.File == "" {
		logOpts.Output = cmd.ErrOrStderr()
	}
	log := logger.New(logOpts)
	defer log.Sync()

	provider, err := answer.FromConfig(cfg.Backend, config.StaticBackend(cfg.Backend.URL), log)
	if err != nil {
		return err
	}

	transport := c.transport
	if transport == nil {
		transport = &mcp.StdioTransport{}
	}

	log.Info("serving mcp on stdio",
		zap.String("backend", cfg.Backend.URL),
		zap.String("strategy", cfg.Backend.Strategy),
	)

	server := proxy.NewMCPServer(provider, c.version, log)
	if err := server.Run(ctx, transport); err != nil && ctx.Err() == nil {
		return fmt.Errorf("mcp server failed: %w", err)
	}
	return nil
}
