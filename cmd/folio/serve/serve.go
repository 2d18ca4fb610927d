package servecmder

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/folio/pkg/answer"
	"github.com/papercomputeco/folio/pkg/config"
	"github.com/papercomputeco/folio/pkg/logger"
	"github.com/papercomputeco/folio/proxy"
)

const serveLongDesc string = `Run the folio chat proxy.

Accepts POST /api/chat with {"message": "..."} and forwards the
question to <backend>/v2/chatbot/ask-question/. Replies are always
JSON: {"message": "..."} on success, {"error": "..."} otherwise.

When a config file is given without --backend, the file is watched
and a changed backend URL applies to the next request.

With --transcript, answered exchanges are kept in memory (the most
recent --transcript-limit of them) and served under /transcript.
Anyone who can reach the server can read them, so it is off by default.

Examples:
  folio serve --backend http://localhost:8000
  folio serve --config folio.toml
  folio serve --strategy canned --listen :9090
  folio serve --transcript --transcript-limit 20`

const serveShortDesc string = "Run the chat proxy"

type serveCommander struct {
	version    string
	configPath string
	listen     string
	backendURL string
	strategy   string
	debug      bool

	transcript      bool
	transcriptLimit int
}

func NewServeCmd(version string) *cobra.Command {
	cmder := &serveCommander{version: version}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd)
		},
	}

	cmd.Flags().StringVarP(&cmder.configPath, "config", "c", "", "Path to a TOML config file")
	cmd.Flags().StringVarP(&cmder.listen, "listen", "l", config.DefaultListenAddr, "Address to listen on")
	cmd.Flags().StringVarP(&cmder.backendURL, "backend", "b", "", "Base URL of the question-answering backend")
	cmd.Flags().StringVar(&cmder.strategy, "strategy", config.StrategyLive, "Answer strategy: live or canned")
	cmd.Flags().BoolVarP(&cmder.debug, "debug", "d", false, "Enable debug logging")
	cmd.Flags().BoolVar(&cmder.transcript, "transcript", false, "Keep answered exchanges in memory and serve them under /transcript")
	cmd.Flags().IntVar(&cmder.transcriptLimit, "transcript-limit", config.DefaultTranscriptLimit, "Number of exchanges the transcript keeps")

	return cmd
}

func (c *serveCommander) run(ctx context.Context, cmd *cobra.Command) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return fmt.Errorf("could not load config: %w", err)
	}
	if cmd.Flags().Changed("listen") {
		cfg.Server.Listen = c.listen
	}
	if cmd.Flags().Changed("backend") {
		cfg.Backend.URL = c.backendURL
	}
	if cmd.Flags().Changed("strategy") {
		cfg.Backend.Strategy = c.strategy
	}
	if cmd.Flags().Changed("transcript") {
		cfg.Server.Transcript = c.transcript
	}
	if cmd.Flags().Changed("transcript-limit") {
		cfg.Server.TranscriptLimit = c.transcriptLimit
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := logger.New(logger.Options{Debug: c.debug || cfg.Log.Debug, File: cfg.Log.File})
	defer log.Sync()

	var source config.BackendSource = config.StaticBackend(cfg.Backend.URL)
	if c.configPath != "" && !cmd.Flags().Changed("backend") {
		watcher, err := config.NewWatcher(c.configPath, log)
		if err != nil {
			return fmt.Errorf("could not watch config: %w", err)
		}
		defer watcher.Close()
		source = watcher
	}

	if cfg.Backend.Strategy == config.StrategyLive && source.BackendURL() == "" {
		log.Warn("no backend URL configured, chat requests will fail until one is set")
	}

	provider, err := answer.FromConfig(cfg.Backend, source, log)
	if err != nil {
		return err
	}

	log.Info("folio proxy starting",
		zap.String("listen", cfg.Server.Listen),
		zap.String("backend", source.BackendURL()),
		zap.String("strategy", cfg.Backend.Strategy),
		zap.Bool("transcript", cfg.Server.Transcript),
		zap.String("version", c.version),
	)

	p, err := proxy.New(proxy.Config{
		ListenAddr:      cfg.Server.Listen,
		Version:         c.version,
		Transcript:      cfg.Server.Transcript,
		TranscriptLimit: cfg.Server.TranscriptLimit,
	}, provider, log)
	if err != nil {
		return fmt.Errorf("could not create proxy: %w", err)
	}
	defer p.Close()

	errCh := make(chan error, 1)
	go func() {
		errCh <- p.Run()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("proxy server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		log.Info("shutting down")
		if err := p.Shutdown(); err != nil {
			return fmt.Errorf("could not shut down: %w", err)
		}
		if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("proxy server failed: %w", err)
		}
		return nil
	}
}
