package answer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/papercomputeco/folio/pkg/config"
	"github.com/papercomputeco/folio/pkg/llm"
	"github.com/papercomputeco/folio/pkg/logger"
)

// AskPath is the backend route questions are forwarded to.
const AskPath = "/v2/chatbot/ask-question/"

// Backend forwards questions to the live question-answering service.
type Backend struct {
	source     config.BackendSource
	httpClient *http.Client
	logger     *zap.Logger
}

// NewBackend creates a Backend. The client should carry no timeout of its
// own; each call is bounded only by the caller's context.
func NewBackend(source config.BackendSource, client *http.Client, logger *zap.Logger) *Backend {
	if client == nil {
		client = &http.Client{}
	}
	return &Backend{
		source:     source,
		httpClient: client,
		logger:     logger,
	}
}

// Ask issues exactly one POST to the backend and returns its answer. The
// question is forwarded exactly as received.
func (b *Backend) Ask(ctx context.Context, question json.RawMessage) (string, error) {
	base := b.source.BackendURL()
	b.logger.Debug("resolved backend address", zap.String("backend", base))
	if base == "" {
		b.logger.Error("backend URL is undefined")
		return "", ErrBackendNotConfigured
	}

	reqBody, err := json.Marshal(llm.AskRequest{Question: question})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := strings.TrimRight(base, "/") + AskPath
	b.logger.Info("forwarding question to backend",
		zap.String("url", url),
		zap.Int("body_size", len(reqBody)),
	)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := b.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() == nil && unreachable(err) {
			return "", &UnavailableError{URL: url, Err: err}
		}
		return "", fmt.Errorf("do request: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		b.logger.Error("backend response not ok",
			zap.Int("status", httpResp.StatusCode),
			zap.String("body", logger.Truncate(string(body), 500)),
		)
		return "", &StatusError{StatusCode: httpResp.StatusCode, Body: string(body)}
	}

	var resp llm.AskResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", &MalformedResponseError{Err: err}
	}
	if resp.Answer == nil {
		return "", &MalformedResponseError{Err: errors.New(`missing "answer" field`)}
	}

	return *resp.Answer, nil
}

// unreachable reports whether err happened before a connection to the
// backend existed: a refused or failed dial, or a failed name lookup.
func unreachable(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}
