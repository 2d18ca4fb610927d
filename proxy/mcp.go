package proxy

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/papercomputeco/folio/pkg/answer"
	"github.com/papercomputeco/folio/pkg/llm"
)

// AskToolName is the MCP tool that answers a question.
const AskToolName = "ask_question"

// AskInput is the argument object of the ask_question tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"the question to ask about the portfolio owner"`
}

// NewMCPServer exposes provider as an MCP server with a single ask_question
// tool. Provider failures come back as tool errors, not protocol errors.
func NewMCPServer(provider answer.Provider, version string, logger *zap.Logger) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "folio", Version: version}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        AskToolName,
		Description: "Ask the resume chatbot a single question. Each call is independent; no prior conversation is sent.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in AskInput) (*mcp.CallToolResult, any, error) {
		reply, err := provider.Ask(ctx, llm.TextQuestion(in.Question))
		if err != nil {
			logger.Error("mcp ask failed", zap.Error(err))
			return &mcp.CallToolResult{
				IsError: true,
				Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
			}, nil, nil
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: reply}},
		}, nil, nil
	})

	return server
}

// NewMCPHandler serves NewMCPServer over stateless streamable HTTP with plain
// JSON responses.
func NewMCPHandler(provider answer.Provider, version string, logger *zap.Logger) http.Handler {
	server := NewMCPServer(provider, version, logger)
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return server
	}, &mcp.StreamableHTTPOptions{
		Stateless:    true,
		JSONResponse: true,
	})
}
