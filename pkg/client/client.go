// Package client talks to a folio proxy's chat endpoint.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/papercomputeco/folio/pkg/llm"
)

// ChatPath is the proxy route questions are posted to.
const ChatPath = "/api/chat"

// StatusError is returned when the proxy answers with a non-success status.
type StatusError struct {
	StatusCode int
	// Message is the proxy's "error" field, when it sent one.
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("HTTP error! status: %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP error! status: %d: %s", e.StatusCode, e.Message)
}

// Client posts questions to a folio proxy.
type Client struct {
	serverURL  string
	httpClient *fasthttp.Client
}

// New creates a Client for the proxy at serverURL.
func New(serverURL string) *Client {
	return &Client{
		serverURL: strings.TrimRight(serverURL, "/"),
		httpClient: &fasthttp.Client{
			Name:                "folio-chat",
			MaxIdleConnDuration: 30 * time.Second,
		},
	}
}

// Ask posts question and returns the proxy's answer. A non-success status,
// an "error" field in the body, or a body without a message are all errors.
//
// fasthttp has no context support: the call itself is bounded only by the
// context deadline, but Ask returns as soon as ctx is done and leaves the
// call to finish in the background.
func (c *Client) Ask(ctx context.Context, question string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	body, err := json.Marshal(llm.ChatRequest{Message: llm.TextQuestion(question)})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	done := make(chan result, 1)
	go func() {
		done <- c.post(ctx, body)
	}()

	var res result
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res = <-done:
	}
	if res.err != nil {
		return "", fmt.Errorf("do request: %w", res.err)
	}

	var out struct {
		Message *string `json:"message"`
		Error   string  `json:"error"`
	}
	decodeErr := json.Unmarshal(res.body, &out)

	if res.status < 200 || res.status > 299 {
		return "", &StatusError{StatusCode: res.status, Message: out.Error}
	}
	if decodeErr != nil {
		return "", fmt.Errorf("decode response: %w", decodeErr)
	}
	if out.Error != "" {
		return "", errors.New(out.Error)
	}
	if out.Message == nil {
		return "", errors.New(`response has no "message" field`)
	}

	return *out.Message, nil
}

type result struct {
	status int
	body   []byte
	err    error
}

// post runs one request. The response body is copied out because the
// pooled response is released on return.
func (c *Client) post(ctx context.Context, body []byte) result {
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.serverURL + ChatPath)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	var err error
	if deadline, ok := ctx.Deadline(); ok {
		err = c.httpClient.DoDeadline(req, resp, deadline)
	} else {
		err = c.httpClient.Do(req, resp)
	}
	if err != nil {
		return result{err: err}
	}

	return result{
		status: resp.StatusCode(),
		body:   append([]byte(nil), resp.Body()...),
	}
}
