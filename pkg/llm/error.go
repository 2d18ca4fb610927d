// Package llm provides the JSON shapes exchanged between the chat client, the
// folio proxy, and the question-answering backend it forwards to.
package llm

// ErrorResponse is the body of every failed proxy response.
type ErrorResponse struct {
	Error string `json:"error"`
}
