package llm

import "encoding/json"

// ChatRequest is the body accepted by the proxy's chat endpoint. Message is
// kept as raw JSON so whatever the client sent is forwarded unchanged; nil
// means the client did not send the field at all.
type ChatRequest struct {
	Message json.RawMessage `json:"message,omitempty"`
}

// AskRequest is the body forwarded to the backend's ask-question route.
// The question is omitted when the inbound message was absent.
type AskRequest struct {
	Question json.RawMessage `json:"question,omitempty"`
}

// TextQuestion encodes s as a question value.
func TextQuestion(s string) json.RawMessage {
	b, _ := json.Marshal(s)
	return b
}

// QuestionText is the readable form of a question: the string itself when
// the value is a JSON string, otherwise the raw JSON text.
func QuestionText(q json.RawMessage) string {
	var s string
	if err := json.Unmarshal(q, &s); err == nil {
		return s
	}
	return string(q)
}
