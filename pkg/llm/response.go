package llm

// ChatResponse is the body of a successful proxy response.
type ChatResponse struct {
	Message string `json:"message"`
}

// AskResponse is the backend's reply. Answer is nil when the field is missing.
type AskResponse struct {
	Answer *string `json:"answer"`
}
