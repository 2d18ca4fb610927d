package proxy

// DefaultTranscriptLimit caps the transcript when no limit is configured.
const DefaultTranscriptLimit = 100

// Config is the proxy server configuration.
type Config struct {
	// Address to listen on (e.g., ":8080")
	ListenAddr string

	// Version is reported by the MCP endpoint.
	Version string

	// Transcript enables recording answered exchanges and the /transcript
	// routes that read them back. Off by default: the routes are not
	// registered and nothing is kept.
	Transcript bool

	// TranscriptLimit is the number of exchanges kept; the oldest are
	// evicted first. Zero or less means DefaultTranscriptLimit.
	TranscriptLimit int
}
