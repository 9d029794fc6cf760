// Package llm provides the chat-completion client used to shorten narration
// text and annotate it with audio expression tags. The client speaks the
// OpenAI-compatible chat completions API with JSON-mode responses and retries
// transient failures with exponential backoff.
package llm
