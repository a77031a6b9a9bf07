// Package llm provides an OpenRouter-compatible chat-completions client.
//
// It backs every generative call MenuViz makes:
//   - CompleteVisionJSON: menu and nutrition extraction from a photo
//   - CompleteJSON: translation, recipes, language detection
//   - Chat: the per-scan concierge conversation
//   - HealthCheck: doctor reachability probe
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx, empty completions and network
// timeouts with exponential backoff (base 1s, max 10s, 3 attempts by default).
// Retry-After headers are honoured up to the max delay. Context cancellation
// aborts retries immediately.
//
// DecodeLLMJSON strips code fences and surrounding prose before decoding, so
// callers can treat a decode failure as a genuinely malformed payload.
package llm
