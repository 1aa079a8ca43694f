// Package protocoltypes holds the prompt and streaming types shared by
// the provider implementations, kept in a leaf package so the provider
// factory and the implementations do not import each other.
package protocoltypes

// Message is one role-tagged prompt entry. Role is "system", "user" or
// "assistant".
type Message struct {
	Role    string
	Content string
}

// StreamHandler receives incremental text chunks during generation.
type StreamHandler func(delta string)
