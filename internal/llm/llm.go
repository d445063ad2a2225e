// Package llm holds thin text-generation clients. The engine only
// generates in one place, the end-of-session summary, so these clients
// expose a single Complete method and leave prompt construction to the
// caller.
package llm
