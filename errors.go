package mcp

import "errors"

var (
	// ErrTransport is returned when the HTTP exchange itself failed: the connection was refused or reset,
	// the peer answered with an unexpected status, or the reply body broke off before a terminal message
	// arrived. Callers usually reconnect.
	ErrTransport = errors.New("transport failure")

	// ErrTimeout is returned when no terminal message arrived within the configured bound. Unlike
	// ErrTransport the session may still be healthy, so callers usually retry.
	ErrTimeout = errors.New("request timeout")

	// ErrDecode marks a reply that could not be decoded into a JSON-RPC message.
	ErrDecode = errors.New("decode failure")

	// ErrNotInitialized is returned by operations that require a completed initialize handshake.
	ErrNotInitialized = errors.New("client not initialized")

	// ErrSessionExpired is returned when the server no longer recognises the session identifier.
	ErrSessionExpired = errors.New("session expired")
)
