// Package mcp implements a Model Context Protocol (MCP) session client for the streamable HTTP
// transport, following https://modelcontextprotocol.io/specification/2025-03-26/basic/transports.
//
// Every client message is an HTTP POST to a single endpoint. The server answers a request either with
// a single JSON document or with an event stream that carries notifications, such as progress updates,
// followed by the request's result. The Client hides that difference: SendRequest and the typed
// operations built on it return the terminal message and deliver the interleaved notifications to the
// registered listeners in arrival order.
//
// A typical session:
//
//	client := mcp.NewClient(mcp.Info{Name: "example", Version: "1.0"}, "http://localhost:8080/mcp")
//	if _, err := client.Initialize(ctx); err != nil {
//		return err
//	}
//	defer client.Close(ctx)
//
//	tools, err := client.ListAllTools(ctx)
//
// Failures are reported through the sentinel errors ErrTransport, ErrTimeout, ErrDecode,
// ErrNotInitialized and ErrSessionExpired, which callers inspect with errors.Is. Errors answered by the
// server are *JSONRPCError values.
//
// The package also ships StreamableServer, a small server side implementation of the same transport
// that is used by the tests and by the example in example/streamable.
package mcp
