package mcp

import (
	"context"
)

// Client interfaces

// SamplingHandler provides an interface for generating AI model responses based on conversation history.
// The server asks for a sample with a "sampling/createMessage" request while one of the client's own
// requests is in flight; the handler runs synchronously on the goroutine that is waiting for that
// request, so it must not issue further requests on the same Client.
type SamplingHandler interface {
	// CreateSampleMessage generates a response message based on the provided conversation history and parameters.
	// Returns error if model selection fails, generation fails, token limit is exceeded, or context is cancelled.
	CreateSampleMessage(ctx context.Context, params SamplingParams) (SamplingResult, error)
}

// ToolListWatcher provides an interface for receiving notifications when the server's tool list changes.
// Implementations typically schedule a re-fetch of the listing; see ListChangedSignal for a watcher that
// hands the re-fetch to another goroutine.
type ToolListWatcher interface {
	// OnToolListChanged is called when the server notifies that its tool list has changed.
	OnToolListChanged()
}

// ResourceListWatcher provides an interface for receiving notifications when the server's resource list changes.
type ResourceListWatcher interface {
	// OnResourceListChanged is called when the server notifies that its resource list has changed.
	OnResourceListChanged()
}

// ProgressListener provides an interface for receiving progress updates on long-running operations.
// Implementations can use these notifications to update progress bars, status indicators, or other
// UI elements that show operation progress to users.
type ProgressListener interface {
	// OnProgress is called when a progress update is received for an operation.
	OnProgress(params ProgressParams)
}

// LogReceiver provides an interface for receiving log messages from the server.
type LogReceiver interface {
	// OnLog is called when a log message is received from the server.
	OnLog(params LogParams)
}

// NotificationObserver receives every notification that arrives while a single request is outstanding,
// in stream order, before the request's terminal message is returned.
type NotificationObserver func(msg JSONRPCMessage)

// Server types

// ToolHandler executes a tool call. The ProgressReporter emits "notifications/progress" on the reply
// stream of the call, and RequestClientFunc sends a request to the calling client over the same stream
// and waits for its answer.
type ToolHandler func(
	ctx context.Context,
	params CallToolParams,
	progress ProgressReporter,
	requestClient RequestClientFunc,
) (CallToolResult, error)

// ResourceReader produces the current contents of a resource.
type ResourceReader func(ctx context.Context, uri string) (ResourceContents, error)

// ProgressReporter is a function type used to report progress updates for long-running operations.
// The progress token of the originating request is filled in by the server. When Total is non-zero in
// the params, progress percentage can be calculated as (Progress/Total)*100.
type ProgressReporter func(progress ProgressParams)

// RequestClientFunc is a function type that sends a request to the client and returns the client's
// response message. It is used by tool handlers that need client side features such as sampling.
type RequestClientFunc func(ctx context.Context, method string, params any) (JSONRPCMessage, error)
