package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ClientOption is a function that configures a client.
type ClientOption func(*Client)

// CallOption configures a single request.
type CallOption func(*callConfig)

// Client implements a Model Context Protocol (MCP) client over the streamable HTTP transport. Every
// message is POSTed to a single endpoint and the server answers either with one JSON document or with
// an event stream carrying notifications followed by the terminal result.
//
// A Client owns the session identifier issued by the server and a monotonically increasing request id
// counter. Exactly one request is outstanding at a time; concurrent callers are serialised. Use several
// Clients to run requests in parallel, they share no state.
//
// A Client must be created using NewClient() and requires Initialize() to be called before the typed
// operations can be performed. Close terminates the session on the server.
type Client struct {
	info         Info
	capabilities ClientCapabilities
	url          string
	httpClient   *http.Client
	logger       *slog.Logger
	metrics      *ClientMetrics

	samplingHandler     SamplingHandler
	toolListWatcher     ToolListWatcher
	resourceListWatcher ResourceListWatcher
	progressListener    ProgressListener
	logReceiver         LogReceiver

	requestTimeout time.Duration
	maxEventSize   int

	// requestSlot is held for the whole lifecycle of a request, from framing until the terminal message.
	requestSlot chan struct{}
	lastID      int64

	sessionLock        sync.RWMutex
	sessionID          string
	protocolVersion    string
	initialized        bool
	serverInfo         Info
	serverCapabilities ServerCapabilities
}

type callConfig struct {
	observer         NotificationObserver
	progressObserver func(ProgressParams)
}

var (
	defaultClientRequestTimeout = 30 * time.Second

	supportedProtocolVersions = []string{ProtocolVersion, "2025-06-18", "2024-11-05"}
)

// WithHTTPClient sets the HTTP client used for every exchange. http.DefaultClient is used otherwise.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithSamplingHandler sets the sampling handler for the client.
func WithSamplingHandler(handler SamplingHandler) ClientOption {
	return func(c *Client) {
		c.samplingHandler = handler
	}
}

// WithToolListWatcher sets the tool list watcher for the client.
func WithToolListWatcher(watcher ToolListWatcher) ClientOption {
	return func(c *Client) {
		c.toolListWatcher = watcher
	}
}

// WithResourceListWatcher sets the resource list watcher for the client.
func WithResourceListWatcher(watcher ResourceListWatcher) ClientOption {
	return func(c *Client) {
		c.resourceListWatcher = watcher
	}
}

// WithProgressListener sets the progress listener for the client.
func WithProgressListener(listener ProgressListener) ClientOption {
	return func(c *Client) {
		c.progressListener = listener
	}
}

// WithLogReceiver sets the log receiver for the client.
func WithLogReceiver(receiver LogReceiver) ClientOption {
	return func(c *Client) {
		c.logReceiver = receiver
	}
}

// WithClientRequestTimeout bounds the wait for the terminal message of every request. A request that
// exceeds it fails with ErrTimeout.
func WithClientRequestTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.requestTimeout = timeout
	}
}

// WithClientMaxEventSize sets the maximum size of a single event in a streamed reply. Events over the
// limit abort the stream with ErrTransport.
func WithClientMaxEventSize(size int) ClientOption {
	return func(c *Client) {
		c.maxEventSize = size
	}
}

// WithClientLogger sets the logger for the client.
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithClientMetrics makes the client report to the given collectors.
func WithClientMetrics(metrics *ClientMetrics) ClientOption {
	return func(c *Client) {
		c.metrics = metrics
	}
}

// WithNotificationObserver hands every notification received while the request is outstanding to
// observer, in stream order.
func WithNotificationObserver(observer NotificationObserver) CallOption {
	return func(cfg *callConfig) {
		cfg.observer = observer
	}
}

// WithProgressObserver hands the "notifications/progress" updates of this request to observer. CallTool
// attaches a progress token to its params when this option is present.
func WithProgressObserver(observer func(ProgressParams)) CallOption {
	return func(cfg *callConfig) {
		cfg.progressObserver = observer
	}
}

// NewClient creates a new MCP client that talks to the streamable HTTP endpoint at url.
//
// The info parameter provides client identification and version information. Client capabilities are
// derived from the registered handlers: registering a SamplingHandler advertises sampling.
//
// The client has no session until Initialize() is called.
func NewClient(info Info, url string, options ...ClientOption) *Client {
	c := &Client{
		info:        info,
		url:         url,
		httpClient:  http.DefaultClient,
		logger:      slog.Default(),
		requestSlot: make(chan struct{}, 1),
	}
	for _, opt := range options {
		opt(c)
	}

	if c.requestTimeout == 0 {
		c.requestTimeout = defaultClientRequestTimeout
	}

	if c.samplingHandler != nil {
		c.capabilities.Sampling = &SamplingCapability{}
	}

	return c
}

// Initialize performs the initialize handshake. The session identifier returned by the server, if any,
// is stored before the "notifications/initialized" notification is sent, so every later message carries
// it. The returned error wraps ErrTransport, ErrTimeout or ErrDecode, or is a *JSONRPCError when the
// server rejected the request.
func (c *Client) Initialize(ctx context.Context) (InitializeResult, error) {
	res, err := c.SendRequest(ctx, MethodInitialize, initializeParams{
		ProtocolVersion: ProtocolVersion,
		Capabilities:    c.capabilities,
		ClientInfo:      c.info,
	})
	if err != nil {
		return InitializeResult{}, fmt.Errorf("failed to send initialize request: %w", err)
	}
	if res.Error != nil {
		return InitializeResult{}, fmt.Errorf("initialize error: %w", res.Error)
	}

	var result InitializeResult
	if err := json.Unmarshal(res.Result, &result); err != nil {
		return InitializeResult{}, fmt.Errorf("%w: failed to unmarshal initialize result: %w", ErrDecode, err)
	}

	if !slices.Contains(supportedProtocolVersions, result.ProtocolVersion) {
		c.sessionLock.Lock()
		c.sessionID = ""
		c.sessionLock.Unlock()
		return InitializeResult{}, fmt.Errorf("%s: %s not in %v",
			errMsgUnsupportedProtocolVersion, result.ProtocolVersion, supportedProtocolVersions)
	}

	c.sessionLock.Lock()
	c.protocolVersion = result.ProtocolVersion
	c.serverInfo = result.ServerInfo
	c.serverCapabilities = result.Capabilities
	c.sessionLock.Unlock()

	if err := c.Notify(ctx, MethodNotificationsInitialized, nil); err != nil {
		return InitializeResult{}, fmt.Errorf("failed to send initialized notification: %w", err)
	}

	c.sessionLock.Lock()
	c.initialized = true
	c.sessionLock.Unlock()

	c.logger.Debug("session initialized",
		slog.String("sessionID", c.SessionID()),
		slog.String("server", result.ServerInfo.Name))

	return result, nil
}

// SendRequest sends a request and waits for its terminal message. The returned message is either a
// result or carries a non-nil Error from the server; the error return is reserved for failures that
// leave the outcome unknown (ErrTransport, ErrTimeout, ErrDecode, ErrSessionExpired or the context's
// error).
//
// Notifications that arrive before the terminal message are dispatched to the registered listeners and
// the call's observers synchronously, in the order they arrived.
//
// Only one request is outstanding at a time. A call made while another is in flight waits for it, and
// that wait counts against ctx and the request timeout.
func (c *Client) SendRequest(ctx context.Context, method string, params any, opts ...CallOption) (JSONRPCMessage, error) {
	var cfg callConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	paramsBs, err := marshalParams(params)
	if err != nil {
		return JSONRPCMessage{}, err
	}

	rCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	select {
	case c.requestSlot <- struct{}{}:
	case <-rCtx.Done():
		return JSONRPCMessage{}, c.failure(rCtx, rCtx.Err())
	}
	defer func() { <-c.requestSlot }()

	c.lastID++
	msg := JSONRPCMessage{
		JSONRPC: JSONRPCVersion,
		ID:      requestID(c.lastID),
		Method:  method,
		Params:  paramsBs,
	}

	start := time.Now()
	res, err := c.exchange(rCtx, msg, cfg)
	elapsed := time.Since(start)

	switch {
	case errors.Is(err, ErrTimeout):
		c.metrics.observeRequest(method, outcomeTimeout, elapsed)
	case err != nil:
		c.metrics.observeRequest(method, outcomeTransport, elapsed)
	case res.Error != nil:
		c.metrics.observeRequest(method, outcomeError, elapsed)
	default:
		c.metrics.observeRequest(method, outcomeResult, elapsed)
	}

	return res, err
}

// Notify sends a one-way notification. Notifications carry no id and never receive a reply.
func (c *Client) Notify(ctx context.Context, method string, params any) error {
	paramsBs, err := marshalParams(params)
	if err != nil {
		return err
	}

	nCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	resp, err := c.post(nCtx, JSONRPCMessage{
		JSONRPC: JSONRPCVersion,
		Method:  method,
		Params:  paramsBs,
	})
	if err != nil {
		return err
	}
	drainAndClose(resp.Body)

	return nil
}

// Ping sends a "ping" request and measures the time until its result arrived. The wait is bounded by
// timeout: when it elapses the error wraps ErrTimeout and the returned duration is the time waited,
// while connection failures wrap ErrTransport.
func (c *Client) Ping(ctx context.Context, timeout time.Duration) (time.Duration, error) {
	start := time.Now()
	pCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res, err := c.SendRequest(pCtx, MethodPing, nil)
	elapsed := time.Since(start)
	if err != nil {
		return elapsed, fmt.Errorf("failed to send ping: %w", err)
	}
	if res.Error != nil {
		return elapsed, fmt.Errorf("error response: %w", res.Error)
	}

	return elapsed, nil
}

// ListTools retrieves one page of the tools available on the server. Pass the NextCursor of the previous
// page to get the following one; an empty NextCursor marks the last page. See ListAll for a helper that
// walks every page.
func (c *Client) ListTools(ctx context.Context, params ListToolsParams, opts ...CallOption) (ListToolsResult, error) {
	if !c.isInitialized() {
		return ListToolsResult{}, ErrNotInitialized
	}

	var result ListToolsResult
	if err := c.call(ctx, MethodToolsList, params, &result, opts...); err != nil {
		return ListToolsResult{}, err
	}

	return result, nil
}

// ListAllTools walks every page of the tool listing and returns the tools in server order.
func (c *Client) ListAllTools(ctx context.Context) ([]Tool, error) {
	return ListAll(ctx, c.ToolPages())
}

// ToolPages adapts ListTools to a PageFunc.
func (c *Client) ToolPages() PageFunc[Tool] {
	return func(ctx context.Context, cursor string) ([]Tool, string, error) {
		res, err := c.ListTools(ctx, ListToolsParams{Cursor: cursor})
		if err != nil {
			return nil, "", err
		}
		return res.Tools, res.NextCursor, nil
	}
}

// CallTool executes a specific tool with the provided arguments. When a progress observer is passed
// and params carry no progress token, a fresh token is attached so the server reports progress.
//
// A tool that ran but failed is reported through CallToolResult.IsError, not through the error return.
func (c *Client) CallTool(ctx context.Context, params CallToolParams, opts ...CallOption) (CallToolResult, error) {
	if !c.isInitialized() {
		return CallToolResult{}, ErrNotInitialized
	}

	var cfg callConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.progressObserver != nil && params.Meta == nil {
		params.Meta = &ParamsMeta{ProgressToken: MustString(uuid.New().String())}
	}

	var result CallToolResult
	if err := c.call(ctx, MethodToolsCall, params, &result, opts...); err != nil {
		return CallToolResult{}, err
	}

	return result, nil
}

// ListResources retrieves one page of the resources available on the server.
func (c *Client) ListResources(
	ctx context.Context,
	params ListResourcesParams,
	opts ...CallOption,
) (ListResourcesResult, error) {
	if !c.isInitialized() {
		return ListResourcesResult{}, ErrNotInitialized
	}

	var result ListResourcesResult
	if err := c.call(ctx, MethodResourcesList, params, &result, opts...); err != nil {
		return ListResourcesResult{}, err
	}

	return result, nil
}

// ResourcePages adapts ListResources to a PageFunc.
func (c *Client) ResourcePages() PageFunc[Resource] {
	return func(ctx context.Context, cursor string) ([]Resource, string, error) {
		res, err := c.ListResources(ctx, ListResourcesParams{Cursor: cursor})
		if err != nil {
			return nil, "", err
		}
		return res.Resources, res.NextCursor, nil
	}
}

// ReadResource retrieves the contents of the resource identified by params.URI.
func (c *Client) ReadResource(
	ctx context.Context,
	params ReadResourceParams,
	opts ...CallOption,
) (ReadResourceResult, error) {
	if !c.isInitialized() {
		return ReadResourceResult{}, ErrNotInitialized
	}

	var result ReadResourceResult
	if err := c.call(ctx, MethodResourcesRead, params, &result, opts...); err != nil {
		return ReadResourceResult{}, err
	}

	return result, nil
}

// Listen opens the standalone event stream (HTTP GET) of the session and dispatches the server's push
// notifications to the registered watchers until ctx is done or the server closes the stream. Requests
// from the server are answered like those that arrive on a request's reply stream.
//
// Listen does not take part in the one-outstanding-request rule, so watchers may be called from Listen
// and from a request at the same time.
func (c *Client) Listen(ctx context.Context) error {
	if !c.isInitialized() {
		return ErrNotInitialized
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", contentTypeEventStream)
	c.setSessionHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.failure(ctx, fmt.Errorf("failed to open event stream: %w", err))
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp); err != nil {
		return err
	}

	for frame, err := range decodeEventStream(resp.Body, c.maxEventSize) {
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if frame.err != nil {
			c.logger.Warn("skipping undecodable event", slog.String("err", frame.err.Error()))
			c.metrics.observeDecodeFailure()
			continue
		}

		switch frame.msg.Kind() {
		case MessageKindNotification:
			c.dispatchNotification(frame.msg, callConfig{})
		case MessageKindRequest:
			c.handleServerRequest(ctx, frame.msg)
		default:
			c.logger.Warn("unexpected response on event stream", slog.String("id", string(frame.msg.ID)))
		}
	}

	return nil
}

// Close terminates the session on the server with an HTTP DELETE. The client forgets the session
// identifier and has to be initialized again before further use.
func (c *Client) Close(ctx context.Context) error {
	c.sessionLock.Lock()
	sessID := c.sessionID
	c.sessionID = ""
	c.initialized = false
	c.sessionLock.Unlock()

	if sessID == "" {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set(HeaderSessionID, sessID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.failure(ctx, fmt.Errorf("failed to terminate session: %w", err))
	}
	drainAndClose(resp.Body)

	// Servers that do not allow clients to terminate sessions answer 405.
	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusMethodNotAllowed &&
		resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("%w: unexpected status code: %d", ErrTransport, resp.StatusCode)
	}

	return nil
}

// SessionID returns the identifier issued by the server during initialization, or an empty string.
func (c *Client) SessionID() string {
	c.sessionLock.RLock()
	defer c.sessionLock.RUnlock()

	return c.sessionID
}

// ServerInfo returns the server's info.
func (c *Client) ServerInfo() Info {
	c.sessionLock.RLock()
	defer c.sessionLock.RUnlock()

	return c.serverInfo
}

// ToolServerSupported returns true if the server supports tools.
func (c *Client) ToolServerSupported() bool {
	c.sessionLock.RLock()
	defer c.sessionLock.RUnlock()

	return c.serverCapabilities.Tools != nil
}

// ToolListChangedSupported returns true if the server announced tool list change notifications.
func (c *Client) ToolListChangedSupported() bool {
	c.sessionLock.RLock()
	defer c.sessionLock.RUnlock()

	return c.serverCapabilities.Tools != nil && c.serverCapabilities.Tools.ListChanged
}

// ResourceServerSupported returns true if the server supports resources.
func (c *Client) ResourceServerSupported() bool {
	c.sessionLock.RLock()
	defer c.sessionLock.RUnlock()

	return c.serverCapabilities.Resources != nil
}

func (c *Client) call(ctx context.Context, method string, params, result any, opts ...CallOption) error {
	res, err := c.SendRequest(ctx, method, params, opts...)
	if err != nil {
		return err
	}

	if res.Error != nil {
		return fmt.Errorf("result error: %w", res.Error)
	}

	if err := json.Unmarshal(res.Result, result); err != nil {
		return fmt.Errorf("%w: failed to unmarshal %s result: %w", ErrDecode, method, err)
	}

	return nil
}

// exchange transmits msg and consumes the reply until the terminal message correlated with msg.ID.
func (c *Client) exchange(ctx context.Context, msg JSONRPCMessage, cfg callConfig) (JSONRPCMessage, error) {
	resp, err := c.post(ctx, msg)
	if err != nil {
		return JSONRPCMessage{}, err
	}
	defer resp.Body.Close()

	if msg.Method == MethodInitialize {
		if sessID := resp.Header.Get(HeaderSessionID); sessID != "" {
			c.sessionLock.Lock()
			c.sessionID = sessID
			c.sessionLock.Unlock()
		}
	}

	kind, err := classifyReply(resp)
	if err != nil {
		return JSONRPCMessage{}, err
	}

	for frame, err := range decodeReply(kind, resp.Body, c.maxEventSize) {
		if err != nil {
			return JSONRPCMessage{}, c.failure(ctx, err)
		}
		if frame.err != nil {
			if kind == replyJSON {
				return JSONRPCMessage{}, frame.err
			}
			c.logger.Warn("skipping undecodable event",
				slog.String("method", msg.Method),
				slog.String("err", frame.err.Error()))
			c.metrics.observeDecodeFailure()
			continue
		}

		switch frame.msg.Kind() {
		case MessageKindNotification:
			c.dispatchNotification(frame.msg, cfg)
		case MessageKindRequest:
			c.handleServerRequest(ctx, frame.msg)
		case MessageKindResult, MessageKindError:
			// A server that could not read the request answers with a null id.
			if kind == replyJSON && frame.msg.ID == "" && frame.msg.Error != nil {
				return frame.msg, nil
			}
			if frame.msg.ID != msg.ID {
				c.logger.Warn("ignoring response for another request",
					slog.String("want", string(msg.ID)),
					slog.String("got", string(frame.msg.ID)))
				continue
			}
			return frame.msg, nil
		}
	}

	if err := ctx.Err(); err != nil {
		return JSONRPCMessage{}, c.failure(ctx, err)
	}

	return JSONRPCMessage{}, fmt.Errorf("%w: reply to %s ended without a terminal message", ErrTransport, msg.Method)
}

// post frames msg as an HTTP POST and returns the response once the status has been checked. The caller
// owns the response body.
func (c *Client) post(ctx context.Context, msg JSONRPCMessage) (*http.Response, error) {
	msgBs, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(msgBs))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentTypeJSON)
	req.Header.Set("Accept", contentTypeJSON+", "+contentTypeEventStream)
	c.setSessionHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.failure(ctx, fmt.Errorf("failed to send message: %w", err))
	}

	if err := c.checkStatus(resp); err != nil {
		drainAndClose(resp.Body)
		return nil, err
	}

	return resp, nil
}

func (c *Client) setSessionHeaders(req *http.Request) {
	c.sessionLock.RLock()
	defer c.sessionLock.RUnlock()

	if c.sessionID != "" {
		req.Header.Set(HeaderSessionID, c.sessionID)
	}
	if c.protocolVersion != "" {
		req.Header.Set(HeaderProtocolVersion, c.protocolVersion)
	}
}

func (c *Client) checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	if resp.StatusCode == http.StatusNotFound && c.SessionID() != "" {
		return fmt.Errorf("%w: server answered %d", ErrSessionExpired, resp.StatusCode)
	}

	return fmt.Errorf("%w: unexpected status code: %d", ErrTransport, resp.StatusCode)
}

// failure maps an error raised while waiting on the network to the error taxonomy: an expired deadline
// becomes ErrTimeout, a cancelled context keeps context.Canceled, anything else is ErrTransport. The
// cause is only formatted, not wrapped, for timeouts and cancellations so they never match ErrTransport.
func (c *Client) failure(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, ErrTimeout), errors.Is(err, ErrSessionExpired):
		return err
	case errors.Is(ctx.Err(), context.DeadlineExceeded), isNetTimeout(err):
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	case errors.Is(ctx.Err(), context.Canceled):
		return fmt.Errorf("%w: %v", context.Canceled, err)
	case errors.Is(err, ErrTransport):
		return err
	default:
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
}

func (c *Client) dispatchNotification(msg JSONRPCMessage, cfg callConfig) {
	c.metrics.observeNotification(msg.Method)

	switch msg.Method {
	case MethodNotificationsProgress:
		if c.progressListener != nil || cfg.progressObserver != nil {
			var params ProgressParams
			if err := json.Unmarshal(msg.Params, &params); err != nil {
				c.logger.Error("failed to unmarshal progress params", "err", err)
				break
			}
			if c.progressListener != nil {
				c.progressListener.OnProgress(params)
			}
			if cfg.progressObserver != nil {
				cfg.progressObserver(params)
			}
		}
	case MethodNotificationsToolsListChanged:
		if c.toolListWatcher != nil {
			c.toolListWatcher.OnToolListChanged()
		}
	case MethodNotificationsResourcesListChanged:
		if c.resourceListWatcher != nil {
			c.resourceListWatcher.OnResourceListChanged()
		}
	case MethodNotificationsMessage:
		if c.logReceiver != nil {
			var params LogParams
			if err := json.Unmarshal(msg.Params, &params); err != nil {
				c.logger.Error("failed to unmarshal log params", "err", err)
				break
			}
			c.logReceiver.OnLog(params)
		}
	default:
		c.logger.Debug("unhandled notification", slog.String("method", msg.Method))
	}

	if cfg.observer != nil {
		cfg.observer(msg)
	}
}

// handleServerRequest answers a request the server sent on one of our streams. It runs on the goroutine
// that is reading the stream, so the answer is posted before any later message of the stream is seen.
func (c *Client) handleServerRequest(ctx context.Context, msg JSONRPCMessage) {
	switch msg.Method {
	case MethodPing:
		c.reply(ctx, msg.ID, struct{}{}, nil)
	case MethodSamplingCreateMessage:
		if c.samplingHandler == nil {
			c.reply(ctx, msg.ID, nil, &JSONRPCError{
				Code:    jsonRPCMethodNotFoundCode,
				Message: "Sampling not supported",
			})
			return
		}

		var params SamplingParams
		if err := json.Unmarshal(msg.Params, &params); err != nil {
			c.logger.Error("failed to unmarshal sampling params", "err", err)
			c.reply(ctx, msg.ID, nil, &JSONRPCError{
				Code:    jsonRPCInvalidParamsCode,
				Message: errMsgInvalidJSON,
				Data:    map[string]any{"error": err.Error()},
			})
			return
		}

		result, err := c.samplingHandler.CreateSampleMessage(ctx, params)
		if err != nil {
			c.logger.Error("failed to create sample message", "err", err)
			c.reply(ctx, msg.ID, nil, &JSONRPCError{
				Code:    jsonRPCInternalErrorCode,
				Message: errMsgInternalError,
				Data:    map[string]any{"error": err.Error()},
			})
			return
		}
		c.reply(ctx, msg.ID, result, nil)
	default:
		c.reply(ctx, msg.ID, nil, &JSONRPCError{
			Code:    jsonRPCMethodNotFoundCode,
			Message: fmt.Sprintf("Method not found: %s", msg.Method),
		})
	}
}

func (c *Client) reply(ctx context.Context, id MustString, result any, rpcErr *JSONRPCError) {
	msg := JSONRPCMessage{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Error:   rpcErr,
	}
	if rpcErr == nil {
		resBs, err := json.Marshal(result)
		if err != nil {
			c.logger.Error("failed to marshal result", "err", err)
			return
		}
		msg.Result = resBs
	}

	resp, err := c.post(ctx, msg)
	if err != nil {
		c.logger.Error("failed to send result", "err", err)
		return
	}
	drainAndClose(resp.Body)
}

func (c *Client) isInitialized() bool {
	c.sessionLock.RLock()
	defer c.sessionLock.RUnlock()

	return c.initialized
}

func marshalParams(params any) (json.RawMessage, error) {
	if params == nil {
		return nil, nil
	}
	paramsBs, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal params: %w", err)
	}
	return paramsBs, nil
}

func isNetTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 1<<16))
	body.Close()
}
