package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/qri-io/jsonschema"
	"github.com/tmaxmax/go-sse"
)

// ServerOption represents the options for the server.
type ServerOption func(*StreamableServer)

// StreamableServer implements the server side of the streamable HTTP transport as an http.Handler.
// Every client message arrives as a POST on one endpoint; requests are answered with a JSON document,
// except tool calls, whose reply is an event stream so the tool can report progress and query the client
// before the result is sent. A GET on the endpoint opens the session's standalone stream, used to push
// list change notifications, and a DELETE terminates the session.
//
// Tools and resources are registered with AddTool and AddResource and may change while clients are
// connected; every change is announced to the open standalone streams.
//
// Instances should be created using NewStreamableServer.
type StreamableServer struct {
	info         Info
	instructions string
	logger       *slog.Logger

	pageSize        int
	requestTimeout  time.Duration
	sessionsAllowed bool

	lock      sync.RWMutex
	tools     []ServerTool
	resources []ServerResource
	sessions  map[string]*streamableSession
}

// ServerTool is a tool registered on a StreamableServer. When Schema is set, it is advertised as the
// tool's input schema and call arguments are validated against it before Handler runs.
type ServerTool struct {
	Tool
	Schema  *jsonschema.Schema
	Handler ToolHandler
}

// ServerResource is a resource registered on a StreamableServer.
type ServerResource struct {
	Resource
	Read ResourceReader
}

type streamableSession struct {
	id     string
	logger *slog.Logger

	lock        sync.Mutex
	initialized bool
	clientInfo  Info
	listeners   map[chan JSONRPCMessage]struct{}
	pending     map[MustString]chan JSONRPCMessage
}

// sseWriter serialises the writes of a single event stream.
type sseWriter struct {
	lock sync.Mutex
	sess *sse.Session
}

var (
	defaultServerPageSize       = 50
	defaultServerRequestTimeout = 60 * time.Second

	errSessionGone = errors.New("session is closed")
)

// WithInstructions sets the instructions returned to clients on initialize.
func WithInstructions(instructions string) ServerOption {
	return func(s *StreamableServer) {
		s.instructions = instructions
	}
}

// WithServerLogger sets the logger for the server.
func WithServerLogger(logger *slog.Logger) ServerOption {
	return func(s *StreamableServer) {
		s.logger = logger
	}
}

// WithServerPageSize sets how many tools or resources are returned per listing page.
func WithServerPageSize(size int) ServerOption {
	return func(s *StreamableServer) {
		s.pageSize = size
	}
}

// WithServerRequestTimeout bounds how long the server waits for the client to answer a request sent
// through RequestClientFunc.
func WithServerRequestTimeout(timeout time.Duration) ServerOption {
	return func(s *StreamableServer) {
		s.requestTimeout = timeout
	}
}

// WithStatelessSessions disables session identifiers: no Mcp-Session-Id header is issued and requests
// are accepted without one. Standalone streams and server to client requests need a session and are
// unavailable in this mode.
func WithStatelessSessions() ServerOption {
	return func(s *StreamableServer) {
		s.sessionsAllowed = false
	}
}

// NewStreamableServer creates a server that identifies itself with info.
func NewStreamableServer(info Info, options ...ServerOption) *StreamableServer {
	s := &StreamableServer{
		info:            info,
		logger:          slog.Default(),
		pageSize:        defaultServerPageSize,
		requestTimeout:  defaultServerRequestTimeout,
		sessionsAllowed: true,
		sessions:        make(map[string]*streamableSession),
	}
	for _, opt := range options {
		opt(s)
	}

	return s
}

// AddTool registers tool, replacing a tool with the same name, and notifies connected clients.
func (s *StreamableServer) AddTool(tool ServerTool) {
	if tool.Schema != nil && tool.InputSchema == nil {
		schemaBs, err := json.Marshal(tool.Schema)
		if err != nil {
			s.logger.Error("failed to marshal tool schema", slog.String("tool", tool.Name), "err", err)
		} else {
			tool.InputSchema = schemaBs
		}
	}

	s.lock.Lock()
	idx := slices.IndexFunc(s.tools, func(t ServerTool) bool { return t.Name == tool.Name })
	if idx >= 0 {
		s.tools[idx] = tool
	} else {
		s.tools = append(s.tools, tool)
	}
	s.lock.Unlock()

	s.broadcast(MethodNotificationsToolsListChanged)
}

// RemoveTool unregisters the tool called name and notifies connected clients. It reports whether the
// tool existed.
func (s *StreamableServer) RemoveTool(name string) bool {
	s.lock.Lock()
	before := len(s.tools)
	s.tools = slices.DeleteFunc(s.tools, func(t ServerTool) bool { return t.Name == name })
	removed := len(s.tools) != before
	s.lock.Unlock()

	if removed {
		s.broadcast(MethodNotificationsToolsListChanged)
	}
	return removed
}

// AddResource registers resource, replacing a resource with the same URI, and notifies connected clients.
func (s *StreamableServer) AddResource(resource ServerResource) {
	s.lock.Lock()
	idx := slices.IndexFunc(s.resources, func(r ServerResource) bool { return r.URI == resource.URI })
	if idx >= 0 {
		s.resources[idx] = resource
	} else {
		s.resources = append(s.resources, resource)
	}
	s.lock.Unlock()

	s.broadcast(MethodNotificationsResourcesListChanged)
}

// SessionCount returns the number of live sessions.
func (s *StreamableServer) SessionCount() int {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return len(s.sessions)
}

// ServeHTTP implements http.Handler.
func (s *StreamableServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handlePost(w, r)
	case http.MethodGet:
		s.handleGet(w, r)
	case http.MethodDelete:
		s.handleDelete(w, r)
	default:
		w.Header().Set("Allow", "GET, POST, DELETE")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *StreamableServer) handlePost(w http.ResponseWriter, r *http.Request) {
	var msg JSONRPCMessage
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		s.logger.Warn("failed to decode message", slog.String("err", err.Error()))
		writeJSONMessage(w, http.StatusBadRequest, JSONRPCMessage{
			JSONRPC: JSONRPCVersion,
			Error:   &JSONRPCError{Code: jsonRPCParseErrorCode, Message: errMsgInvalidJSON},
		})
		return
	}

	if msg.Method == MethodInitialize {
		s.handleInitialize(w, msg)
		return
	}

	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}

	switch msg.Kind() {
	case MessageKindNotification:
		if msg.Method == MethodNotificationsInitialized && sess != nil {
			sess.lock.Lock()
			sess.initialized = true
			sess.lock.Unlock()
		}
		w.WriteHeader(http.StatusAccepted)
	case MessageKindResult, MessageKindError:
		if sess != nil {
			sess.deliver(msg)
		}
		w.WriteHeader(http.StatusAccepted)
	case MessageKindRequest:
		if sess != nil && msg.Method != MethodPing && !sess.isInitialized() {
			writeJSONMessage(w, http.StatusOK, errorMessage(msg.ID, jsonRPCInvalidRequestCode, errMsgNotInitialized, nil))
			return
		}
		s.handleRequest(w, r, sess, msg)
	default:
		writeJSONMessage(w, http.StatusBadRequest,
			errorMessage(msg.ID, jsonRPCInvalidRequestCode, "Invalid request", nil))
	}
}

func (s *StreamableServer) handleInitialize(w http.ResponseWriter, msg JSONRPCMessage) {
	var params initializeParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		writeJSONMessage(w, http.StatusOK, errorMessage(msg.ID, jsonRPCInvalidParamsCode, errMsgInvalidJSON, err))
		return
	}

	version := params.ProtocolVersion
	if !slices.Contains(supportedProtocolVersions, version) {
		version = ProtocolVersion
	}

	if s.sessionsAllowed {
		sess := &streamableSession{
			id:         uuid.New().String(),
			logger:     s.logger,
			clientInfo: params.ClientInfo,
			listeners:  make(map[chan JSONRPCMessage]struct{}),
			pending:    make(map[MustString]chan JSONRPCMessage),
		}
		s.lock.Lock()
		s.sessions[sess.id] = sess
		s.lock.Unlock()

		w.Header().Set(HeaderSessionID, sess.id)
		s.logger.Info("client connected",
			slog.String("sessionID", sess.id),
			slog.String("client", params.ClientInfo.Name))
	}

	writeJSONMessage(w, http.StatusOK, resultMessage(msg.ID, InitializeResult{
		ProtocolVersion: version,
		Capabilities: ServerCapabilities{
			Tools:     &ToolsCapability{ListChanged: s.sessionsAllowed},
			Resources: &ResourcesCapability{ListChanged: s.sessionsAllowed},
		},
		ServerInfo:   s.info,
		Instructions: s.instructions,
	}))
}

// lookupSession resolves the session of r. In stateless mode it returns a nil session. When the
// session cannot be resolved the response has been written and ok is false.
func (s *StreamableServer) lookupSession(w http.ResponseWriter, r *http.Request) (*streamableSession, bool) {
	if !s.sessionsAllowed {
		return nil, true
	}

	sessID := r.Header.Get(HeaderSessionID)
	if sessID == "" {
		http.Error(w, "missing "+HeaderSessionID+" header", http.StatusBadRequest)
		return nil, false
	}

	s.lock.RLock()
	sess, ok := s.sessions[sessID]
	s.lock.RUnlock()
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return nil, false
	}

	return sess, true
}

func (s *StreamableServer) handleRequest(w http.ResponseWriter, r *http.Request, sess *streamableSession, msg JSONRPCMessage) {
	switch msg.Method {
	case MethodPing:
		writeJSONMessage(w, http.StatusOK, resultMessage(msg.ID, struct{}{}))
	case MethodToolsList:
		var params ListToolsParams
		if err := unmarshalOptional(msg.Params, &params); err != nil {
			writeJSONMessage(w, http.StatusOK, errorMessage(msg.ID, jsonRPCInvalidParamsCode, errMsgInvalidJSON, err))
			return
		}
		s.lock.RLock()
		page, next, err := paginate(s.tools, params.Cursor, s.pageSize)
		s.lock.RUnlock()
		if err != nil {
			writeJSONMessage(w, http.StatusOK, errorMessage(msg.ID, jsonRPCInvalidParamsCode, "Invalid cursor", err))
			return
		}
		result := ListToolsResult{Tools: make([]Tool, 0, len(page)), NextCursor: next}
		for _, t := range page {
			result.Tools = append(result.Tools, t.Tool)
		}
		writeJSONMessage(w, http.StatusOK, resultMessage(msg.ID, result))
	case MethodResourcesList:
		var params ListResourcesParams
		if err := unmarshalOptional(msg.Params, &params); err != nil {
			writeJSONMessage(w, http.StatusOK, errorMessage(msg.ID, jsonRPCInvalidParamsCode, errMsgInvalidJSON, err))
			return
		}
		s.lock.RLock()
		page, next, err := paginate(s.resources, params.Cursor, s.pageSize)
		s.lock.RUnlock()
		if err != nil {
			writeJSONMessage(w, http.StatusOK, errorMessage(msg.ID, jsonRPCInvalidParamsCode, "Invalid cursor", err))
			return
		}
		result := ListResourcesResult{Resources: make([]Resource, 0, len(page)), NextCursor: next}
		for _, res := range page {
			result.Resources = append(result.Resources, res.Resource)
		}
		writeJSONMessage(w, http.StatusOK, resultMessage(msg.ID, result))
	case MethodResourcesRead:
		s.handleResourcesRead(w, r, msg)
	case MethodToolsCall:
		s.handleToolsCall(w, r, sess, msg)
	default:
		writeJSONMessage(w, http.StatusOK,
			errorMessage(msg.ID, jsonRPCMethodNotFoundCode, fmt.Sprintf("Method not found: %s", msg.Method), nil))
	}
}

func (s *StreamableServer) handleResourcesRead(w http.ResponseWriter, r *http.Request, msg JSONRPCMessage) {
	var params ReadResourceParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		writeJSONMessage(w, http.StatusOK, errorMessage(msg.ID, jsonRPCInvalidParamsCode, errMsgInvalidJSON, err))
		return
	}

	s.lock.RLock()
	idx := slices.IndexFunc(s.resources, func(res ServerResource) bool { return res.URI == params.URI })
	var resource ServerResource
	if idx >= 0 {
		resource = s.resources[idx]
	}
	s.lock.RUnlock()

	if idx < 0 {
		writeJSONMessage(w, http.StatusOK,
			errorMessage(msg.ID, jsonRPCInvalidParamsCode, fmt.Sprintf("Resource not found: %s", params.URI), nil))
		return
	}

	contents, err := resource.Read(r.Context(), params.URI)
	if err != nil {
		writeJSONMessage(w, http.StatusOK, errorMessage(msg.ID, jsonRPCInternalErrorCode, errMsgInternalError, err))
		return
	}
	if contents.URI == "" {
		contents.URI = params.URI
	}
	if contents.MimeType == "" {
		contents.MimeType = resource.MimeType
	}

	writeJSONMessage(w, http.StatusOK, resultMessage(msg.ID, ReadResourceResult{
		Contents: []ResourceContents{contents},
	}))
}

// handleToolsCall answers with an event stream: progress notifications and requests to the client are
// written as they happen, followed by the result.
func (s *StreamableServer) handleToolsCall(
	w http.ResponseWriter,
	r *http.Request,
	sess *streamableSession,
	msg JSONRPCMessage,
) {
	var params CallToolParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		writeJSONMessage(w, http.StatusOK, errorMessage(msg.ID, jsonRPCInvalidParamsCode, errMsgInvalidJSON, err))
		return
	}

	s.lock.RLock()
	idx := slices.IndexFunc(s.tools, func(t ServerTool) bool { return t.Name == params.Name })
	var tool ServerTool
	if idx >= 0 {
		tool = s.tools[idx]
	}
	s.lock.RUnlock()

	if idx < 0 {
		writeJSONMessage(w, http.StatusOK,
			errorMessage(msg.ID, jsonRPCInvalidParamsCode, fmt.Sprintf("Tool not found: %s", params.Name), nil))
		return
	}

	if tool.Schema != nil {
		var args any = map[string]any{}
		if len(params.Arguments) > 0 {
			if err := json.Unmarshal(params.Arguments, &args); err != nil {
				writeJSONMessage(w, http.StatusOK, errorMessage(msg.ID, jsonRPCInvalidParamsCode, errMsgInvalidJSON, err))
				return
			}
		}
		vs := tool.Schema.Validate(r.Context(), args)
		errs := *vs.Errs
		if len(errs) > 0 {
			var errStr []string
			for _, err := range errs {
				errStr = append(errStr, err.PropertyPath+": "+err.Message)
			}
			writeJSONMessage(w, http.StatusOK, JSONRPCMessage{
				JSONRPC: JSONRPCVersion,
				ID:      msg.ID,
				Error: &JSONRPCError{
					Code:    jsonRPCInvalidParamsCode,
					Message: "Invalid arguments",
					Data:    map[string]any{"errors": errStr},
				},
			})
			return
		}
	}

	if sess != nil {
		w.Header().Set(HeaderSessionID, sess.id)
	}
	upgraded, err := sse.Upgrade(w, r)
	if err != nil {
		nErr := fmt.Errorf("failed to upgrade session: %w", err)
		s.logger.Error("failed to upgrade session", "err", nErr)
		http.Error(w, nErr.Error(), http.StatusInternalServerError)
		return
	}
	stream := &sseWriter{sess: upgraded}

	progress := func(p ProgressParams) {
		if params.Meta == nil {
			return
		}
		p.ProgressToken = params.Meta.ProgressToken
		if err := stream.send(notificationMessage(MethodNotificationsProgress, p)); err != nil {
			s.logger.Warn("failed to send progress", slog.String("err", err.Error()))
		}
	}

	requestClient := func(ctx context.Context, method string, reqParams any) (JSONRPCMessage, error) {
		if sess == nil {
			return JSONRPCMessage{}, errors.New("requests to the client need a session")
		}
		return sess.request(ctx, stream, method, reqParams, s.requestTimeout)
	}

	result, err := tool.Handler(r.Context(), params, progress, requestClient)
	reply := resultMessage(msg.ID, result)
	if err != nil {
		s.logger.Warn("tool call failed", slog.String("tool", params.Name), slog.String("err", err.Error()))
		reply = resultMessage(msg.ID, CallToolResult{
			Content: []Content{{Type: ContentTypeText, Text: err.Error()}},
			IsError: true,
		})
	}

	if err := stream.send(reply); err != nil {
		s.logger.Warn("failed to send tool result", slog.String("err", err.Error()))
	}
}

// handleGet keeps the standalone event stream of a session open and forwards broadcast notifications.
func (s *StreamableServer) handleGet(w http.ResponseWriter, r *http.Request) {
	if !s.sessionsAllowed {
		http.Error(w, "standalone streams need a session", http.StatusMethodNotAllowed)
		return
	}

	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}

	upgraded, err := sse.Upgrade(w, r)
	if err != nil {
		nErr := fmt.Errorf("failed to upgrade session: %w", err)
		s.logger.Error("failed to upgrade session", "err", nErr)
		http.Error(w, nErr.Error(), http.StatusInternalServerError)
		return
	}
	stream := &sseWriter{sess: upgraded}

	msgs := make(chan JSONRPCMessage, 10)
	sess.lock.Lock()
	sess.listeners[msgs] = struct{}{}
	sess.lock.Unlock()

	defer func() {
		sess.lock.Lock()
		delete(sess.listeners, msgs)
		sess.lock.Unlock()
	}()

	// The listener is registered before the headers go out, so nothing broadcast after the client saw
	// the stream open is lost.
	if err := upgraded.Flush(); err != nil {
		s.logger.Warn("failed to flush stream", slog.String("err", err.Error()))
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			if err := stream.send(msg); err != nil {
				s.logger.Warn("failed to push notification", slog.String("err", err.Error()))
				return
			}
		}
	}
}

func (s *StreamableServer) handleDelete(w http.ResponseWriter, r *http.Request) {
	if !s.sessionsAllowed {
		http.Error(w, "sessions are disabled", http.StatusMethodNotAllowed)
		return
	}

	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}

	s.lock.Lock()
	delete(s.sessions, sess.id)
	s.lock.Unlock()

	sess.close()
	s.logger.Info("client disconnected", slog.String("sessionID", sess.id))

	w.WriteHeader(http.StatusOK)
}

func (s *StreamableServer) broadcast(method string) {
	msg := notificationMessage(method, nil)

	s.lock.RLock()
	sessions := make([]*streamableSession, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.lock.RUnlock()

	for _, sess := range sessions {
		sess.push(msg)
	}
}

func (s *streamableSession) isInitialized() bool {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.initialized
}

// push queues msg on every standalone stream of the session. Streams that are not keeping up lose it.
func (s *streamableSession) push(msg JSONRPCMessage) {
	s.lock.Lock()
	defer s.lock.Unlock()

	for ch := range s.listeners {
		select {
		case ch <- msg:
		default:
			s.logger.Warn("dropping notification for slow stream",
				slog.String("sessionID", s.id),
				slog.String("method", msg.Method))
		}
	}
}

// request sends a request to the client on stream and waits until the client posts the response.
func (s *streamableSession) request(
	ctx context.Context,
	stream *sseWriter,
	method string,
	params any,
	timeout time.Duration,
) (JSONRPCMessage, error) {
	paramsBs, err := marshalParams(params)
	if err != nil {
		return JSONRPCMessage{}, err
	}

	msgID := MustString(uuid.New().String())
	results := make(chan JSONRPCMessage, 1)

	s.lock.Lock()
	if s.pending == nil {
		s.lock.Unlock()
		return JSONRPCMessage{}, errSessionGone
	}
	s.pending[msgID] = results
	s.lock.Unlock()

	defer func() {
		s.lock.Lock()
		if s.pending != nil {
			delete(s.pending, msgID)
		}
		s.lock.Unlock()
	}()

	if err := stream.send(JSONRPCMessage{
		JSONRPC: JSONRPCVersion,
		ID:      msgID,
		Method:  method,
		Params:  paramsBs,
	}); err != nil {
		return JSONRPCMessage{}, fmt.Errorf("failed to send request: %w", err)
	}

	tCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	select {
	case <-tCtx.Done():
		return JSONRPCMessage{}, fmt.Errorf("failed to wait for %s response: %w", method, tCtx.Err())
	case res, ok := <-results:
		if !ok {
			return JSONRPCMessage{}, errSessionGone
		}
		return res, nil
	}
}

// deliver routes a response posted by the client to the request waiting for it.
func (s *streamableSession) deliver(msg JSONRPCMessage) {
	s.lock.Lock()
	defer s.lock.Unlock()

	results, ok := s.pending[msg.ID]
	if !ok {
		s.logger.Warn("received response for unknown request", slog.String("id", string(msg.ID)))
		return
	}
	delete(s.pending, msg.ID)
	results <- msg
}

func (s *streamableSession) close() {
	s.lock.Lock()
	defer s.lock.Unlock()

	for ch := range s.listeners {
		close(ch)
	}
	s.listeners = map[chan JSONRPCMessage]struct{}{}
	for _, results := range s.pending {
		close(results)
	}
	s.pending = nil
}

func (w *sseWriter) send(msg JSONRPCMessage) error {
	msgBs, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	sseMsg := &sse.Message{
		Type: sse.Type("message"),
	}
	sseMsg.AppendData(string(msgBs))

	w.lock.Lock()
	defer w.lock.Unlock()

	if err := w.sess.Send(sseMsg); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	if err := w.sess.Flush(); err != nil {
		return fmt.Errorf("failed to flush message: %w", err)
	}
	return nil
}

// paginate returns the page of items starting at cursor, the offset of the first item encoded in
// decimal, and the cursor of the following page.
func paginate[T any](items []T, cursor string, size int) ([]T, string, error) {
	start := 0
	if cursor != "" {
		n, err := strconv.Atoi(cursor)
		if err != nil || n < 0 || n > len(items) {
			return nil, "", fmt.Errorf("invalid cursor: %q", cursor)
		}
		start = n
	}

	end := len(items)
	if size > 0 && start+size < end {
		end = start + size
	}

	next := ""
	if end < len(items) {
		next = strconv.Itoa(end)
	}

	return slices.Clone(items[start:end]), next, nil
}

func unmarshalOptional(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, v)
}

func resultMessage(id MustString, result any) JSONRPCMessage {
	resBs, err := json.Marshal(result)
	if err != nil {
		return errorMessage(id, jsonRPCInternalErrorCode, errMsgInternalError, err)
	}
	return JSONRPCMessage{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Result:  resBs,
	}
}

func errorMessage(id MustString, code int, message string, err error) JSONRPCMessage {
	rpcErr := &JSONRPCError{Code: code, Message: message}
	if err != nil {
		rpcErr.Data = map[string]any{"error": err.Error()}
	}
	return JSONRPCMessage{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Error:   rpcErr,
	}
}

func notificationMessage(method string, params any) JSONRPCMessage {
	msg := JSONRPCMessage{
		JSONRPC: JSONRPCVersion,
		Method:  method,
	}
	if params != nil {
		paramsBs, err := json.Marshal(params)
		if err == nil {
			msg.Params = paramsBs
		}
	}
	return msg
}

func writeJSONMessage(w http.ResponseWriter, status int, msg JSONRPCMessage) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(msg); err != nil {
		slog.Default().Warn("failed to write message", slog.String("err", err.Error()))
	}
}
