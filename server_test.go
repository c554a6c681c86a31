package mcp_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"

	mcp "github.com/MegaGrindStone/go-mcp-streamable"
)

func postMessage(t *testing.T, url, sessID, body string) (*http.Response, mcp.JSONRPCMessage) {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	if sessID != "" {
		req.Header.Set(mcp.HeaderSessionID, sessID)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("failed to send request: %v", err)
	}
	defer resp.Body.Close()

	var msg mcp.JSONRPCMessage
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(resp.Body).Decode(&msg); err != nil {
			t.Fatalf("failed to decode reply: %v", err)
		}
	}
	return resp, msg
}

const initializeBody = `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{` +
	`"protocolVersion":"2025-03-26","capabilities":{},"clientInfo":{"name":"raw","version":"1"}}}`

func TestStreamableServerSessions(t *testing.T) {
	_, _, srv := newTestServer(t)

	resp, msg := postMessage(t, srv.URL, "", initializeBody)
	sessID := resp.Header.Get(mcp.HeaderSessionID)
	if sessID == "" {
		t.Fatal("expected a session id on initialize")
	}
	if msg.Kind() != mcp.MessageKindResult {
		t.Fatalf("expected initialize result, got %+v", msg)
	}

	tests := []struct {
		name       string
		sessID     string
		body       string
		wantStatus int
		wantCode   int
	}{
		{
			name:       "missing session",
			body:       `{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown session",
			sessID:     "unknown",
			body:       `{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "request before initialized notification",
			sessID:     sessID,
			body:       `{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
			wantStatus: http.StatusOK,
			wantCode:   -32600,
		},
		{
			name:       "ping before initialized notification",
			sessID:     sessID,
			body:       `{"jsonrpc":"2.0","id":3,"method":"ping"}`,
			wantStatus: http.StatusOK,
		},
		{
			name:       "malformed body",
			sessID:     sessID,
			body:       `{"jsonrpc":`,
			wantStatus: http.StatusBadRequest,
			wantCode:   -32700,
		},
		{
			name:       "initialized notification",
			sessID:     sessID,
			body:       `{"jsonrpc":"2.0","method":"notifications/initialized"}`,
			wantStatus: http.StatusAccepted,
		},
		{
			name:       "request after initialized notification",
			sessID:     sessID,
			body:       `{"jsonrpc":"2.0","id":4,"method":"tools/list"}`,
			wantStatus: http.StatusOK,
		},
		{
			name:       "unknown response",
			sessID:     sessID,
			body:       `{"jsonrpc":"2.0","id":"nobody","result":{}}`,
			wantStatus: http.StatusAccepted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, msg := postMessage(t, srv.URL, tt.sessID, tt.body)
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, resp.StatusCode)
			}

			if tt.wantCode == 0 {
				if msg.Error != nil {
					t.Errorf("unexpected error reply: %+v", msg.Error)
				}
				return
			}
			if msg.Error == nil || msg.Error.Code != tt.wantCode {
				t.Errorf("expected error code %d, got %+v", tt.wantCode, msg.Error)
			}
		})
	}
}

func TestStreamableServerMethodNotAllowed(t *testing.T) {
	_, _, srv := newTestServer(t)

	req, err := http.NewRequest(http.MethodPut, srv.URL, nil)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("failed to send request: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", resp.StatusCode)
	}
	if allow := resp.Header.Get("Allow"); allow != "GET, POST, DELETE" {
		t.Errorf("unexpected Allow header %q", allow)
	}
}

func TestStreamableServerStateless(t *testing.T) {
	server, _, srv := newTestServer(t, mcp.WithStatelessSessions())
	client := initializedClient(t, srv.URL)

	if client.SessionID() != "" {
		t.Errorf("expected no session id, got %s", client.SessionID())
	}
	if client.ToolListChangedSupported() {
		t.Error("expected list change notifications to be unavailable without sessions")
	}
	if server.SessionCount() != 0 {
		t.Errorf("expected no sessions, got %d", server.SessionCount())
	}

	result, err := client.CallTool(context.Background(), mcp.CallToolParams{
		Name:      "add",
		Arguments: json.RawMessage(`{"a":1,"b":1}`),
	})
	if err != nil {
		t.Fatalf("failed to call tool: %v", err)
	}
	if result.Content[0].Text != "2" {
		t.Errorf("expected 2, got %s", result.Content[0].Text)
	}

	result, err = client.CallTool(context.Background(), mcp.CallToolParams{Name: "sample"})
	if err != nil {
		t.Fatalf("failed to call tool: %v", err)
	}
	if !result.IsError {
		t.Error("expected sampling to fail without a session")
	}

	if err := client.Close(context.Background()); err != nil {
		t.Errorf("expected close without session to succeed, got %v", err)
	}
}

func TestStreamableServerRemoveTool(t *testing.T) {
	server, _, srv := newTestServer(t)
	client := initializedClient(t, srv.URL)
	ctx := context.Background()

	if !server.RemoveTool("add") {
		t.Fatal("expected add to be removed")
	}
	if server.RemoveTool("add") {
		t.Error("expected second removal to report false")
	}

	tools, err := client.ListAllTools(ctx)
	if err != nil {
		t.Fatalf("failed to list tools: %v", err)
	}
	if hasTool(tools, "add") {
		t.Errorf("expected add to be gone, got %+v", tools)
	}

	_, err = client.CallTool(ctx, mcp.CallToolParams{Name: "add", Arguments: json.RawMessage(`{"a":1,"b":1}`)})
	var rpcErr *mcp.JSONRPCError
	if !errors.As(err, &rpcErr) {
		t.Errorf("expected JSONRPCError for removed tool, got %v", err)
	}
}

func TestStreamableServerToolSchemaAdvertised(t *testing.T) {
	_, _, srv := newTestServer(t)
	client := initializedClient(t, srv.URL)

	tools, err := client.ListAllTools(context.Background())
	if err != nil {
		t.Fatalf("failed to list tools: %v", err)
	}

	for _, tool := range tools {
		if tool.Name != "add" {
			continue
		}
		var schema map[string]any
		if err := json.Unmarshal(tool.InputSchema, &schema); err != nil {
			t.Fatalf("invalid input schema: %v", err)
		}
		if schema["type"] != "object" {
			t.Errorf("expected object schema, got %v", schema["type"])
		}
		return
	}
	t.Error("add tool not listed")
}
