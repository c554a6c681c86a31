package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	mcp "github.com/MegaGrindStone/go-mcp-streamable"
	"github.com/qri-io/jsonschema"
)

var addSchema = jsonschema.Must(`{
	"type": "object",
	"properties": {
		"a": {"type": "number", "description": "First number"},
		"b": {"type": "number", "description": "Second number"}
	},
	"required": ["a", "b"]
}`)

var greetSchema = jsonschema.Must(`{
	"type": "object",
	"properties": {
		"name": {"type": "string", "description": "Name of the person to greet"}
	},
	"required": ["name"]
}`)

var downloadFileSchema = jsonschema.Must(`{
	"type": "object",
	"properties": {
		"filename": {"type": "string", "description": "File to download"},
		"steps": {"type": "integer", "minimum": 1, "maximum": 100, "description": "Number of chunks"}
	},
	"required": ["filename"]
}`)

var createStorySchema = jsonschema.Must(`{
	"type": "object",
	"properties": {
		"topic": {"type": "string", "description": "Topic of the story"}
	},
	"required": ["topic"]
}`)

var emptySchema = jsonschema.Must(`{"type": "object"}`)

func serve(ctx context.Context, addr string, pageSize int, goodbyeDelay time.Duration) error {
	server := mcp.NewStreamableServer(
		mcp.Info{Name: "streamable-demo", Version: clientVersion},
		mcp.WithServerLogger(slog.Default()),
		mcp.WithServerPageSize(pageSize),
		mcp.WithInstructions("Call download_file to see progress updates and create_story to see sampling."),
	)

	server.AddTool(mcp.ServerTool{
		Tool:    mcp.Tool{Name: "add", Description: "Add two numbers"},
		Schema:  addSchema,
		Handler: addTool,
	})
	server.AddTool(mcp.ServerTool{
		Tool:    mcp.Tool{Name: "greet", Description: "Greet someone by name"},
		Schema:  greetSchema,
		Handler: greetTool,
	})
	server.AddTool(mcp.ServerTool{
		Tool:    mcp.Tool{Name: "get_current_time", Description: "Current server time"},
		Schema:  emptySchema,
		Handler: currentTimeTool,
	})
	server.AddTool(mcp.ServerTool{
		Tool:    mcp.Tool{Name: "download_file", Description: "Simulate a download that reports progress"},
		Schema:  downloadFileSchema,
		Handler: downloadFileTool,
	})
	server.AddTool(mcp.ServerTool{
		Tool:    mcp.Tool{Name: "create_story", Description: "Write a story with the client's model"},
		Schema:  createStorySchema,
		Handler: createStoryTool,
	})

	server.AddResource(mcp.ServerResource{
		Resource: mcp.Resource{URI: "demo://welcome", Name: "welcome", MimeType: "text/plain"},
		Read: func(context.Context, string) (mcp.ResourceContents, error) {
			return mcp.ResourceContents{Text: "Welcome to the streamable HTTP demo!"}, nil
		},
	})
	server.AddResource(mcp.ServerResource{
		Resource: mcp.Resource{URI: "demo://time", Name: "time", MimeType: "text/plain"},
		Read: func(context.Context, string) (mcp.ResourceContents, error) {
			return mcp.ResourceContents{Text: time.Now().Format(time.RFC3339)}, nil
		},
	})

	go func() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(goodbyeDelay):
		}
		slog.Info("registering goodbye tool")
		server.AddTool(mcp.ServerTool{
			Tool:   mcp.Tool{Name: "goodbye", Description: "A farewell tool added at runtime"},
			Schema: emptySchema,
			Handler: func(context.Context, mcp.CallToolParams, mcp.ProgressReporter, mcp.RequestClientFunc) (mcp.CallToolResult, error) {
				return textResult("Goodbye!"), nil
			},
		})
	}()

	mux := http.NewServeMux()
	mux.Handle("/mcp", server)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		sCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(sCtx); err != nil {
			slog.Error("failed to shutdown server", slog.String("err", err.Error()))
			_ = srv.Close()
		}
	}()

	slog.Info("serving MCP", slog.String("addr", addr), slog.String("path", "/mcp"))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to serve: %w", err)
	}
	return nil
}

func textResult(text string) mcp.CallToolResult {
	return mcp.CallToolResult{Content: []mcp.Content{{Type: mcp.ContentTypeText, Text: text}}}
}

func addTool(_ context.Context, params mcp.CallToolParams, _ mcp.ProgressReporter, _ mcp.RequestClientFunc) (mcp.CallToolResult, error) {
	var args struct {
		A float64 `json:"a"`
		B float64 `json:"b"`
	}
	if err := json.Unmarshal(params.Arguments, &args); err != nil {
		return mcp.CallToolResult{}, fmt.Errorf("failed to unmarshal arguments: %w", err)
	}
	return textResult(fmt.Sprintf("%g", args.A+args.B)), nil
}

func greetTool(_ context.Context, params mcp.CallToolParams, _ mcp.ProgressReporter, _ mcp.RequestClientFunc) (mcp.CallToolResult, error) {
	var args struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(params.Arguments, &args); err != nil {
		return mcp.CallToolResult{}, fmt.Errorf("failed to unmarshal arguments: %w", err)
	}
	return textResult(fmt.Sprintf("Hello, %s!", args.Name)), nil
}

func currentTimeTool(context.Context, mcp.CallToolParams, mcp.ProgressReporter, mcp.RequestClientFunc) (mcp.CallToolResult, error) {
	return textResult(time.Now().Format(time.RFC1123)), nil
}

func downloadFileTool(
	ctx context.Context,
	params mcp.CallToolParams,
	progress mcp.ProgressReporter,
	_ mcp.RequestClientFunc,
) (mcp.CallToolResult, error) {
	args := struct {
		Filename string `json:"filename"`
		Steps    int    `json:"steps"`
	}{Steps: 5}
	if err := json.Unmarshal(params.Arguments, &args); err != nil {
		return mcp.CallToolResult{}, fmt.Errorf("failed to unmarshal arguments: %w", err)
	}

	for i := 1; i <= args.Steps; i++ {
		select {
		case <-ctx.Done():
			return mcp.CallToolResult{}, ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
		progress(mcp.ProgressParams{
			Progress: float64(i),
			Total:    float64(args.Steps),
			Message:  fmt.Sprintf("downloaded chunk %d of %s", i, args.Filename),
		})
	}

	return textResult(fmt.Sprintf("Downloaded %s in %d chunks", args.Filename, args.Steps)), nil
}

func createStoryTool(
	ctx context.Context,
	params mcp.CallToolParams,
	_ mcp.ProgressReporter,
	requestClient mcp.RequestClientFunc,
) (mcp.CallToolResult, error) {
	var args struct {
		Topic string `json:"topic"`
	}
	if err := json.Unmarshal(params.Arguments, &args); err != nil {
		return mcp.CallToolResult{}, fmt.Errorf("failed to unmarshal arguments: %w", err)
	}

	res, err := requestClient(ctx, mcp.MethodSamplingCreateMessage, mcp.SamplingParams{
		Messages: []mcp.SamplingMessage{
			{
				Role:    mcp.RoleUser,
				Content: mcp.SamplingContent{Type: mcp.ContentTypeText, Text: "Write a short story about " + args.Topic},
			},
		},
		SystemPrompt: "You are a storyteller.",
		MaxTokens:    200,
	})
	if err != nil {
		return mcp.CallToolResult{}, fmt.Errorf("failed to request sample: %w", err)
	}
	if res.Error != nil {
		return mcp.CallToolResult{}, fmt.Errorf("client refused sampling: %w", res.Error)
	}

	var sample mcp.SamplingResult
	if err := json.Unmarshal(res.Result, &sample); err != nil {
		return mcp.CallToolResult{}, fmt.Errorf("failed to unmarshal sample: %w", err)
	}
	return textResult(sample.Content.Text), nil
}
