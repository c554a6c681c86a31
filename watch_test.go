package mcp_test

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	mcp "github.com/MegaGrindStone/go-mcp-streamable"
)

var goodbyeTool = mcp.ServerTool{
	Tool: mcp.Tool{Name: "goodbye", Description: "Says goodbye"},
	Handler: func(context.Context, mcp.CallToolParams, mcp.ProgressReporter, mcp.RequestClientFunc) (mcp.CallToolResult, error) {
		return mcp.CallToolResult{Content: []mcp.Content{{Type: mcp.ContentTypeText, Text: "Goodbye!"}}}, nil
	},
}

func hasTool(tools []mcp.Tool, name string) bool {
	return slices.ContainsFunc(tools, func(t mcp.Tool) bool { return t.Name == name })
}

func TestListChangedSignalCoalesces(t *testing.T) {
	signal := mcp.NewListChangedSignal()

	for range 5 {
		signal.OnToolListChanged()
	}

	select {
	case <-signal.Tools():
	default:
		t.Fatal("expected a pending tools signal")
	}
	select {
	case <-signal.Tools():
		t.Fatal("expected notifications to be coalesced into one signal")
	default:
	}
	select {
	case <-signal.Resources():
		t.Fatal("expected no resources signal")
	default:
	}

	signal.OnResourceListChanged()
	select {
	case <-signal.Resources():
	default:
		t.Fatal("expected a pending resources signal")
	}
}

func TestWatchToolListPush(t *testing.T) {
	server, _, srv := newTestServer(t)
	signal := mcp.NewListChangedSignal()
	client := initializedClient(t, srv.URL, mcp.WithToolListWatcher(signal))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := client.Listen(ctx); err != nil {
			t.Errorf("listen failed: %v", err)
		}
	}()

	changed := make(chan []mcp.Tool, 1)
	go func() {
		defer wg.Done()
		err := mcp.WatchToolList(ctx, client, signal.Tools(), func(tools []mcp.Tool) {
			if !hasTool(tools, "goodbye") {
				return
			}
			select {
			case changed <- tools:
			default:
			}
		})
		if err != nil {
			t.Errorf("watch failed: %v", err)
		}
	}()

	deadline := time.After(5 * time.Second)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	// Re-registering broadcasts again, which covers a stream that was not open yet.
	var tools []mcp.Tool
wait:
	for {
		server.AddTool(goodbyeTool)
		select {
		case tools = <-changed:
			break wait
		case <-ticker.C:
		case <-deadline:
			t.Fatal("timed out waiting for the pushed tool list")
		}
	}

	if len(tools) != 4 {
		t.Errorf("expected 4 tools after the change, got %d", len(tools))
	}

	cancel()
	wg.Wait()
}

func TestPollToolList(t *testing.T) {
	server, rec, srv := newTestServer(t)

	// The second listing is only sent once the baseline has been taken.
	secondList := make(chan struct{})
	var once sync.Once
	var listCount int
	var countLock sync.Mutex
	rec.lock.Lock()
	rec.onMessage = func(msg mcp.JSONRPCMessage) {
		if msg.Method != mcp.MethodToolsList {
			return
		}
		countLock.Lock()
		listCount++
		n := listCount
		countLock.Unlock()
		if n >= 2 {
			once.Do(func() { close(secondList) })
		}
	}
	rec.lock.Unlock()

	client := initializedClient(t, srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var changesLock sync.Mutex
	var changes [][]mcp.Tool
	done := make(chan error, 1)
	go func() {
		done <- mcp.PollToolList(ctx, client, 20*time.Millisecond, func(tools []mcp.Tool) {
			changesLock.Lock()
			defer changesLock.Unlock()
			changes = append(changes, tools)
		})
	}()

	select {
	case <-secondList:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for polling to start")
	}

	server.AddTool(goodbyeTool)

	deadline := time.Now().Add(5 * time.Second)
	for {
		changesLock.Lock()
		n := len(changes)
		changesLock.Unlock()
		if n > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for the polled change")
		}
		time.Sleep(10 * time.Millisecond)
	}

	// Unchanged listings must not be reported again.
	time.Sleep(100 * time.Millisecond)

	cancel()
	if err := <-done; err != nil {
		t.Errorf("expected nil after cancel, got %v", err)
	}

	changesLock.Lock()
	defer changesLock.Unlock()
	if len(changes) != 1 {
		t.Fatalf("expected exactly 1 change, got %d", len(changes))
	}
	if !hasTool(changes[0], "goodbye") {
		t.Errorf("expected goodbye in the changed list, got %+v", changes[0])
	}
}

func TestPollToolListBaselineFailure(t *testing.T) {
	client := mcp.NewClient(testClientInfo, "http://127.0.0.1:0")

	err := mcp.PollToolList(context.Background(), client, time.Second, func([]mcp.Tool) {
		t.Error("onChange must not be called")
	})
	if err == nil {
		t.Fatal("expected the baseline listing to fail")
	}
}
