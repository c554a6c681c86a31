package mcp

import (
	"errors"
	"io"
	"net/http"
	"slices"
	"strings"
	"testing"
	"testing/iotest"
)

const threeEventStream = "event: message\n" +
	`data: {"jsonrpc":"2.0","method":"notifications/progress","params":{"progressToken":"t","progress":1,"total":2}}` + "\n\n" +
	`data: {"jsonrpc":"2.0","method":"notifications/progress","params":{"progressToken":"t","progress":2,"total":2}}` + "\n\n" +
	"event: message\n" +
	`data: {"jsonrpc":"2.0","id":"1","result":{"content":[]}}` + "\n\n"

// chunkReader hands out the underlying data in chunks of the given sizes, cycling through them.
type chunkReader struct {
	data  string
	sizes []int
	n     int
}

func (c *chunkReader) Read(p []byte) (int, error) {
	if len(c.data) == 0 {
		return 0, io.EOF
	}
	size := c.sizes[c.n%len(c.sizes)]
	c.n++
	size = min(size, len(p), len(c.data))
	copy(p, c.data[:size])
	c.data = c.data[size:]
	return size, nil
}

func collectFrames(t *testing.T, r io.Reader, maxEventSize int) ([]decodedFrame, error) {
	t.Helper()

	var frames []decodedFrame
	for frame, err := range decodeEventStream(r, maxEventSize) {
		if err != nil {
			return frames, err
		}
		frames = append(frames, frame)
	}
	return frames, nil
}

func frameSummary(frames []decodedFrame) []string {
	var out []string
	for _, f := range frames {
		if f.err != nil {
			out = append(out, "error")
			continue
		}
		out = append(out, f.msg.Kind().String()+":"+f.msg.Method+":"+string(f.msg.Params)+string(f.msg.Result))
	}
	return out
}

func TestDecodeEventStreamChunking(t *testing.T) {
	want, err := collectFrames(t, strings.NewReader(threeEventStream), 0)
	if err != nil {
		t.Fatalf("failed to decode whole stream: %v", err)
	}
	if len(want) != 3 {
		t.Fatalf("expected 3 frames, got %d", len(want))
	}

	tests := []struct {
		name   string
		reader io.Reader
	}{
		{
			name:   "one byte at a time",
			reader: iotest.OneByteReader(strings.NewReader(threeEventStream)),
		},
		{
			name:   "half reads",
			reader: iotest.HalfReader(strings.NewReader(threeEventStream)),
		},
		{
			name:   "uneven chunks",
			reader: &chunkReader{data: threeEventStream, sizes: []int{3, 17, 1, 64, 5}},
		},
		{
			name:   "split inside the data prefix",
			reader: &chunkReader{data: threeEventStream, sizes: []int{len("event: message\nda"), 1 << 10}},
		},
		{
			name:   "split between the two newlines",
			reader: &chunkReader{data: threeEventStream, sizes: []int{strings.Index(threeEventStream, "\n\n") + 1, 1 << 10}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := collectFrames(t, tt.reader, 0)
			if err != nil {
				t.Fatalf("failed to decode stream: %v", err)
			}

			if !slices.Equal(frameSummary(got), frameSummary(want)) {
				t.Errorf("frames = %v, want %v", frameSummary(got), frameSummary(want))
			}
		})
	}
}

func TestDecodeEventStreamFrames(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantKinds []string
	}{
		{
			name: "malformed frame between valid frames",
			input: `data: {"jsonrpc":"2.0","method":"notifications/progress","params":{"progressToken":"t","progress":1}}` + "\n\n" +
				"data: {not json\n\n" +
				`data: {"jsonrpc":"2.0","id":"2","result":{}}` + "\n\n",
			wantKinds: []string{"notification", "error", "result"},
		},
		{
			name: "wrong jsonrpc version",
			input: `data: {"jsonrpc":"1.0","id":"2","result":{}}` + "\n\n" +
				`data: {"jsonrpc":"2.0","id":"2","result":{}}` + "\n\n",
			wantKinds: []string{"error", "result"},
		},
		{
			name: "data of named events is parsed",
			input: "event: endpoint\ndata: /messages\n\n" +
				": keep-alive comment\n\n" +
				"event: update\n" + `data: {"jsonrpc":"2.0","method":"notifications/tools/list_changed"}` + "\n\n" +
				`data: {"jsonrpc":"2.0","id":"2","result":{}}` + "\n\n",
			wantKinds: []string{"error", "notification", "result"},
		},
		{
			name: "several data lines in one event",
			input: `data: {"jsonrpc":"2.0","method":"notifications/progress","params":{"progressToken":"t","progress":1}}` + "\n" +
				`data: {"jsonrpc":"2.0","id":"2","result":{}}` + "\n\n",
			wantKinds: []string{"notification", "result"},
		},
		{
			name: "bad line does not hide the rest of its event",
			input: "data: {not json\n" +
				`data: {"jsonrpc":"2.0","id":"2","result":{}}` + "\n\n",
			wantKinds: []string{"error", "result"},
		},
		{
			name:      "events without data are ignored",
			input:     "id: 1\n\nretry: 100\n\n" + `data: {"jsonrpc":"2.0","id":"2","result":{}}` + "\n\n",
			wantKinds: []string{"result"},
		},
		{
			name:      "carriage return line endings",
			input:     `data: {"jsonrpc":"2.0","id":"2","result":{}}` + "\r\n\r\n",
			wantKinds: []string{"result"},
		},
		{
			name:      "final event without blank line",
			input:     `data: {"jsonrpc":"2.0","id":"2","result":{}}` + "\n",
			wantKinds: []string{"result"},
		},
		{
			name:      "final line without terminator",
			input:     `data: {"jsonrpc":"2.0","id":"2","result":{}}`,
			wantKinds: []string{"result"},
		},
		{
			name: "final line without terminator after a complete event",
			input: `data: {"jsonrpc":"2.0","method":"notifications/progress","params":{"progressToken":"t","progress":1}}` + "\n\n" +
				`data: {"jsonrpc":"2.0","id":"2","result":{}}`,
			wantKinds: []string{"notification", "result"},
		},
		{
			name:      "empty stream",
			input:     "",
			wantKinds: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frames, err := collectFrames(t, strings.NewReader(tt.input), 0)
			if err != nil {
				t.Fatalf("unexpected stream error: %v", err)
			}

			var kinds []string
			for _, f := range frames {
				if f.err != nil {
					if !errors.Is(f.err, ErrDecode) {
						t.Errorf("frame error %v does not wrap ErrDecode", f.err)
					}
					kinds = append(kinds, "error")
					continue
				}
				kinds = append(kinds, f.msg.Kind().String())
			}

			if !slices.Equal(kinds, tt.wantKinds) {
				t.Errorf("kinds = %v, want %v", kinds, tt.wantKinds)
			}
		})
	}
}

func TestDecodeEventStreamStopsEarly(t *testing.T) {
	count := 0
	for range decodeEventStream(strings.NewReader(threeEventStream), 0) {
		count++
		if count == 1 {
			break
		}
	}

	if count != 1 {
		t.Errorf("expected iteration to stop after 1 frame, got %d", count)
	}
}

func TestDecodeEventStreamReadFailure(t *testing.T) {
	broken := io.MultiReader(
		strings.NewReader(`data: {"jsonrpc":"2.0","method":"notifications/progress","params":{"progressToken":"t","progress":1}}`+"\n\n"),
		iotest.ErrReader(errors.New("connection reset")),
	)

	frames, err := collectFrames(t, broken, 0)
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
	if len(frames) != 1 {
		t.Errorf("expected the frame before the failure, got %d frames", len(frames))
	}
}

func TestDecodeEventStreamMaxEventSize(t *testing.T) {
	big := `data: {"jsonrpc":"2.0","id":"1","result":{"text":"` + strings.Repeat("x", 4096) + `"}}` + "\n\n"

	_, err := collectFrames(t, strings.NewReader(big), 1024)
	if !errors.Is(err, ErrTransport) {
		t.Errorf("expected ErrTransport for oversized event, got %v", err)
	}

	frames, err := collectFrames(t, strings.NewReader(big), 1<<16)
	if err != nil {
		t.Fatalf("unexpected error with a larger limit: %v", err)
	}
	if len(frames) != 1 || frames[0].err != nil {
		t.Errorf("expected one decoded frame, got %+v", frames)
	}
}

func TestDecodeJSONBody(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{
			name:  "result",
			input: `{"jsonrpc":"2.0","id":"1","result":{"tools":[]}}`,
		},
		{
			name:  "error",
			input: `{"jsonrpc":"2.0","id":"1","error":{"code":-32601,"message":"Method not found"}}`,
		},
		{
			name:    "invalid json",
			input:   `{"jsonrpc":`,
			wantErr: ErrDecode,
		},
		{
			name:    "neither request nor response",
			input:   `{"jsonrpc":"2.0","id":"1"}`,
			wantErr: ErrDecode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var frames []decodedFrame
			for frame, err := range decodeJSONBody(strings.NewReader(tt.input)) {
				if err != nil {
					t.Fatalf("unexpected read error: %v", err)
				}
				frames = append(frames, frame)
			}

			if len(frames) != 1 {
				t.Fatalf("expected exactly one frame, got %d", len(frames))
			}
			if tt.wantErr == nil && frames[0].err != nil {
				t.Errorf("unexpected frame error: %v", frames[0].err)
			}
			if tt.wantErr != nil && !errors.Is(frames[0].err, tt.wantErr) {
				t.Errorf("frame error = %v, want %v", frames[0].err, tt.wantErr)
			}
		})
	}
}

func TestClassifyReply(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		contentType string
		want        replyKind
		wantErr     bool
	}{
		{name: "accepted", status: http.StatusAccepted, contentType: contentTypeJSON, want: replyEmpty},
		{name: "no content", status: http.StatusNoContent, want: replyEmpty},
		{name: "json", status: http.StatusOK, contentType: contentTypeJSON, want: replyJSON},
		{name: "json with charset", status: http.StatusOK, contentType: "application/json; charset=utf-8", want: replyJSON},
		{name: "event stream", status: http.StatusOK, contentType: contentTypeEventStream, want: replyEventStream},
		{name: "missing content type", status: http.StatusOK, want: replyEmpty},
		{name: "unsupported content type", status: http.StatusOK, contentType: "text/html", wantErr: true},
		{name: "malformed content type", status: http.StatusOK, contentType: "a/b; =", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &http.Response{StatusCode: tt.status, Header: http.Header{}}
			if tt.contentType != "" {
				resp.Header.Set("Content-Type", tt.contentType)
			}

			got, err := classifyReply(resp)
			if tt.wantErr {
				if !errors.Is(err, ErrDecode) {
					t.Errorf("expected ErrDecode, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("classifyReply() = %v, want %v", got, tt.want)
			}
		})
	}
}
