package mcp

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"mime"
	"net/http"
	"strings"

	"github.com/tmaxmax/go-sse"
)

// replyKind is the decoded shape of a POST reply body.
type replyKind int

const (
	replyEmpty replyKind = iota
	replyJSON
	replyEventStream
)

// eventStreamTerminator is appended to every event stream so a body that ends inside a line or an
// event still delivers it.
const eventStreamTerminator = "\n\n"

// decodedFrame is one item produced by a reply decoder. Err is set for a frame that could not be
// decoded; the stream continues after it.
type decodedFrame struct {
	msg JSONRPCMessage
	err error
}

func (k replyKind) String() string {
	switch k {
	case replyJSON:
		return "json"
	case replyEventStream:
		return "event-stream"
	default:
		return "empty"
	}
}

// classifyReply inspects the status and declared content type of resp once, so callers never
// branch on header strings themselves.
func classifyReply(resp *http.Response) (replyKind, error) {
	if resp.StatusCode == http.StatusAccepted || resp.StatusCode == http.StatusNoContent {
		return replyEmpty, nil
	}

	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		return replyEmpty, nil
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return replyEmpty, fmt.Errorf("%w: invalid content type %q: %w", ErrDecode, ct, err)
	}

	switch mediaType {
	case contentTypeJSON:
		return replyJSON, nil
	case contentTypeEventStream:
		return replyEventStream, nil
	default:
		return replyEmpty, fmt.Errorf("%w: unsupported content type %q", ErrDecode, mediaType)
	}
}

// decodeReply returns the frame decoder matching kind.
func decodeReply(kind replyKind, body io.Reader, maxEventSize int) iter.Seq2[decodedFrame, error] {
	switch kind {
	case replyJSON:
		return decodeJSONBody(body)
	case replyEventStream:
		return decodeEventStream(body, maxEventSize)
	default:
		return func(func(decodedFrame, error) bool) {}
	}
}

// decodeJSONBody yields the single JSON-RPC message of a plain JSON reply.
func decodeJSONBody(body io.Reader) iter.Seq2[decodedFrame, error] {
	return func(yield func(decodedFrame, error) bool) {
		bs, err := io.ReadAll(body)
		if err != nil {
			yield(decodedFrame{}, fmt.Errorf("%w: failed to read body: %w", ErrTransport, err))
			return
		}
		msg, err := parseMessage(bs)
		yield(decodedFrame{msg: msg, err: err}, nil)
	}
}

// decodeEventStream consumes body incrementally and yields one frame per data line. Events are
// assembled by go-sse, so a line split across reads is only handled once its terminator arrives; the
// end of the body terminates a trailing line and event. Every data line of an event is a JSON document
// of its own, whatever the event type. The outer error is only set when reading the body fails, after
// which the iteration stops.
func decodeEventStream(body io.Reader, maxEventSize int) iter.Seq2[decodedFrame, error] {
	return func(yield func(decodedFrame, error) bool) {
		var cfg *sse.ReadConfig
		if maxEventSize > 0 {
			cfg = &sse.ReadConfig{MaxEventSize: maxEventSize}
		}

		for ev, err := range sse.Read(io.MultiReader(body, strings.NewReader(eventStreamTerminator)), cfg) {
			if err != nil {
				if errors.Is(err, io.EOF) {
					return
				}
				yield(decodedFrame{}, fmt.Errorf("%w: failed to read event stream: %w", ErrTransport, err))
				return
			}

			for _, line := range strings.Split(ev.Data, "\n") {
				if strings.TrimSpace(line) == "" {
					continue
				}
				msg, err := parseMessage([]byte(line))
				if !yield(decodedFrame{msg: msg, err: err}, nil) {
					return
				}
			}
		}
	}
}

func parseMessage(bs []byte) (JSONRPCMessage, error) {
	var msg JSONRPCMessage
	if err := json.Unmarshal(bs, &msg); err != nil {
		return JSONRPCMessage{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if msg.JSONRPC != JSONRPCVersion {
		return JSONRPCMessage{}, fmt.Errorf("%w: invalid jsonrpc version: %q", ErrDecode, msg.JSONRPC)
	}
	if msg.Kind() == MessageKindInvalid {
		return JSONRPCMessage{}, fmt.Errorf("%w: message is neither request, notification nor response", ErrDecode)
	}
	return msg, nil
}
