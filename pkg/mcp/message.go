// Package mcp provides MCP message types and JSON-RPC codec utilities
// for the relaymcp transport bridge.
package mcp

import (
	"encoding/json"
	"time"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
)

// Direction indicates which side of a Session produced a message.
type Direction int

const (
	// LeftToRight indicates a message flowing from the left transport
	// (the incoming/parent side of a Session) to the right transport.
	LeftToRight Direction = iota
	// RightToLeft indicates a message flowing from the right transport
	// (the outgoing/backend side of a Session) to the left transport.
	RightToLeft
)

// String returns the string representation of the Direction.
func (d Direction) String() string {
	switch d {
	case LeftToRight:
		return "left->right"
	case RightToLeft:
		return "right->left"
	default:
		return "unknown"
	}
}

// Message wraps a single JSON-RPC frame crossing a Session.
//
// Raw holds the exact bytes read from the source transport (minus the
// line terminator). The bridge forwards Raw byte-for-byte; Decoded
// exists purely so the bridge can classify and log a frame without
// re-encoding it, preserving the invariant that no re-encoding-induced
// change to params/result/error.data is ever observable on the wire.
type Message struct {
	// Raw contains the original bytes of the message, as read from the
	// source transport. This is what gets forwarded.
	Raw []byte

	// Direction records which side of the Session produced this frame.
	Direction Direction

	// Decoded holds the parsed JSON-RPC message, or nil if parsing
	// failed. The concrete type is either *jsonrpc.Request or
	// *jsonrpc.Response. A nil Decoded does not block forwarding; it
	// only limits what can be logged about the frame.
	Decoded jsonrpc.Message

	// Timestamp records when the frame was read from its source.
	Timestamp time.Time
}

// WrapMessage decodes raw JSON-RPC bytes and wraps them in a Message
// for classification and logging. If decoding fails, Decoded is left
// nil and the error is returned to the caller — the caller still
// forwards Raw unchanged (passthrough on a malformed-but-non-fatal
// frame, per the frame-level error policy).
func WrapMessage(raw []byte, dir Direction) (*Message, error) {
	msg := &Message{
		Raw:       raw,
		Direction: dir,
		Timestamp: time.Now(),
	}

	decoded, err := jsonrpc.DecodeMessage(raw)
	if err != nil {
		return msg, err
	}
	msg.Decoded = decoded
	return msg, nil
}

// IsRequest returns true if the message is a JSON-RPC request or
// notification (method present, decoded as *jsonrpc.Request either
// way — the SDK does not distinguish the two at the type level).
func (m *Message) IsRequest() bool {
	if m.Decoded == nil {
		return false
	}
	_, ok := m.Decoded.(*jsonrpc.Request)
	return ok
}

// IsResponse returns true if the message is a JSON-RPC response
// (has an id and exactly one of result/error).
func (m *Message) IsResponse() bool {
	if m.Decoded == nil {
		return false
	}
	_, ok := m.Decoded.(*jsonrpc.Response)
	return ok
}

// IsNotification returns true if the message is a request-shaped
// frame with no id. Notifications carry no response correlation and
// need no id-based bookkeeping.
func (m *Message) IsNotification() bool {
	req := m.Request()
	if req == nil {
		return false
	}
	return req.ID.Raw() == nil
}

// Method returns the method name if this is a request or
// notification, empty string otherwise.
func (m *Message) Method() string {
	req := m.Request()
	if req == nil {
		return ""
	}
	return req.Method
}

// Request returns the underlying *jsonrpc.Request, or nil if this
// message is not a request.
func (m *Message) Request() *jsonrpc.Request {
	if m.Decoded == nil {
		return nil
	}
	req, _ := m.Decoded.(*jsonrpc.Request)
	return req
}

// Response returns the underlying *jsonrpc.Response, or nil if this
// message is not a response.
func (m *Message) Response() *jsonrpc.Response {
	if m.Decoded == nil {
		return nil
	}
	resp, _ := m.Decoded.(*jsonrpc.Response)
	return resp
}

// RawID extracts the "id" field directly from the raw bytes as
// json.RawMessage, preserving its original representation (number,
// string, or null). The SDK's jsonrpc.ID type does not round-trip
// through interface{} cleanly, so error responses that need to echo
// an id use this instead of the decoded form.
func (m *Message) RawID() json.RawMessage {
	if m.Raw == nil {
		return nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(m.Raw, &raw); err != nil {
		return nil
	}
	return raw["id"]
}
