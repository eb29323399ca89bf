package mcperr

import "encoding/json"

// Standard JSON-RPC 2.0 error codes used when synthesizing an error
// response on behalf of a peer that will never see one otherwise.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// SafeErrorMessage returns a client-safe message for err, never the
// underlying Go error string. Unknown kinds fall back to a generic
// message so internal detail never crosses a transport boundary.
func SafeErrorMessage(err error) string {
	switch KindOf(err) {
	case MalformedFrame:
		return "malformed message"
	case SchemaViolation:
		return "invalid JSON-RPC message"
	case SpawnFailed:
		return "backend unavailable"
	case TransportClosed:
		return "connection closed"
	case UpstreamHTTPError:
		return "upstream error"
	case RouteNotFound:
		return "not found"
	default:
		return "internal error"
	}
}

// CreateJSONRPCError builds a raw JSON-RPC 2.0 error response frame
// echoing id, for the rare case where the proxy itself must answer a
// request instead of forwarding it (a rejected frame that still needs
// a correlated response on the wire).
func CreateJSONRPCError(id interface{}, code int, message string) []byte {
	resp := map[string]interface{}{
		"jsonrpc": "2.0",
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
		"id": id,
	}
	b, _ := json.Marshal(resp)
	return b
}
