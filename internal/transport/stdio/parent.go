package stdio

import "os"

// NewParent builds the stdio transport for client mode, where this
// process's own stdin/stdout are the left side of the Session: the
// parent process that spawned us speaks MCP server to our MCP client.
// There is no child to supervise and Close never touches the
// descriptors themselves (os.Stdin/os.Stdout outlive the Session).
func NewParent() *Framed {
	return NewFramed(os.Stdin, os.Stdout, nil)
}
