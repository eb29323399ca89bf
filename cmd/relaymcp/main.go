// Command relaymcp is a bidirectional MCP transport bridge: a
// client-mode bridge that exposes a remote HTTP MCP endpoint over
// this process's own stdio, or a server-mode multi-tenant router that
// exposes one or more stdio MCP backends over SSE and Streamable
// HTTP.
package main

import (
	"fmt"
	"os"

	"github.com/relaymcp/relaymcp/cmd/relaymcp/cmd"
)

func main() {
	if err := cmd.Execute(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
