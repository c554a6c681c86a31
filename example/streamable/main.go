// Command streamable is a demo of the streamable HTTP transport: it runs a small MCP server and a client
// that exercises it.
//
//	streamable serve --addr :8080
//	streamable tools --url http://localhost:8080/mcp
//	streamable call download_file '{"filename":"report.pdf"}'
//	streamable watch --strategy poll --interval 2s
package main

import (
	"os"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
