// Command mcp serves the pillbot REST API as MCP tools over stdio.
//
// Environment:
//
//	PILLBOT_API_URL       Base URL of the pillbot HTTP server (default http://localhost:8080)
//	PILLBOT_API_USERNAME  Basic auth user
//	PILLBOT_API_PASSWORD  Basic auth password
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/tazhate/pillbot/internal/mcpserver"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Error loading .env: %v\n", err)
	}

	apiURL := os.Getenv("PILLBOT_API_URL")
	if apiURL == "" {
		apiURL = "http://localhost:8080"
	}

	client := mcpserver.NewClient(apiURL, os.Getenv("PILLBOT_API_USERNAME"), os.Getenv("PILLBOT_API_PASSWORD"))
	s := mcpserver.NewServer(client)

	if err := server.ServeStdio(s.MCPServer()); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}
