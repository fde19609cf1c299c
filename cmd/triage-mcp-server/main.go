package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"arogya/internal/app"
	"arogya/internal/config"
	"arogya/internal/triagemcp"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	log.Printf("🚀 Starting Arogya triage MCP server")

	ctx := context.Background()
	a, err := app.Open(ctx, config.New())
	if err != nil {
		log.Fatalf("❌ Failed to initialize: %v", err)
	}
	defer a.Close()

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "arogya-triage-mcp",
		Version: "1.0.0",
	}, nil)
	triagemcp.NewServer(a.Triage).Register(server)

	log.Printf("🔗 Serving triage MCP tools on stdin/stdout...")
	if err := server.Run(ctx, mcp.NewStdioTransport()); err != nil {
		log.Fatalf("❌ Triage MCP server failed: %v", err)
	}
}
