package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

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

	log.Printf("🚀 Starting Arogya triage HTTP MCP server...")

	cfg := config.New()
	a, err := app.Open(context.Background(), cfg)
	if err != nil {
		log.Fatalf("❌ Failed to initialize: %v", err)
	}
	defer a.Close()

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "arogya-triage-mcp-http",
		Version: "1.0.0",
	}, nil)
	triagemcp.NewServer(a.Triage).Register(server)

	srv := &http.Server{
		Addr:              cfg.MCPHTTPAddr,
		Handler:           triagemcp.HTTPHandler(server),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("🌐 Triage SSE MCP server listening on %s/mcp", cfg.MCPHTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ HTTP server failed: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Println("🔌 Triage HTTP MCP server shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("❌ Server shutdown error: %v", err)
	}
}
