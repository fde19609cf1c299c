package triagemcp

import (
	"context"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"arogya/internal/wellness"
)

func TestClientRoundTrip(t *testing.T) {
	ctx := context.Background()
	server := mcp.NewServer(&mcp.Implementation{Name: "test", Version: "0"}, nil)
	NewServer(fakeReader{scores: map[string]int{"alice": 62}}).Register(server)

	clientT, serverT := mcp.NewInMemoryTransports()
	ss, err := server.Connect(ctx, serverT)
	if err != nil {
		t.Fatalf("server connect: %v", err)
	}
	defer ss.Close()

	c := NewClient()
	if err := c.ConnectTransport(ctx, clientT); err != nil {
		t.Fatalf("client connect: %v", err)
	}
	defer c.Close()

	names, err := c.Tools(ctx)
	if err != nil || len(names) != 4 {
		t.Fatalf("tools: %v %v", names, err)
	}

	var sev struct {
		Severity wellness.Severity `json:"severity"`
	}
	if err := c.Call(ctx, "classify_severity", map[string]any{"reply": "🟡 Mild, rest up."}, &sev); err != nil {
		t.Fatalf("classify: %v", err)
	}
	if sev.Severity != wellness.SeverityMild {
		t.Fatalf("severity: %s", sev.Severity)
	}

	var hs struct {
		HealthScore int `json:"health_score"`
	}
	if err := c.Call(ctx, "health_score", map[string]any{"username": "alice"}, &hs); err != nil || hs.HealthScore != 62 {
		t.Fatalf("health score: %+v %v", hs, err)
	}
	err = c.Call(ctx, "health_score", map[string]any{"username": "ghost"}, nil)
	if err == nil || !strings.Contains(err.Error(), "Unknown user") {
		t.Fatalf("unknown user: %v", err)
	}
}

func TestClientNotConnected(t *testing.T) {
	c := NewClient()
	if _, err := c.Tools(context.Background()); err == nil {
		t.Fatal("expected error without a session")
	}
}
