// Package triagemcp exposes read-only triage tools over MCP.
package triagemcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"arogya/internal/triage"
	"arogya/internal/wellness"
)

type ClassifyParams struct {
	Reply string `json:"reply" mcp:"assistant reply text to classify"`
}

type ScoreQuizParams struct {
	Answers []float64 `json:"answers" mcp:"exactly 10 numeric quiz answers"`
}

type UserParams struct {
	Username string `json:"username" mcp:"account username"`
}

type HistoryParams struct {
	Username string `json:"username" mcp:"account username"`
	Limit    int    `json:"limit,omitempty" mcp:"return only the newest N records"`
}

// Reader is the part of the triage service the tools need.
type Reader interface {
	Score(ctx context.Context, username string) (int, error)
	History(ctx context.Context, username string) (triage.HistoryView, error)
}

type Server struct {
	reader Reader
}

func NewServer(r Reader) *Server { return &Server{reader: r} }

// Register adds every tool to server.
func (s *Server) Register(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "classify_severity",
		Description: "Classifies an assistant reply into normal, mild or serious and reports the score delta",
	}, s.ClassifySeverity)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "score_quiz",
		Description: "Computes the wellness score for 10 quiz answers without saving it",
	}, s.ScoreQuiz)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "health_score",
		Description: "Returns a user's wellness score and whether they still need the quiz",
	}, s.HealthScore)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "triage_history",
		Description: "Returns a user's retained consultation records, oldest first",
	}, s.History)

	log.Printf("📋 Registered triage MCP tools: classify_severity, score_quiz, health_score, triage_history")
}

func (s *Server) ClassifySeverity(ctx context.Context, session *mcp.ServerSession, params *mcp.CallToolParamsFor[ClassifyParams]) (*mcp.CallToolResultFor[any], error) {
	sev := wellness.Classify(params.Arguments.Reply)
	return jsonResult(map[string]any{
		"severity": sev,
		"marker":   sev.Marker(),
		"delta":    wellness.Delta(sev),
	})
}

func (s *Server) ScoreQuiz(ctx context.Context, session *mcp.ServerSession, params *mcp.CallToolParamsFor[ScoreQuizParams]) (*mcp.CallToolResultFor[any], error) {
	score, err := wellness.ScoreQuiz(params.Arguments.Answers)
	if err != nil {
		return errorResult(fmt.Sprintf("❌ %v", err)), nil
	}
	return jsonResult(map[string]any{"score": score, "needs_quiz": wellness.NeedsQuiz(score)})
}

func (s *Server) HealthScore(ctx context.Context, session *mcp.ServerSession, params *mcp.CallToolParamsFor[UserParams]) (*mcp.CallToolResultFor[any], error) {
	score, err := s.reader.Score(ctx, params.Arguments.Username)
	if err != nil {
		return errorResult("❌ " + triage.MessageOf(err)), nil
	}
	return jsonResult(map[string]any{
		"username":     params.Arguments.Username,
		"health_score": score,
		"needs_quiz":   wellness.NeedsQuiz(score),
	})
}

func (s *Server) History(ctx context.Context, session *mcp.ServerSession, params *mcp.CallToolParamsFor[HistoryParams]) (*mcp.CallToolResultFor[any], error) {
	view, err := s.reader.History(ctx, params.Arguments.Username)
	if err != nil {
		return errorResult("❌ " + triage.MessageOf(err)), nil
	}
	if n := params.Arguments.Limit; n > 0 && len(view.Records) > n {
		view.Records = view.Records[len(view.Records)-n:]
	}
	return jsonResult(view)
}

func jsonResult(v any) (*mcp.CallToolResultFor[any], error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult(fmt.Sprintf("❌ Failed to encode result: %v", err)), nil
	}
	return &mcp.CallToolResultFor[any]{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil
}

func errorResult(msg string) *mcp.CallToolResultFor[any] {
	return &mcp.CallToolResultFor[any]{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
	}
}
