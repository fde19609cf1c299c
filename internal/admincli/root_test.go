package admincli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"arogya/internal/auth"
	"arogya/internal/history"
	"arogya/internal/storage"
	"arogya/internal/triage"
	"arogya/internal/triagemcp"
	"arogya/internal/wellness"
)

func testDeps(t *testing.T) (Deps, *auth.Service, *history.Manager, *storage.FileRecorder) {
	t.Helper()
	dir := t.TempDir()
	urepo, err := auth.NewFileRepository(filepath.Join(dir, "users.json"))
	if err != nil {
		t.Fatal(err)
	}
	users, err := auth.NewWithRepo(urepo)
	if err != nil {
		t.Fatal(err)
	}
	hrepo, err := history.NewFileRepository(filepath.Join(dir, "history.json"))
	if err != nil {
		t.Fatal(err)
	}
	ledger, err := history.NewManager(hrepo, 20)
	if err != nil {
		t.Fatal(err)
	}
	rec, err := storage.NewFileRecorder(filepath.Join(dir, "audit.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	return Deps{Users: users, History: ledger, Events: rec}, users, ledger, rec
}

func run(t *testing.T, d Deps, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRoot(d)
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestUsersAndSetScore(t *testing.T) {
	d, users, _, _ := testDeps(t)
	if _, err := users.Signup("alice", "secret"); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, d, "users")
	if err != nil {
		t.Fatalf("users: %v", err)
	}
	if !strings.Contains(out, "USERNAME") || !strings.Contains(out, "alice") || !strings.Contains(out, "true") {
		t.Fatalf("unexpected listing:\n%s", out)
	}

	if _, err := run(t, d, "set-score", "alice", "140"); err != nil {
		t.Fatalf("set-score: %v", err)
	}
	u, _ := users.Get("alice")
	if u.HealthScore != 100 {
		t.Fatalf("score should clamp to 100, got %d", u.HealthScore)
	}
	if _, err := run(t, d, "set-score", "alice", "abc"); err == nil {
		t.Fatal("non-numeric score should fail")
	}
	if _, err := run(t, d, "set-score", "ghost", "10"); err == nil {
		t.Fatal("unknown user should fail")
	}
}

func TestHistory(t *testing.T) {
	d, users, ledger, _ := testDeps(t)
	if _, err := users.Signup("bob", "pw"); err != nil {
		t.Fatal(err)
	}
	at := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	if err := ledger.Append(history.NewRecord("bob", "sore throat", "🟡 Mild.", wellness.SeverityMild, at)); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, d, "history", "bob")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(out, "1 records") || !strings.Contains(out, "🟡 sore throat") {
		t.Fatalf("unexpected history:\n%s", out)
	}
	if _, err := run(t, d, "history"); err == nil {
		t.Fatal("missing username should fail")
	}
	if _, err := run(t, d, "history", "ghost"); err == nil {
		t.Fatal("unknown user should fail")
	}
}

func TestReport(t *testing.T) {
	d, _, _, rec := testDeps(t)
	day := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	events := []storage.Event{
		{Timestamp: day, Kind: storage.KindTurn, Username: "alice", Severity: string(wellness.SeveritySerious), ScoreBefore: 62, ScoreAfter: 47},
		{Timestamp: day.Add(time.Hour), Kind: storage.KindQuiz, Username: "bob", ScoreAfter: 80},
		{Timestamp: day.AddDate(0, 0, -1), Kind: storage.KindTurn, Username: "carol", Severity: string(wellness.SeverityNormal), ScoreAfter: 15},
	}
	for _, e := range events {
		if err := rec.AppendInteraction(e); err != nil {
			t.Fatal(err)
		}
	}

	out, err := run(t, d, "report", "--date", "2024-03-01", "--format", "json")
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	var stats struct {
		Turns       int `json:"turns"`
		Quizzes     int `json:"quizzes"`
		UniqueUsers int `json:"unique_users"`
	}
	if err := json.Unmarshal([]byte(out), &stats); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if stats.Turns != 1 || stats.Quizzes != 1 || stats.UniqueUsers != 2 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	if out, err = run(t, d, "report", "--date", "2024-03-01"); err != nil || !strings.Contains(out, "serious: 1") {
		t.Fatalf("text report: %v\n%s", err, out)
	}
	if out, err = run(t, d, "report", "--date", "2024-03-01", "--format", "yaml"); err != nil || !strings.Contains(out, "turns: 1") {
		t.Fatalf("yaml report: %v\n%s", err, out)
	}
	if _, err := run(t, d, "report", "--date", "01/03/2024"); err == nil {
		t.Fatal("bad date should fail")
	}
	if _, err := run(t, d, "report", "--format", "xml"); err == nil {
		t.Fatal("unknown format should fail")
	}
}

func TestMCPCheck(t *testing.T) {
	ctx := context.Background()
	d, users, _, _ := testDeps(t)
	if _, err := users.Signup("alice", "secret"); err != nil {
		t.Fatal(err)
	}
	svc, err := triage.New(triage.Config{Accounts: users, Ledger: d.History.(*history.Manager)})
	if err != nil {
		t.Fatal(err)
	}
	server := mcp.NewServer(&mcp.Implementation{Name: "test", Version: "0"}, nil)
	triagemcp.NewServer(svc).Register(server)
	clientT, serverT := mcp.NewInMemoryTransports()
	ss, err := server.Connect(ctx, serverT)
	if err != nil {
		t.Fatal(err)
	}
	defer ss.Close()
	c := triagemcp.NewClient()
	if err := c.ConnectTransport(ctx, clientT); err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	var out bytes.Buffer
	if err := checkServer(ctx, &out, c, "alice"); err != nil {
		t.Fatalf("mcp check: %v", err)
	}
	if !strings.Contains(out.String(), "health_score") || !strings.Contains(out.String(), "alice: score 0, needs quiz true") {
		t.Fatalf("unexpected mcp-check output:\n%s", out.String())
	}
}
