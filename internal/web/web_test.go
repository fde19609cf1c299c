package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"arogya/internal/auth"
	"arogya/internal/history"
	"arogya/internal/llm"
	"arogya/internal/session"
	"arogya/internal/triage"
)

type cannedLLM struct{ reply string }

func (c cannedLLM) Generate(ctx context.Context, msgs []llm.Message) (llm.Response, error) {
	if c.reply == "" {
		return llm.Response{}, llm.ErrEmptyResponse
	}
	return llm.Response{Content: c.reply}, nil
}

func newTestServer(t *testing.T, client llm.Client) *httptest.Server {
	t.Helper()
	dir := t.TempDir()
	urepo, err := auth.NewFileRepository(filepath.Join(dir, "users.json"))
	if err != nil {
		t.Fatal(err)
	}
	users, _ := auth.NewWithRepo(urepo)
	hrepo, err := history.NewFileRepository(filepath.Join(dir, "history.json"))
	if err != nil {
		t.Fatal(err)
	}
	ledger, _ := history.NewManager(hrepo, 20)
	svc, err := triage.New(triage.Config{Accounts: users, Ledger: ledger, LLM: client})
	if err != nil {
		t.Fatal(err)
	}
	sessions, err := session.Open(filepath.Join(dir, "sessions.bolt"), time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = sessions.Close() })

	srv := httptest.NewServer(NewServer("", svc, sessions, false).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func newClient(t *testing.T) *http.Client {
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func postJSON(t *testing.T, c *http.Client, u string, body any) (int, map[string]any) {
	t.Helper()
	data, _ := json.Marshal(body)
	resp, err := c.Post(u, "application/json", strings.NewReader(string(data)))
	if err != nil {
		t.Fatalf("post %s: %v", u, err)
	}
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func get(t *testing.T, c *http.Client, u string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := c.Get(u)
	if err != nil {
		t.Fatalf("get %s: %v", u, err)
	}
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestSignupQuizChatFlow(t *testing.T) {
	srv := newTestServer(t, cannedLLM{reply: "🟡 Mild cold. If persists for 2+ days, consider doctor."})
	c := newClient(t)

	resp, _ := get(t, c, srv.URL+"/")
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/login" {
		t.Fatalf("anonymous root: %d %s", resp.StatusCode, resp.Header.Get("Location"))
	}

	code, body := postJSON(t, c, srv.URL+"/signup", map[string]string{"username": "alice", "password": "secret"})
	if code != http.StatusOK || body["redirect"] != "/quiz" || body["needs_quiz"] != true || body["health_score"] != float64(0) {
		t.Fatalf("signup: %d %v", code, body)
	}

	resp, _ = get(t, c, srv.URL+"/")
	if resp.Header.Get("Location") != "/quiz" {
		t.Fatalf("root before quiz: %s", resp.Header.Get("Location"))
	}

	resp, quiz := get(t, c, srv.URL+"/quiz")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("quiz page: %d", resp.StatusCode)
	}
	if qs, _ := quiz["questions"].([]any); len(qs) != 10 {
		t.Fatalf("quiz questions: %v", quiz)
	}

	code, body = postJSON(t, c, srv.URL+"/quiz", map[string]any{"answers": []any{1, 2, 3}})
	if code != http.StatusBadRequest || body["message"] != "Please answer all questions" || body["success"] != false {
		t.Fatalf("short quiz: %d %v", code, body)
	}
	code, body = postJSON(t, c, srv.URL+"/quiz", map[string]any{"answers": []any{10, 10, 10, 10, 5, 5, 5, 5, "2", 0}})
	if code != http.StatusOK || body["score"] != float64(62) {
		t.Fatalf("quiz: %d %v", code, body)
	}

	resp, _ = get(t, c, srv.URL+"/")
	if resp.Header.Get("Location") != "/chat" {
		t.Fatalf("root after quiz: %s", resp.Header.Get("Location"))
	}

	code, body = postJSON(t, c, srv.URL+"/api/chat", map[string]string{"symptom": "runny nose"})
	if code != http.StatusOK || body["severity"] != "mild" || body["health_score"] != float64(57) {
		t.Fatalf("chat: %d %v", code, body)
	}
	code, body = postJSON(t, c, srv.URL+"/api/chat", map[string]string{"symptom": " "})
	if code != http.StatusBadRequest || body["error"] != "Symptom required" {
		t.Fatalf("empty symptom: %d %v", code, body)
	}

	_, score := get(t, c, srv.URL+"/api/health-score")
	if score["health_score"] != float64(57) {
		t.Fatalf("health score: %v", score)
	}
	_, hist := get(t, c, srv.URL+"/history")
	if recs, _ := hist["history"].([]any); len(recs) != 1 {
		t.Fatalf("history: %v", hist)
	}

	resp, _ = get(t, c, srv.URL+"/logout")
	if resp.Header.Get("Location") != "/login" {
		t.Fatalf("logout: %s", resp.Header.Get("Location"))
	}
	code, _ = postJSON(t, c, srv.URL+"/api/chat", map[string]string{"symptom": "cough"})
	if code != http.StatusUnauthorized {
		t.Fatalf("chat after logout: %d", code)
	}

	code, body = postJSON(t, c, srv.URL+"/login", map[string]string{"username": "alice", "password": "secret"})
	if code != http.StatusOK || body["needs_quiz"] != false || body["health_score"] != float64(57) || body["redirect"] != "/chat" {
		t.Fatalf("login after quiz: %d %v", code, body)
	}
}

func TestLoginErrors(t *testing.T) {
	srv := newTestServer(t, cannedLLM{reply: "🟢"})
	c := newClient(t)

	form := url.Values{"username": {"bob"}, "password": {"hunter2"}}
	resp, err := c.PostForm(srv.URL+"/signup", form)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("form signup: %d", resp.StatusCode)
	}

	code, body := postJSON(t, newClient(t), srv.URL+"/signup", map[string]string{"username": "bob", "password": "again"})
	if code != http.StatusConflict || body["error"] != "Username already exists" {
		t.Fatalf("duplicate: %d %v", code, body)
	}
	code, _ = postJSON(t, newClient(t), srv.URL+"/signup", map[string]string{"username": "al", "password": "secret"})
	if code != http.StatusBadRequest {
		t.Fatalf("short username: %d", code)
	}
	code, body = postJSON(t, newClient(t), srv.URL+"/login", map[string]string{"username": "bob", "password": "nope"})
	if code != http.StatusUnauthorized || body["error"] != "Invalid credentials" {
		t.Fatalf("bad password: %d %v", code, body)
	}
	code, body = postJSON(t, newClient(t), srv.URL+"/login", map[string]string{"username": "bob", "password": "hunter2"})
	if code != http.StatusOK || body["redirect"] != "/quiz" || body["needs_quiz"] != true {
		t.Fatalf("login: %d %v", code, body)
	}
	code, _ = postJSON(t, newClient(t), srv.URL+"/signup", map[string]string{"username": "carl", "password": strings.Repeat("p", 80)})
	if code != http.StatusBadRequest {
		t.Fatalf("overlong password: %d", code)
	}
}

func TestAnonymousAccess(t *testing.T) {
	srv := newTestServer(t, cannedLLM{reply: "🟢"})
	c := newClient(t)

	for _, p := range []string{"/quiz", "/chat", "/history"} {
		resp, _ := get(t, c, srv.URL+p)
		if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/login" {
			t.Fatalf("%s: %d %s", p, resp.StatusCode, resp.Header.Get("Location"))
		}
	}
	resp, body := get(t, c, srv.URL+"/api/health-score")
	if resp.StatusCode != http.StatusUnauthorized || body["error"] != "Not authenticated" {
		t.Fatalf("health score: %d %v", resp.StatusCode, body)
	}
}

func TestChatAIFailureMapsToBadGateway(t *testing.T) {
	srv := newTestServer(t, cannedLLM{})
	c := newClient(t)
	postJSON(t, c, srv.URL+"/signup", map[string]string{"username": "carol", "password": "secret"})

	code, body := postJSON(t, c, srv.URL+"/api/chat", map[string]string{"symptom": "fever"})
	if code != http.StatusBadGateway || !strings.Contains(body["error"].(string), "Empty response") {
		t.Fatalf("empty ai: %d %v", code, body)
	}
	_, score := get(t, c, srv.URL+"/api/health-score")
	if score["health_score"] != float64(0) {
		t.Fatalf("score changed on failure: %v", score)
	}
}

func TestNearbyValidation(t *testing.T) {
	srv := newTestServer(t, cannedLLM{reply: "🟢"})
	c := newClient(t)
	postJSON(t, c, srv.URL+"/signup", map[string]string{"username": "dave", "password": "secret"})

	code, body := postJSON(t, c, srv.URL+"/api/hospitals/nearby", map[string]any{"lat": 12.9})
	if code != http.StatusBadRequest || body["error"] != "Latitude and longitude required" {
		t.Fatalf("missing lon: %d %v", code, body)
	}
	code, _ = postJSON(t, c, srv.URL+"/api/hospitals/nearby", map[string]any{"lat": 12.9, "lon": 77.6})
	if code != http.StatusBadGateway {
		t.Fatalf("unconfigured lookup: %d", code)
	}
}

func TestStatusFor(t *testing.T) {
	cases := map[triage.Kind]int{
		triage.KindInvalidFormat:      http.StatusBadRequest,
		triage.KindInvalidCredentials: http.StatusUnauthorized,
		triage.KindDuplicateUser:      http.StatusConflict,
		triage.KindUpstreamLookup:     http.StatusBadGateway,
		triage.KindInternal:           http.StatusInternalServerError,
	}
	for kind, want := range cases {
		if got := statusFor(triage.Errorf(kind, nil, "x")); got != want {
			t.Fatalf("%v: got %d want %d", kind, got, want)
		}
	}
}
