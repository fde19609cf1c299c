// Package web is the HTTP front-end: cookie sessions plus JSON endpoints
// for signup, login, the quiz, chat, history and hospital lookup.
package web

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"arogya/internal/hospitals"
	"arogya/internal/session"
	"arogya/internal/triage"
)

const cookieName = "arogya_session"

// Triage is the orchestration surface the handlers call into.
type Triage interface {
	Signup(username, password string) (triage.Account, error)
	Login(username, password string) (triage.Account, error)
	HandleSymptom(ctx context.Context, username, symptom string) (triage.Result, error)
	SubmitQuiz(ctx context.Context, username string, raw []any) (int, error)
	Score(ctx context.Context, username string) (int, error)
	NeedsQuiz(ctx context.Context, username string) (bool, error)
	History(ctx context.Context, username string) (triage.HistoryView, error)
	NearbyHospitals(ctx context.Context, lat, lon *float64) ([]hospitals.Hospital, error)
}

type Sessions interface {
	Create(username string) (session.Session, error)
	Lookup(token string) (session.Session, error)
	Delete(token string) error
}

type Server struct {
	triage       Triage
	sessions     Sessions
	addr         string
	cookieSecure bool
	server       *http.Server
}

func NewServer(addr string, t Triage, sessions Sessions, cookieSecure bool) *Server {
	return &Server{triage: t, sessions: sessions, addr: addr, cookieSecure: cookieSecure}
}

// Handler returns the routed handler without starting a listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /signup", s.handleAuthForm)
	mux.HandleFunc("GET /login", s.handleAuthForm)
	mux.HandleFunc("POST /signup", s.handleSignup)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("GET /logout", s.handleLogout)

	mux.HandleFunc("GET /quiz", s.page(s.handleQuizPage))
	mux.HandleFunc("POST /quiz", s.api(s.handleQuizSubmit))
	mux.HandleFunc("GET /chat", s.page(s.handleChatPage))
	mux.HandleFunc("GET /history", s.page(s.handleHistory))

	mux.HandleFunc("POST /api/chat", s.api(s.handleChat))
	mux.HandleFunc("GET /api/health-score", s.api(s.handleHealthScore))
	mux.HandleFunc("POST /api/hospitals/nearby", s.api(s.handleNearby))

	return logRequests(mux)
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	log.Printf("🌐 Starting Arogya web server on %s", s.addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Printf("📡 %s %s %d %s", r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Millisecond))
	})
}
