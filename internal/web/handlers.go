package web

import (
	"context"
	"encoding/json"
	"log"
	"mime"
	"net/http"

	"arogya/internal/triage"
	"arogya/internal/wellness"
)

const maxBodyBytes = 1 << 20

type userKey struct{}

func currentUser(ctx context.Context) string {
	u, _ := ctx.Value(userKey{}).(string)
	return u
}

// authenticate resolves the session cookie to a username.
func (s *Server) authenticate(r *http.Request) (string, bool) {
	c, err := r.Cookie(cookieName)
	if err != nil {
		return "", false
	}
	sess, err := s.sessions.Lookup(c.Value)
	if err != nil {
		return "", false
	}
	return sess.Username, true
}

// page guards browser routes: anonymous visitors are sent to /login.
func (s *Server) page(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username, ok := s.authenticate(r)
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		h(w, r.WithContext(context.WithValue(r.Context(), userKey{}, username)))
	}
}

// api guards JSON routes: anonymous callers get 401.
func (s *Server) api(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username, ok := s.authenticate(r)
		if !ok {
			writeError(w, triage.Errorf(triage.KindUnauthenticated, nil, "Not authenticated"))
			return
		}
		h(w, r.WithContext(context.WithValue(r.Context(), userKey{}, username)))
	}
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	username, ok := s.authenticate(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, s.landing(r.Context(), username), http.StatusSeeOther)
}

// landing is /quiz for users without a score and /chat otherwise.
func (s *Server) landing(ctx context.Context, username string) string {
	needs, err := s.triage.NeedsQuiz(ctx, username)
	if err != nil || needs {
		return "/quiz"
	}
	return "/chat"
}

// handleAuthForm describes the form a client should post back.
func (s *Server) handleAuthForm(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"action": r.URL.Path,
		"fields": []string{"username", "password"},
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func readCredentials(r *http.Request) (credentials, error) {
	var c credentials
	if isJSON(r) {
		if err := decodeJSON(r, &c); err != nil {
			return c, err
		}
		return c, nil
	}
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		return c, triage.Errorf(triage.KindInvalidInput, err, "Malformed form")
	}
	c.Username = r.PostForm.Get("username")
	c.Password = r.PostForm.Get("password")
	return c, nil
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	c, err := readCredentials(r)
	if err != nil {
		writeError(w, err)
		return
	}
	acct, err := s.triage.Signup(c.Username, c.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	log.Printf("👤 New user %s", acct.Username)
	s.startSession(w, acct)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	c, err := readCredentials(r)
	if err != nil {
		writeError(w, err)
		return
	}
	acct, err := s.triage.Login(c.Username, c.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	s.startSession(w, acct)
}

func (s *Server) startSession(w http.ResponseWriter, acct triage.Account) {
	sess, err := s.sessions.Create(acct.Username)
	if err != nil {
		writeError(w, triage.Errorf(triage.KindInternal, err, "Could not start session"))
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	redirect := "/chat"
	if acct.NeedsQuiz {
		redirect = "/quiz"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"username":     acct.Username,
		"health_score": acct.HealthScore,
		"needs_quiz":   acct.NeedsQuiz,
		"redirect":     redirect,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(cookieName); err == nil {
		if err := s.sessions.Delete(c.Value); err != nil {
			log.Printf("⚠️ failed to delete session: %v", err)
		}
	}
	http.SetCookie(w, &http.Cookie{Name: cookieName, Value: "", Path: "/", MaxAge: -1, HttpOnly: true, Secure: s.cookieSecure})
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Server) handleQuizPage(w http.ResponseWriter, r *http.Request) {
	questions, err := wellness.Questions()
	if err != nil {
		writeError(w, triage.Errorf(triage.KindInternal, err, "Quiz unavailable"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"questions": questions})
}

func (s *Server) handleQuizSubmit(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Answers []any `json:"answers"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeQuizError(w, err)
		return
	}
	score, err := s.triage.SubmitQuiz(r.Context(), currentUser(r.Context()), body.Answers)
	if err != nil {
		writeQuizError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"score":   score,
		"message": "Quiz completed successfully",
	})
}

func writeQuizError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]any{"success": false, "message": triage.MessageOf(err)})
}

func (s *Server) handleChatPage(w http.ResponseWriter, r *http.Request) {
	score, err := s.triage.Score(r.Context(), currentUser(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"health_score": score})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Symptom string `json:"symptom"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}
	res, err := s.triage.HandleSymptom(r.Context(), currentUser(r.Context()), body.Symptom)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleHealthScore(w http.ResponseWriter, r *http.Request) {
	score, err := s.triage.Score(r.Context(), currentUser(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"health_score": score})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	view, err := s.triage.History(r.Context(), currentUser(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleNearby(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Lat *float64 `json:"lat"`
		Lon *float64 `json:"lon"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}
	found, err := s.triage.NearbyHospitals(r.Context(), body.Lat, body.Lon)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"hospitals": found})
}

func isJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

// decodeJSON reads one JSON object. Numbers stay json.Number so quiz
// answers keep their textual form until parsed.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return triage.Errorf(triage.KindInvalidInput, err, "Malformed JSON body")
	}
	return nil
}

func statusFor(err error) int {
	switch triage.KindOf(err) {
	case triage.KindInvalidInput, triage.KindInvalidFormat:
		return http.StatusBadRequest
	case triage.KindUnauthenticated, triage.KindInvalidCredentials, triage.KindUnknownUser:
		return http.StatusUnauthorized
	case triage.KindDuplicateUser:
		return http.StatusConflict
	case triage.KindAIService, triage.KindEmptyAIResponse, triage.KindUpstreamLookup:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Printf("❌ %v", err)
	}
	writeJSON(w, status, map[string]string{"error": triage.MessageOf(err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("⚠️ failed to write response: %v", err)
	}
}
