// Package triage is the orchestration boundary: it turns symptom text,
// quiz answers and account actions into classified results, and is the
// only writer of wellness scores and history after classification.
package triage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"arogya/internal/auth"
	"arogya/internal/history"
	"arogya/internal/hospitals"
	"arogya/internal/llm"
	"arogya/internal/storage"
	"arogya/internal/wellness"
)

const DefaultAITimeout = 15 * time.Second

// Accounts is the user record store as seen by the orchestrator.
type Accounts interface {
	Signup(username, password string) (auth.User, error)
	Login(username, password string) (auth.User, error)
	Get(username string) (auth.User, error)
	Update(username string, fn func(*auth.User) error) error
}

// Ledger is the history store as seen by the orchestrator.
type Ledger interface {
	Append(rec history.Record) error
	SetGlobalScore(score int) error
	ForUser(username string) ([]history.Record, error)
}

// HospitalFinder looks up hospitals around a coordinate.
type HospitalFinder interface {
	Nearby(ctx context.Context, lat, lon float64) ([]hospitals.Hospital, error)
}

type Config struct {
	Accounts     Accounts
	Ledger       Ledger
	LLM          llm.Client
	Recorder     storage.Recorder
	Hospitals    HospitalFinder
	SystemPrompt string
	AITimeout    time.Duration
}

type Service struct {
	accounts     Accounts
	ledger       Ledger
	llm          llm.Client
	recorder     storage.Recorder
	hospitals    HospitalFinder
	systemPrompt string
	timeout      time.Duration
	locks        *keyedMutex
	now          func() time.Time
}

func New(cfg Config) (*Service, error) {
	if cfg.Accounts == nil || cfg.Ledger == nil {
		return nil, errors.New("triage: accounts and ledger are required")
	}
	if cfg.LLM == nil {
		cfg.LLM = llm.Unconfigured{}
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = SystemPrompt
	}
	if cfg.AITimeout <= 0 {
		cfg.AITimeout = DefaultAITimeout
	}
	return &Service{
		accounts:     cfg.Accounts,
		ledger:       cfg.Ledger,
		llm:          cfg.LLM,
		recorder:     cfg.Recorder,
		hospitals:    cfg.Hospitals,
		systemPrompt: cfg.SystemPrompt,
		timeout:      cfg.AITimeout,
		locks:        newKeyedMutex(),
		now:          time.Now,
	}, nil
}

// Result is the outcome of one conversation turn.
type Result struct {
	Reply       string            `json:"reply"`
	Severity    wellness.Severity `json:"severity"`
	HealthScore int               `json:"health_score"`
}

// Account summarizes a user after signup or login.
type Account struct {
	Username    string `json:"username"`
	HealthScore int    `json:"health_score"`
	NeedsQuiz   bool   `json:"needs_quiz"`
}

func accountOf(u auth.User) Account {
	return Account{Username: u.Username, HealthScore: u.HealthScore, NeedsQuiz: wellness.NeedsQuiz(u.HealthScore)}
}

func (s *Service) Signup(username, password string) (Account, error) {
	u, err := s.accounts.Signup(username, password)
	if err != nil {
		return Account{}, accountError(err)
	}
	return accountOf(u), nil
}

func (s *Service) Login(username, password string) (Account, error) {
	u, err := s.accounts.Login(username, password)
	if err != nil {
		return Account{}, accountError(err)
	}
	return accountOf(u), nil
}

func accountError(err error) error {
	switch {
	case errors.Is(err, auth.ErrInvalidInput):
		return Errorf(KindInvalidInput, err, strings.TrimPrefix(err.Error(), auth.ErrInvalidInput.Error()+": "))
	case errors.Is(err, auth.ErrUserExists):
		return Errorf(KindDuplicateUser, err, "Username already exists")
	case errors.Is(err, auth.ErrInvalidCredentials):
		return Errorf(KindInvalidCredentials, err, "Invalid credentials")
	default:
		return Errorf(KindInternal, err, "Account storage unavailable")
	}
}

// HandleSymptom runs one conversation turn for username. Score and
// history are written only after the reply has been classified; the AI
// call itself happens outside the per-user lock.
func (s *Service) HandleSymptom(ctx context.Context, username, symptom string) (Result, error) {
	symptom = strings.TrimSpace(symptom)
	if symptom == "" {
		return Result{}, Errorf(KindInvalidInput, nil, "Symptom required")
	}
	if _, err := s.user(username); err != nil {
		return Result{}, err
	}

	resp, err := s.generate(ctx, symptom)
	if err != nil {
		log.Printf("❌ AI call failed for %s: %v", username, err)
		return Result{}, err
	}
	reply := resp.Content
	sev := wellness.Classify(reply)

	unlock := s.locks.Lock(username)
	defer unlock()

	var before, after int
	err = s.accounts.Update(username, func(u *auth.User) error {
		before = u.HealthScore
		after = wellness.Transition(before, sev)
		u.HealthScore = after
		return nil
	})
	if err != nil {
		return Result{}, s.storeError(err)
	}

	rec := history.NewRecord(username, symptom, reply, sev, s.now())
	if err := s.ledger.Append(rec); err != nil {
		s.revertScore(username, after, before)
		return Result{}, Errorf(KindInternal, err, "Could not save history")
	}

	s.audit(storage.Event{
		Timestamp:        s.now().UTC(),
		Kind:             storage.KindTurn,
		Username:         username,
		Severity:         string(sev),
		ScoreBefore:      before,
		ScoreAfter:       after,
		Model:            resp.Model,
		PromptTokens:     resp.PromptTokens,
		CompletionTokens: resp.CompletionTokens,
		TotalTokens:      resp.TotalTokens,
	})
	return Result{Reply: reply, Severity: sev, HealthScore: after}, nil
}

func (s *Service) generate(ctx context.Context, symptom string) (llm.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.llm.Generate(ctx, []llm.Message{
		{Role: "system", Content: s.systemPrompt},
		{Role: "user", Content: symptomPrefix + symptom},
	})
	switch {
	case err == nil:
	case errors.Is(err, llm.ErrEmptyResponse):
		return llm.Response{}, Errorf(KindEmptyAIResponse, err, "Empty response from AI. Check API key and model name.")
	case errors.Is(err, llm.ErrNotConfigured):
		return llm.Response{}, Errorf(KindAIService, err, "AI service is not configured")
	case errors.Is(err, context.DeadlineExceeded):
		return llm.Response{}, Errorf(KindAIService, err, "AI service timed out. Please try again.")
	default:
		return llm.Response{}, Errorf(KindAIService, err, fmt.Sprintf("AI error: %v", err))
	}
	resp.Content = strings.TrimSpace(resp.Content)
	if resp.Content == "" {
		return llm.Response{}, Errorf(KindEmptyAIResponse, llm.ErrEmptyResponse, "Empty response from AI. Check API key and model name.")
	}
	return resp, nil
}

// revertScore undoes a score write whose history append failed, unless
// something else has changed the score since.
func (s *Service) revertScore(username string, written, previous int) {
	err := s.accounts.Update(username, func(u *auth.User) error {
		if u.HealthScore == written {
			u.HealthScore = previous
		}
		return nil
	})
	if err != nil {
		log.Printf("⚠️ could not revert score for %s: %v", username, err)
	}
}

// SubmitQuiz scores raw answers and replaces the user's score with the
// result. The ledger's global mirror is overwritten as well.
func (s *Service) SubmitQuiz(ctx context.Context, username string, raw []any) (int, error) {
	if _, err := s.user(username); err != nil {
		return 0, err
	}
	answers, err := wellness.ParseAnswers(raw)
	if err != nil {
		return 0, quizError(err)
	}
	score, err := wellness.ScoreQuiz(answers)
	if err != nil {
		return 0, quizError(err)
	}

	unlock := s.locks.Lock(username)
	defer unlock()

	var before int
	err = s.accounts.Update(username, func(u *auth.User) error {
		before = u.HealthScore
		u.HealthScore = score
		return nil
	})
	if err != nil {
		return 0, s.storeError(err)
	}
	if err := s.ledger.SetGlobalScore(score); err != nil {
		log.Printf("⚠️ could not mirror quiz score for %s: %v", username, err)
	}

	s.audit(storage.Event{
		Timestamp:   s.now().UTC(),
		Kind:        storage.KindQuiz,
		Username:    username,
		ScoreBefore: before,
		ScoreAfter:  score,
	})
	return score, nil
}

func quizError(err error) error {
	switch {
	case errors.Is(err, wellness.ErrInvalidInput):
		return Errorf(KindInvalidInput, err, "Please answer all questions")
	case errors.Is(err, wellness.ErrInvalidFormat):
		return Errorf(KindInvalidFormat, err, fmt.Sprintf("Invalid answer format: %v", err))
	default:
		return Errorf(KindInternal, err, "Could not score quiz")
	}
}

// Score returns the user's current wellness score.
func (s *Service) Score(ctx context.Context, username string) (int, error) {
	u, err := s.user(username)
	if err != nil {
		return 0, err
	}
	return u.HealthScore, nil
}

// NeedsQuiz reports whether username should be routed to the quiz.
func (s *Service) NeedsQuiz(ctx context.Context, username string) (bool, error) {
	score, err := s.Score(ctx, username)
	if err != nil {
		return false, err
	}
	return wellness.NeedsQuiz(score), nil
}

// HistoryView is a user's retained records and current score.
type HistoryView struct {
	Records     []history.Record `json:"history"`
	HealthScore int              `json:"health_score"`
}

func (s *Service) History(ctx context.Context, username string) (HistoryView, error) {
	u, err := s.user(username)
	if err != nil {
		return HistoryView{}, err
	}
	recs, err := s.ledger.ForUser(username)
	if err != nil {
		return HistoryView{}, Errorf(KindInternal, err, "Could not load history")
	}
	if recs == nil {
		recs = []history.Record{}
	}
	return HistoryView{Records: recs, HealthScore: u.HealthScore}, nil
}

// NearbyHospitals proxies the hospital lookup.
func (s *Service) NearbyHospitals(ctx context.Context, lat, lon *float64) ([]hospitals.Hospital, error) {
	if lat == nil || lon == nil {
		return nil, Errorf(KindInvalidInput, nil, "Latitude and longitude required")
	}
	if s.hospitals == nil {
		return nil, Errorf(KindUpstreamLookup, nil, "Hospital lookup is not configured")
	}
	if err := hospitals.ValidateCoordinates(*lat, *lon); err != nil {
		return nil, Errorf(KindInvalidInput, err, "Latitude and longitude out of range")
	}
	found, err := s.hospitals.Nearby(ctx, *lat, *lon)
	if err != nil {
		return nil, Errorf(KindUpstreamLookup, err, fmt.Sprintf("Error fetching hospitals: %v", err))
	}
	return found, nil
}

func (s *Service) user(username string) (auth.User, error) {
	if strings.TrimSpace(username) == "" {
		return auth.User{}, Errorf(KindUnauthenticated, nil, "Not authenticated")
	}
	u, err := s.accounts.Get(username)
	if err != nil {
		return auth.User{}, s.storeError(err)
	}
	return u, nil
}

func (s *Service) storeError(err error) error {
	if errors.Is(err, auth.ErrUserNotFound) {
		return Errorf(KindUnknownUser, err, "Unknown user")
	}
	return Errorf(KindInternal, err, "Account storage unavailable")
}

func (s *Service) audit(ev storage.Event) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.AppendInteraction(ev); err != nil {
		log.Printf("⚠️ failed to record %s event for %s: %v", ev.Kind, ev.Username, err)
	}
}
