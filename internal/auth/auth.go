package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"arogya/internal/wellness"
)

const (
	MinUsernameLen = 3
	MinPasswordLen = 4
	// bcrypt only accepts this many bytes of input
	MaxPasswordBytes = 72

	// CreatedLayout is the timestamp format stored in User.Created.
	CreatedLayout = "2006-01-02 15:04"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrUserExists         = errors.New("username already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type User struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	HealthScore int    `json:"health_score"`
	Created     string `json:"created"`
}

// Repository is a keyed user record store. Update runs fn against the
// current record and persists the result as one step; implementations
// must not interleave two Updates for the same store.
type Repository interface {
	LoadAll() ([]User, error)
	Get(username string) (User, bool, error)
	Create(user User) error
	Update(username string, fn func(*User) error) error
}

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewWithRepo(repo Repository) (*Service, error) {
	if repo == nil {
		return nil, errors.New("auth: nil repository")
	}
	return &Service{repo: repo, now: time.Now}, nil
}

// Signup creates a user with a zero score, which routes them to the quiz.
func (s *Service) Signup(username, password string) (User, error) {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)
	if username == "" || password == "" {
		return User{}, fmt.Errorf("%w: username and password required", ErrInvalidInput)
	}
	if len(username) < MinUsernameLen {
		return User{}, fmt.Errorf("%w: username must be at least %d characters", ErrInvalidInput, MinUsernameLen)
	}
	if len(password) < MinPasswordLen {
		return User{}, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, MinPasswordLen)
	}
	if len(password) > MaxPasswordBytes {
		return User{}, fmt.Errorf("%w: password must be at most %d bytes", ErrInvalidInput, MaxPasswordBytes)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}
	u := User{
		Username:    username,
		Password:    string(hash),
		HealthScore: 0,
		Created:     s.now().Format(CreatedLayout),
	}
	if err := s.repo.Create(u); err != nil {
		return User{}, err
	}
	return u, nil
}

// Login checks the credentials. Records carried over from the plaintext
// data file are accepted once and rehashed.
func (s *Service) Login(username, password string) (User, error) {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)
	if username == "" || password == "" {
		return User{}, fmt.Errorf("%w: username and password required", ErrInvalidInput)
	}
	u, ok, err := s.repo.Get(username)
	if err != nil {
		return User{}, err
	}
	if !ok {
		return User{}, ErrInvalidCredentials
	}
	if isHash(u.Password) {
		if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) != nil {
			return User{}, ErrInvalidCredentials
		}
		return u, nil
	}
	if subtle.ConstantTimeCompare([]byte(u.Password), []byte(password)) != 1 {
		return User{}, ErrInvalidCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("⚠️ could not rehash legacy password for %s: %v", username, err)
		return u, nil
	}
	if err := s.repo.Update(username, func(rec *User) error {
		rec.Password = string(hash)
		return nil
	}); err != nil {
		log.Printf("⚠️ could not store rehashed password for %s: %v", username, err)
		return u, nil
	}
	u.Password = string(hash)
	return u, nil
}

func (s *Service) Get(username string) (User, error) {
	u, ok, err := s.repo.Get(username)
	if err != nil {
		return User{}, err
	}
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

// Update forwards to the repository; see Repository.Update.
func (s *Service) Update(username string, fn func(*User) error) error {
	return s.repo.Update(username, fn)
}

// SetScore replaces the stored score outright.
func (s *Service) SetScore(username string, score int) error {
	return s.repo.Update(username, func(u *User) error {
		u.HealthScore = score
		return nil
	})
}

func (s *Service) List() ([]User, error) {
	return s.repo.LoadAll()
}

// Normalize enforces the score bounds on a loaded or updated record.
func Normalize(u User) User {
	u.HealthScore = wellness.ClampInt(u.HealthScore)
	return u
}

func isHash(p string) bool {
	return strings.HasPrefix(p, "$2a$") || strings.HasPrefix(p, "$2b$") || strings.HasPrefix(p, "$2y$")
}
