// Package session keeps login sessions and Telegram chat links in a
// bbolt file.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

var (
	ErrNotFound = errors.New("session not found")
	ErrExpired  = errors.New("session expired")
)

var (
	sessionsBucket = []byte("sessions")
	chatsBucket    = []byte("chat_links")
)

type Session struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

type BoltStore struct {
	db  *bolt.DB
	ttl time.Duration
	now func() time.Time
}

func Open(path string, ttl time.Duration) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure session dir: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{sessionsBucket, chatsBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init session buckets: %w", err)
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &BoltStore{db: db, ttl: ttl, now: time.Now}, nil
}

func (s *BoltStore) Close() error { return s.db.Close() }

// Create starts a session for username and returns it.
func (s *BoltStore) Create(username string) (Session, error) {
	now := s.now().UTC()
	sess := Session{
		Token:     uuid.NewString(),
		Username:  username,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return Session{}, fmt.Errorf("encode session: %w", err)
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(sessionsBucket).Put([]byte(sess.Token), data)
	})
	if err != nil {
		return Session{}, fmt.Errorf("save session: %w", err)
	}
	return sess, nil
}

// Lookup returns the live session for token. Expired sessions are
// removed on sight.
func (s *BoltStore) Lookup(token string) (Session, error) {
	if token == "" {
		return Session{}, ErrNotFound
	}
	var sess Session
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(sessionsBucket).Get([]byte(token))
		if v == nil {
			return ErrNotFound
		}
		return json.Unmarshal(v, &sess)
	})
	if err != nil {
		return Session{}, err
	}
	if !s.now().Before(sess.ExpiresAt) {
		_ = s.Delete(token)
		return Session{}, ErrExpired
	}
	return sess, nil
}

func (s *BoltStore) Delete(token string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(sessionsBucket).Delete([]byte(token))
	})
}

// Purge drops every expired session and reports how many were removed.
func (s *BoltStore) Purge() (int, error) {
	now := s.now()
	removed := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(sessionsBucket)
		var stale [][]byte
		err := b.ForEach(func(k, v []byte) error {
			var sess Session
			if err := json.Unmarshal(v, &sess); err != nil || !now.Before(sess.ExpiresAt) {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		removed = len(stale)
		return nil
	})
	return removed, err
}

// LinkChat binds a Telegram chat to username.
func (s *BoltStore) LinkChat(chatID int64, username string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(chatsBucket).Put(chatKey(chatID), []byte(username))
	})
}

// ChatUser returns the username linked to chatID, if any.
func (s *BoltStore) ChatUser(chatID int64) (string, bool, error) {
	var username string
	err := s.db.View(func(tx *bolt.Tx) error {
		username = string(tx.Bucket(chatsBucket).Get(chatKey(chatID)))
		return nil
	})
	if err != nil {
		return "", false, err
	}
	return username, username != "", nil
}

func (s *BoltStore) UnlinkChat(chatID int64) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(chatsBucket).Delete(chatKey(chatID))
	})
}

func chatKey(id int64) []byte { return []byte(strconv.FormatInt(id, 10)) }
