package session

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTest(t *testing.T) *BoltStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "sessions.bolt"), time.Hour)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCreateLookupDelete(t *testing.T) {
	s := openTest(t)
	sess, err := s.Create("alice")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := s.Lookup(sess.Token)
	if err != nil || got.Username != "alice" {
		t.Fatalf("lookup: %+v err=%v", got, err)
	}
	if err := s.Delete(sess.Token); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Lookup(sess.Token); !errors.Is(err, ErrNotFound) {
		t.Fatalf("after delete: %v", err)
	}
	if _, err := s.Lookup(""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("empty token: %v", err)
	}
}

func TestExpiry(t *testing.T) {
	s := openTest(t)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }
	old, _ := s.Create("alice")
	fresh, _ := s.Create("bob")

	s.now = func() time.Time { return base.Add(30 * time.Minute) }
	fresh2, _ := s.Create("carol")

	s.now = func() time.Time { return base.Add(time.Hour) }
	if _, err := s.Lookup(old.Token); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected expiry, got %v", err)
	}
	n, err := s.Purge()
	if err != nil || n != 1 {
		t.Fatalf("purge: n=%d err=%v", n, err)
	}
	if _, err := s.Lookup(fresh.Token); !errors.Is(err, ErrNotFound) {
		t.Fatalf("bob should be purged: %v", err)
	}
	if got, err := s.Lookup(fresh2.Token); err != nil || got.Username != "carol" {
		t.Fatalf("carol: %+v err=%v", got, err)
	}
}

func TestChatLinks(t *testing.T) {
	s := openTest(t)
	if _, ok, err := s.ChatUser(42); ok || err != nil {
		t.Fatalf("unlinked: ok=%v err=%v", ok, err)
	}
	if err := s.LinkChat(42, "alice"); err != nil {
		t.Fatalf("link: %v", err)
	}
	if u, ok, _ := s.ChatUser(42); !ok || u != "alice" {
		t.Fatalf("linked: %q ok=%v", u, ok)
	}
	if err := s.UnlinkChat(42); err != nil {
		t.Fatalf("unlink: %v", err)
	}
	if _, ok, _ := s.ChatUser(42); ok {
		t.Fatalf("still linked")
	}
}
