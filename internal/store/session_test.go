package store

import (
	"errors"
	"testing"

	"github.com/efreitasn/papertrade/internal/domain"
)

func TestSessionStore_PutAndGet(t *testing.T) {
	s := NewSessionStore()
	sess := domain.NewSession("s1", "0xabc", 10000)

	s.Put(sess)

	got, err := s.Get("s1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.ID != "s1" || got.Wallet != "0xabc" {
		t.Errorf("Get() = %+v, want ID s1, Wallet 0xabc", got)
	}
}

func TestSessionStore_GetNotFound(t *testing.T) {
	s := NewSessionStore()

	_, err := s.Get("missing")
	if !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("Get() error = %v, want ErrSessionNotFound", err)
	}
}

func TestSessionStore_List(t *testing.T) {
	s := NewSessionStore()
	s.Put(domain.NewSession("s1", "", 10000))
	s.Put(domain.NewSession("s2", "", 10000))

	if got := len(s.List()); got != 2 {
		t.Errorf("List() length = %d, want 2", got)
	}
	if got := s.Len(); got != 2 {
		t.Errorf("Len() = %d, want 2", got)
	}
}

func TestSessionStore_PutReplaces(t *testing.T) {
	s := NewSessionStore()
	s.Put(domain.NewSession("s1", "first", 10000))
	s.Put(domain.NewSession("s1", "second", 10000))

	got, err := s.Get("s1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Wallet != "second" {
		t.Errorf("Wallet = %q, want second", got.Wallet)
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}
