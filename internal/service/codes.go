package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"
	"time"
)

const codeTTL = 5 * time.Minute

type codeEntry struct {
	code      string
	expiresAt time.Time
}

// CodeStore holds out-of-band verification codes in memory. Codes expire
// after five minutes and are consumed on first successful verification.
type CodeStore struct {
	mu    sync.Mutex
	codes map[string]codeEntry
}

func NewCodeStore() *CodeStore {
	return &CodeStore{codes: make(map[string]codeEntry)}
}

// Issue generates and stores a six digit code for the phone.
func (s *CodeStore) Issue(phone string) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	code := fmt.Sprintf("%06d", n.Int64())

	s.mu.Lock()
	defer s.mu.Unlock()
	s.prune()
	s.codes[phone] = codeEntry{code: code, expiresAt: time.Now().Add(codeTTL)}
	return code, nil
}

// Verify checks the code for the phone and consumes it on match.
func (s *CodeStore) Verify(phone, code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.codes[phone]
	if !ok || time.Now().After(entry.expiresAt) {
		delete(s.codes, phone)
		return false
	}
	if entry.code != code {
		return false
	}
	delete(s.codes, phone)
	return true
}

// prune drops expired entries; called with the lock held.
func (s *CodeStore) prune() {
	now := time.Now()
	for phone, entry := range s.codes {
		if now.After(entry.expiresAt) {
			delete(s.codes, phone)
		}
	}
}
