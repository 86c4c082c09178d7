package authclient

import "sync"

// TokenStore holds the access token for the running process. It never
// persists anything; Credentials keeps the durable copies in step.
type TokenStore struct {
	mu    sync.RWMutex
	token string
}

func NewTokenStore() *TokenStore {
	return &TokenStore{}
}

func (s *TokenStore) Set(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

func (s *TokenStore) Clear() {
	s.Set("")
}

func (s *TokenStore) Get() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.token != ""
}
