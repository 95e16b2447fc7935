package auth

import (
	"net/http"
	"sync"
)

// CookieStore defines the interface for session cookie persistence
// This allows us to mock the keyring in tests
type CookieStore interface {
	SaveCookies(apiURL string, cookies []*http.Cookie) error
	LoadCookies(apiURL string) ([]*http.Cookie, error)
	DeleteCookies(apiURL string) error
}

// defaultCookieStore implements CookieStore using the OS keyring
type defaultCookieStore struct{}

var Default CookieStore = &defaultCookieStore{}

func (d *defaultCookieStore) SaveCookies(apiURL string, cookies []*http.Cookie) error {
	return SaveCookies(apiURL, cookies)
}

func (d *defaultCookieStore) LoadCookies(apiURL string) ([]*http.Cookie, error) {
	return LoadCookies(apiURL)
}

func (d *defaultCookieStore) DeleteCookies(apiURL string) error {
	return DeleteCookies(apiURL)
}

// MemoryStore keeps cookies in process memory
type MemoryStore struct {
	mu      sync.Mutex
	cookies map[string][]*http.Cookie
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{cookies: make(map[string][]*http.Cookie)}
}

func (m *MemoryStore) SaveCookies(apiURL string, cookies []*http.Cookie) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(cookies) == 0 {
		delete(m.cookies, apiURL)
		return nil
	}
	m.cookies[apiURL] = append([]*http.Cookie(nil), cookies...)
	return nil
}

func (m *MemoryStore) LoadCookies(apiURL string) ([]*http.Cookie, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cookies, ok := m.cookies[apiURL]
	if !ok {
		return nil, ErrNoSession
	}
	return append([]*http.Cookie(nil), cookies...), nil
}

func (m *MemoryStore) DeleteCookies(apiURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cookies, apiURL)
	return nil
}
