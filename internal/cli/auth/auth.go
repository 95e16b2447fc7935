package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/zalando/go-keyring"
)

const (
	service = "taskdesk-cli"
)

// ErrNoSession is returned when no cookies are stored for a deployment
var ErrNoSession = errors.New("no stored session. Please run 'taskdesk login' first")

// storedCookie is the persisted shape of one cookie
type storedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// getKeyringKey returns a unique key for storing session cookies per deployment
func getKeyringKey(apiURL string) string {
	return fmt.Sprintf("session-%s", apiURL)
}

// SaveCookies persists the session cookies in the OS keychain/credential manager
func SaveCookies(apiURL string, cookies []*http.Cookie) error {
	if len(cookies) == 0 {
		return DeleteCookies(apiURL)
	}
	data, err := encodeCookies(cookies)
	if err != nil {
		return err
	}
	if err := keyring.Set(service, getKeyringKey(apiURL), data); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// LoadCookies retrieves the session cookies from the OS keychain/credential manager
func LoadCookies(apiURL string) ([]*http.Cookie, error) {
	data, err := keyring.Get(service, getKeyringKey(apiURL))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return decodeCookies(data)
}

// DeleteCookies removes the session cookies from the OS keychain/credential manager
func DeleteCookies(apiURL string) error {
	if err := keyring.Delete(service, getKeyringKey(apiURL)); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil // Already deleted
		}
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func encodeCookies(cookies []*http.Cookie) (string, error) {
	stored := make([]storedCookie, 0, len(cookies))
	for _, c := range cookies {
		stored = append(stored, storedCookie{Name: c.Name, Value: c.Value})
	}
	data, err := json.Marshal(stored)
	if err != nil {
		return "", fmt.Errorf("failed to encode session: %w", err)
	}
	return string(data), nil
}

func decodeCookies(data string) ([]*http.Cookie, error) {
	var stored []storedCookie
	if err := json.Unmarshal([]byte(data), &stored); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	cookies := make([]*http.Cookie, 0, len(stored))
	for _, s := range stored {
		cookies = append(cookies, &http.Cookie{Name: s.Name, Value: s.Value, Path: "/"})
	}
	return cookies, nil
}
