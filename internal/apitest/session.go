package apitest

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	sessionCookie = "sessionid"
	csrfCookie    = "csrftoken"
	csrfHeader    = "X-CSRFToken"
)

// sessionClaims is the payload of the signed sessionid cookie
type sessionClaims struct {
	UserID     int64  `json:"user_id"`
	Username   string `json:"username"`
	Generation int    `json:"gen"`
	jwt.RegisteredClaims
}

func randomToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("failed to read random bytes: %v", err))
	}
	return hex.EncodeToString(b)
}

func (s *Server) signSession(u *userRow) (string, error) {
	s.mu.Lock()
	gen := s.generation
	s.mu.Unlock()

	claims := sessionClaims{
		UserID:     u.ID,
		Username:   u.Username,
		Generation: gen,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        randomToken()[:16],
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(2 * time.Hour)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// parseSession validates the cookie value. Sessions from an older generation
// or explicitly logged out are rejected.
func (s *Server) parseSession(raw string) (*sessionClaims, error) {
	token, err := jwt.ParseWithClaims(raw, &sessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse session: %w", err)
	}

	claims, ok := token.Claims.(*sessionClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid session")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if claims.Generation != s.generation {
		return nil, fmt.Errorf("session expired")
	}
	if s.revokedSessions[claims.ID] {
		return nil, fmt.Errorf("session logged out")
	}
	return claims, nil
}

func (s *Server) revokeSession(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revokedSessions[id] = true
}

func (s *Server) issueCSRF() string {
	token := randomToken()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.csrfTokens[token] = true
	return token
}

func (s *Server) rotateCSRF(old string) string {
	s.mu.Lock()
	delete(s.csrfTokens, old)
	s.mu.Unlock()
	return s.issueCSRF()
}

func (s *Server) validCSRF(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.csrfTokens[token]
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func verifyPassword(password, hash string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
