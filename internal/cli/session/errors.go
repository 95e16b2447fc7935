package session

import (
	"errors"
	"fmt"
)

// LoginErrorKind classifies why a login attempt failed
type LoginErrorKind int

const (
	// NotReady means no CSRF token was available; no request was sent
	NotReady LoginErrorKind = iota + 1
	// InvalidCredentials is a 400 or 401 from the login endpoint
	InvalidCredentials
	// StaleCSRF is a 403: the security token must be refreshed
	StaleCSRF
	// Unavailable covers 404, 5xx and network failures
	Unavailable
)

func (k LoginErrorKind) String() string {
	switch k {
	case NotReady:
		return "not_ready"
	case InvalidCredentials:
		return "invalid_credentials"
	case StaleCSRF:
		return "stale_csrf"
	case Unavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// LoginError is returned by Controller.Login
type LoginError struct {
	Kind    LoginErrorKind
	Message string
	Err     error
}

func (e *LoginError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *LoginError) Unwrap() error { return e.Err }

// KindOf returns the login error kind carried by err, or 0
func KindOf(err error) LoginErrorKind {
	var lerr *LoginError
	if errors.As(err, &lerr) {
		return lerr.Kind
	}
	return 0
}
