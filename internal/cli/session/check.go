package session

// CheckStatus tags the outcome of a session check
type CheckStatus int

const (
	// CheckAuthenticated means the server confirmed the session
	CheckAuthenticated CheckStatus = iota + 1
	// CheckNotAuthenticated is the expected answer for anonymous visitors
	CheckNotAuthenticated
	// CheckTransportError means no usable answer was received
	CheckTransportError
)

func (s CheckStatus) String() string {
	switch s {
	case CheckAuthenticated:
		return "authenticated"
	case CheckNotAuthenticated:
		return "not_authenticated"
	case CheckTransportError:
		return "transport_error"
	default:
		return "unknown"
	}
}

// CheckResult is the tagged result of CheckAuth. Session is set only for
// CheckAuthenticated and Err only for CheckTransportError.
type CheckResult struct {
	Status  CheckStatus
	Session Session
	Err     error
}

// Authenticated reports whether the server confirmed the session
func (r CheckResult) Authenticated() bool {
	return r.Status == CheckAuthenticated
}
