package domain

import "time"

// SessionState of the terminal operator session.
type SessionState int

const (
	SessionLoggedOut SessionState = iota
	SessionAuthenticating
	SessionLoggedIn
)

func (s SessionState) String() string {
	switch s {
	case SessionLoggedOut:
		return "logged_out"
	case SessionAuthenticating:
		return "authenticating"
	case SessionLoggedIn:
		return "logged_in"
	}
	return "unknown"
}

var sessionTransitions = map[SessionState][]SessionState{
	SessionLoggedOut:      {SessionAuthenticating},
	SessionAuthenticating: {SessionLoggedIn, SessionLoggedOut},
	SessionLoggedIn:       {SessionAuthenticating, SessionLoggedOut},
}

// CanTransition reports whether moving from s to next is allowed.
func (s SessionState) CanTransition(next SessionState) bool {
	for _, allowed := range sessionTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Session struct {
	State    SessionState `json:"-"`
	Username string       `json:"username,omitempty"`
	Role     Role         `json:"role,omitempty"`
	Since    time.Time    `json:"since"`
}

func (s Session) StateName() string {
	return s.State.String()
}
