// Package session holds the viewer's authentication state and the gate
// that decides whether a protected screen may load.
package session

import "github.com/makavanaraju78/Streamverse/internal/client"

// Session is an immutable value created at the composition root and
// replaced only by authentication results.
type Session struct {
	Authenticated bool
	Error         string
	Token         string
	Email         string
}

// Anonymous returns the unauthenticated session.
func Anonymous() Session {
	return Session{}
}

// FromLogin builds the session that follows a successful login.
func FromLogin(res client.LoginResult, email string) Session {
	if res.Email != "" {
		email = res.Email
	}
	return Session{
		Authenticated: res.Token != "",
		Token:         res.Token,
		Email:         email,
	}
}

// WithError returns a copy carrying an authentication error.
func (s Session) WithError(msg string) Session {
	s.Error = msg
	return s
}

// ClearError returns a copy with the error removed.
func (s Session) ClearError() Session {
	s.Error = ""
	return s
}

// Decision is the outcome of a Gate check.
type Decision int

const (
	// Allow lets the protected screen proceed.
	Allow Decision = iota
	// Deny keeps the screen in its denial state.
	Deny
)

// DeniedMessage is shown by protected screens for anonymous viewers.
const DeniedMessage = "You need to login to view your Watch Later list"

// Gate decides whether the viewer may proceed. It has no side effects.
func Gate(s Session) Decision {
	if !s.Authenticated {
		return Deny
	}
	return Allow
}
