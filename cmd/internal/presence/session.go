package presence

import (
	"errors"
	"log/slog"
	"sync"
)

// SessionState is the lifecycle state of one connection.
type SessionState uint8

const (
	// StateConnecting is the initial state: transport open, identity not yet bound.
	StateConnecting SessionState = iota
	// StateOpen means the identity handoff completed and the user is registered.
	StateOpen
	// StateClosed is terminal. The directory entry for this connection is gone.
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

var (
	// ErrSessionClosed is returned when identifying on a closed session.
	ErrSessionClosed = errors.New("presence: session closed")
	// ErrAlreadyIdentified is returned on a second identify for the same session.
	ErrAlreadyIdentified = errors.New("presence: session already identified")
)

// Session manages the lifecycle of one connection against the Directory.
//
// State machine: Connecting -> Open -> Closed (terminal).
// Close runs the deregistration exactly once no matter which close signal fires
// first (peer close, read failure, heartbeat failure, server shutdown), and a
// stale deregistration never evicts a newer registration for the same user.
type Session struct {
	log    *slog.Logger
	dir    *Directory
	client *Client

	mu     sync.Mutex
	state  SessionState
	userID string
}

// NewSession constructs a Session in the Connecting state.
func NewSession(log *slog.Logger, dir *Directory, client *Client) *Session {
	return &Session{log: log, dir: dir, client: client}
}

// Identify binds a verified user identity to the session and registers the
// connection in the Directory. The identity is trusted as-is: verification is
// the auth collaborator's job and happened before this call.
func (s *Session) Identify(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateClosed:
		return ErrSessionClosed
	case StateOpen:
		return ErrAlreadyIdentified
	}

	s.userID = userID
	s.state = StateOpen
	s.dir.Register(userID, s.client)

	s.log.Info("session.open", "user_id", userID, "conn_id", s.client.ConnID)
	return nil
}

// Close transitions to Closed, deregisters the connection, and signals the
// client goroutines to stop. Idempotent: concurrent close signals collapse
// into a single deregistration.
func (s *Session) Close() {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	wasOpen := s.state == StateOpen
	userID := s.userID
	s.state = StateClosed
	s.mu.Unlock()

	if wasOpen {
		// Compare-and-delete: a reconnect may already own the directory entry.
		s.dir.Unregister(userID, s.client.ConnID)
	}
	s.client.Close()

	s.log.Info("session.closed", "user_id", userID, "conn_id", s.client.ConnID)
}

// UserID returns the identity bound to the session, or "" before Identify.
func (s *Session) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// State returns the current lifecycle state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}
