package workflow

// SessionTracker decides whether an AI agent step continues the previous
// agent conversation. The first agent step of a run starts a fresh session;
// every later one continues it.
type SessionTracker struct {
	first bool
}

// NewSessionTracker creates a tracker for a new run.
func NewSessionTracker() *SessionTracker {
	return &SessionTracker{first: true}
}

// Next returns the continue directive for the next AI agent step.
func (s *SessionTracker) Next() bool {
	cont := !s.first
	s.first = false
	return cont
}
