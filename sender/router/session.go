package router

import (
	"sync"

	"github.com/Cogwheel-Validator/spectra-sender/sender/models"
)

// State is where a send invocation is in its lifecycle.
type State int

const (
	StateIdle State = iota
	StateValidating
	StateAwaitingConfirmation
	StateSubmitting
	StatePending
	StateReplaced // still pending, the live tx is a replacement
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateAwaitingConfirmation:
		return "awaiting_confirmation"
	case StateSubmitting:
		return "submitting"
	case StatePending:
		return "pending"
	case StateReplaced:
		return "replaced"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

func (s State) terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Session is the observable state of one send invocation: what the UI polls.
// Background watchers keep updating it after Send returns.
type Session struct {
	id string

	mu        sync.RWMutex
	state     State
	path      string
	sending   bool
	cancelled bool
	errMsg    string
	errKind   ErrorKind
	transfer  *models.TransferRecord
}

// SessionSnapshot is a copy of a session's state.
type SessionSnapshot struct {
	ID        string
	State     State
	Path      string
	Sending   bool
	Cancelled bool
	Error     string
	ErrorKind ErrorKind
	Transfer  *models.TransferRecord
}

func NewSession(id string) *Session {
	return &Session{id: id}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Snapshot() SessionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := SessionSnapshot{
		ID:        s.id,
		State:     s.state,
		Path:      s.path,
		Sending:   s.sending,
		Cancelled: s.cancelled,
		Error:     s.errMsg,
		ErrorKind: s.errKind,
	}
	if s.transfer != nil {
		tx := *s.transfer
		snap.Transfer = &tx
	}
	return snap
}

// begin resets the session for a new invocation.
func (s *Session) begin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateIdle
	s.path = ""
	s.cancelled = false
	s.errMsg = ""
	s.errKind = KindNone
	s.transfer = nil
}

func (s *Session) transition(to State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.terminal() {
		return
	}
	senderLog.Debug().
		Str("session", s.id).
		Str("from", s.state.String()).
		Str("to", to.String()).
		Msg("Session transition")
	s.state = to
}

func (s *Session) setPath(p Path) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.path = p.String()
}

func (s *Session) setSending(sending bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sending = sending
}

func (s *Session) fail(msg string, kind ErrorKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateFailed
	s.errMsg = msg
	s.errKind = kind
}

// cancel ends the session without surfacing an error.
func (s *Session) cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateFailed
	s.cancelled = true
}

func (s *Session) setTransfer(record models.TransferRecord, state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.terminal() {
		return
	}
	s.transfer = &record
	s.state = state
}

// complete marks the session done if record is still the live transfer.
func (s *Session) complete(record models.TransferRecord) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.transfer == nil || s.transfer.Hash != record.Hash || s.state.terminal() {
		return false
	}
	s.transfer = &record
	s.state = StateCompleted
	return true
}

// currentHash returns the hash of the live transfer, if any.
func (s *Session) currentHash() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.transfer == nil {
		return ""
	}
	return s.transfer.Hash
}
