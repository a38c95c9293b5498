package gate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/Cogwheel-Validator/spectra-sender/sender/models"
	"github.com/Cogwheel-Validator/spectra-sender/sender/router"
	"github.com/rs/zerolog"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Str("component", "gate").Logger()
}

// SetLogger replaces the package logger.
func SetLogger(l zerolog.Logger) {
	log = l.With().Str("component", "gate").Logger()
}

var (
	ErrNoConfirmation = errors.New("no confirmation pending for session")
	ErrAlreadyPending = errors.New("a confirmation is already pending for session")
	// ErrCancelled is what Show returns when the user cancels. Its message
	// matches the router's cancellation pattern.
	ErrCancelled = errors.New("confirmation cancelled by user")
)

type decision int

const (
	approve decision = iota + 1
	cancel
	dismiss
)

type pending struct {
	req      router.ConfirmRequest
	opened   time.Time
	seq      uint64
	decision chan decision
}

// Gate holds confirmations until a caller approves or cancels them. Each
// session has at most one outstanding confirmation. It implements
// router.ConfirmationGate.
type Gate struct {
	mu      sync.Mutex
	seq     uint64
	pending map[string]*pending
}

// New creates an empty gate.
func New() *Gate {
	return &Gate{pending: make(map[string]*pending)}
}

// Show blocks until the confirmation for req.SessionID is decided. On approval
// OnConfirm runs on the caller's context and its result is returned. A
// dismissal returns a nil tx and a nil error.
func (g *Gate) Show(ctx context.Context, req router.ConfirmRequest) (*models.RawTx, error) {
	if req.OnConfirm == nil {
		return nil, errors.New("confirmation has no OnConfirm")
	}

	g.mu.Lock()
	if _, exists := g.pending[req.SessionID]; exists {
		g.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrAlreadyPending, req.SessionID)
	}
	g.seq++
	p := &pending{
		req:      req,
		opened:   time.Now(),
		seq:      g.seq,
		decision: make(chan decision, 1),
	}
	g.pending[req.SessionID] = p
	g.mu.Unlock()

	log.Debug().Str("session", req.SessionID).Str("kind", req.Kind).Msg("Confirmation opened")

	defer g.remove(req.SessionID, p)

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
	case d := <-p.decision:
		switch d {
		case approve:
			log.Info().
				Str("session", req.SessionID).
				Dur("waited", time.Since(p.opened)).
				Msg("Confirmation approved")
			return req.OnConfirm(ctx)
		case cancel:
			log.Info().Str("session", req.SessionID).Msg("Confirmation cancelled")
			return nil, ErrCancelled
		default:
			log.Info().Str("session", req.SessionID).Msg("Confirmation dismissed")
			return nil, nil
		}
	}
}

func (g *Gate) remove(sessionID string, p *pending) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pending[sessionID] == p {
		delete(g.pending, sessionID)
	}
}

func (g *Gate) decide(sessionID string, d decision) error {
	g.mu.Lock()
	p, ok := g.pending[sessionID]
	if ok {
		// a decided confirmation cannot be decided again
		delete(g.pending, sessionID)
	}
	g.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoConfirmation, sessionID)
	}
	p.decision <- d
	return nil
}

// Approve lets the pending send for sessionID go ahead.
func (g *Gate) Approve(sessionID string) error {
	return g.decide(sessionID, approve)
}

// Cancel rejects the pending send for sessionID.
func (g *Gate) Cancel(sessionID string) error {
	return g.decide(sessionID, cancel)
}

// Dismiss closes the pending confirmation without an answer.
func (g *Gate) Dismiss(sessionID string) error {
	return g.decide(sessionID, dismiss)
}

// Pending lists the undecided confirmations, oldest first.
func (g *Gate) Pending() []models.PendingConfirmation {
	g.mu.Lock()
	list := make([]*pending, 0, len(g.pending))
	for _, p := range g.pending {
		list = append(list, p)
	}
	g.mu.Unlock()

	sort.Slice(list, func(i, j int) bool { return list[i].seq < list[j].seq })

	out := make([]models.PendingConfirmation, 0, len(list))
	for _, p := range list {
		out = append(out, models.PendingConfirmation{
			SessionID: p.req.SessionID,
			Kind:      p.req.Kind,
			Input:     p.req.Input,
		})
	}
	return out
}
