package rpc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"connectrpc.com/connect"
	"github.com/Cogwheel-Validator/spectra-sender/sender/config"
	"github.com/Cogwheel-Validator/spectra-sender/sender/gate"
	"github.com/Cogwheel-Validator/spectra-sender/sender/models"
	"github.com/Cogwheel-Validator/spectra-sender/sender/router"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
)

// Confirmations is the user facing side of the confirmation gate.
type Confirmations interface {
	Approve(sessionID string) error
	Cancel(sessionID string) error
	Pending() []models.PendingConfirmation
}

// TransferHistory is the read side of the transfer history.
type TransferHistory interface {
	List(limit int) []models.TransferRecord
	Clear() error
}

// DefaultSessionRetention is how long a finished session stays readable.
const DefaultSessionRetention = time.Hour

// SenderServer implements SenderServiceHandler. Each Send starts a session
// that runs in the background; clients poll GetSession and answer the
// confirmation with Confirm or Cancel. Finished sessions are dropped once
// the retention period has passed.
type SenderServer struct {
	sender          *router.Sender
	confirmations   Confirmations
	history         TransferHistory
	networks        *config.Networks
	defaultDeadline time.Duration
	retention       time.Duration
	now             func() time.Time

	mu       sync.RWMutex
	sessions map[string]*sessionEntry

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type sessionEntry struct {
	sess *router.Session
	// finishedAt is zero until the session is seen in a final state
	finishedAt time.Time
}

var _ SenderServiceHandler = (*SenderServer)(nil)

// SenderServerOption configures a SenderServer.
type SenderServerOption func(*SenderServer)

// WithSessionRetention sets how long completed and failed sessions stay
// readable through GetSession.
func WithSessionRetention(d time.Duration) SenderServerOption {
	return func(s *SenderServer) {
		if d > 0 {
			s.retention = d
		}
	}
}

// NewSenderServer creates a SenderServer. defaultDeadline applies to sends
// without an explicit deadline.
func NewSenderServer(
	sender *router.Sender,
	confirmations Confirmations,
	history TransferHistory,
	networks *config.Networks,
	defaultDeadline time.Duration,
	opts ...SenderServerOption,
) *SenderServer {
	ctx, cancel := context.WithCancel(context.Background())
	s := &SenderServer{
		sender:          sender,
		confirmations:   confirmations,
		history:         history,
		networks:        networks,
		defaultDeadline: defaultDeadline,
		retention:       DefaultSessionRetention,
		now:             time.Now,
		sessions:        make(map[string]*sessionEntry),
		ctx:             ctx,
		cancel:          cancel,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.wg.Add(1)
	go s.pruneLoop()
	return s
}

// Close cancels running sends and waits for them to return. Sends blocked on
// a confirmation end as cancelled.
func (s *SenderServer) Close() {
	s.cancel()
	s.wg.Wait()
}

// Send validates the request and starts a send session.
func (s *SenderServer) Send(
	ctx context.Context,
	req *connect.Request[models.SendRequest],
) (*connect.Response[models.SendResponse], error) {
	intent, err := s.intentFrom(req.Msg)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	sess := router.NewSession(uuid.NewString())
	s.mu.Lock()
	s.sessions[sess.ID()] = &sessionEntry{sess: sess}
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		// failures are recorded on the session
		_ = s.sender.Send(s.ctx, sess, intent)
	}()

	return connect.NewResponse(&models.SendResponse{SessionID: sess.ID()}), nil
}

// intentFrom resolves slugs and symbols against the networks file. Unknown
// networks and tokens are left nil so the send fails with the matching
// session error.
func (s *SenderServer) intentFrom(msg *models.SendRequest) (models.TransferIntent, error) {
	intent := models.TransferIntent{
		Amount:            msg.Amount,
		CustomRecipient:   msg.CustomRecipient,
		EstimatedReceived: msg.EstimatedReceived,
	}
	if network, ok := s.networks.Network(msg.FromNetwork); ok {
		intent.Source = network
	}
	if network, ok := s.networks.Network(msg.ToNetwork); ok {
		intent.Destination = network
	}
	if token, ok := s.networks.Token(msg.TokenSymbol); ok {
		intent.Token = token
	}

	var err error
	if intent.AmountOutMin, err = optionalUint(msg.AmountOutMin); err != nil {
		return intent, fmt.Errorf("amount_out_min: %w", err)
	}
	if intent.IntermediaryAmountOutMin, err = optionalUint(msg.IntermediaryAmountOutMin); err != nil {
		return intent, fmt.Errorf("intermediary_amount_out_min: %w", err)
	}
	if intent.TotalFee, err = optionalUint(msg.TotalFee); err != nil {
		return intent, fmt.Errorf("total_fee: %w", err)
	}

	window := s.defaultDeadline
	if msg.DeadlineMinutes != nil {
		if *msg.DeadlineMinutes <= 0 {
			return intent, errors.New("deadline_minutes must be positive")
		}
		window = time.Duration(*msg.DeadlineMinutes) * time.Minute
	}
	now := s.now
	intent.Deadline = func() uint64 {
		return uint64(now().Add(window).Unix())
	}
	return intent, nil
}

func optionalUint(s string) (*uint256.Int, error) {
	if s == "" {
		return nil, nil
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("invalid base unit amount %q: %w", s, err)
	}
	return v, nil
}

func (s *SenderServer) session(id string) (*router.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.sessions[id]
	if !ok {
		return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("session %s not found", id))
	}
	return entry.sess, nil
}

func (s *SenderServer) pruneLoop() {
	defer s.wg.Done()

	interval := min(max(s.retention/2, time.Millisecond), time.Minute)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.prune()
		}
	}
}

// prune drops sessions that have been final for longer than the retention
// period. The clock starts when a sweep first sees the session final.
func (s *SenderServer) prune() {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, entry := range s.sessions {
		snap := entry.sess.Snapshot()
		if snap.Sending || (snap.State != router.StateCompleted && snap.State != router.StateFailed) {
			entry.finishedAt = time.Time{}
			continue
		}
		if entry.finishedAt.IsZero() {
			entry.finishedAt = now
			continue
		}
		if now.Sub(entry.finishedAt) >= s.retention {
			delete(s.sessions, id)
			Logger.Debug().Str("session", id).Str("state", snap.State.String()).Msg("Session pruned")
		}
	}
}

func (s *SenderServer) Confirm(
	ctx context.Context,
	req *connect.Request[models.SessionRequest],
) (*connect.Response[models.Empty], error) {
	if err := s.confirmations.Approve(req.Msg.SessionID); err != nil {
		return nil, gateError(err)
	}
	return connect.NewResponse(&models.Empty{}), nil
}

func (s *SenderServer) Cancel(
	ctx context.Context,
	req *connect.Request[models.SessionRequest],
) (*connect.Response[models.Empty], error) {
	if err := s.confirmations.Cancel(req.Msg.SessionID); err != nil {
		return nil, gateError(err)
	}
	return connect.NewResponse(&models.Empty{}), nil
}

func gateError(err error) error {
	if errors.Is(err, gate.ErrNoConfirmation) {
		return connect.NewError(connect.CodeNotFound, err)
	}
	return connect.NewError(connect.CodeInternal, err)
}

func (s *SenderServer) GetSession(
	ctx context.Context,
	req *connect.Request[models.SessionRequest],
) (*connect.Response[models.SessionResponse], error) {
	sess, err := s.session(req.Msg.SessionID)
	if err != nil {
		return nil, err
	}
	snap := sess.Snapshot()
	return connect.NewResponse(&models.SessionResponse{
		SessionID: snap.ID,
		State:     snap.State.String(),
		Path:      snap.Path,
		Sending:   snap.Sending,
		Cancelled: snap.Cancelled,
		Error:     snap.Error,
		ErrorKind: string(snap.ErrorKind),
		Transfer:  snap.Transfer,
	}), nil
}

func (s *SenderServer) ListPendingConfirmations(
	ctx context.Context,
	req *connect.Request[models.Empty],
) (*connect.Response[models.PendingConfirmationsResponse], error) {
	return connect.NewResponse(&models.PendingConfirmationsResponse{
		Confirmations: s.confirmations.Pending(),
	}), nil
}

func (s *SenderServer) ListTransfers(
	ctx context.Context,
	req *connect.Request[models.ListTransfersRequest],
) (*connect.Response[models.ListTransfersResponse], error) {
	if req.Msg.Limit < 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("limit must not be negative"))
	}
	return connect.NewResponse(&models.ListTransfersResponse{
		Transfers: s.history.List(req.Msg.Limit),
	}), nil
}

func (s *SenderServer) ClearTransfers(
	ctx context.Context,
	req *connect.Request[models.Empty],
) (*connect.Response[models.Empty], error) {
	if err := s.history.Clear(); err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(&models.Empty{}), nil
}
