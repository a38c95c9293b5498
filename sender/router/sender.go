package router

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/Cogwheel-Validator/spectra-sender/sender/models"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var senderLog zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	senderLog = zerolog.New(out).With().Timestamp().Str("component", "sender").Logger()
}

// SetLogger replaces the package logger.
func SetLogger(l zerolog.Logger) {
	senderLog = l.With().Str("component", "sender").Logger()
}

// Collaborators are the external systems a Sender drives.
type Collaborators struct {
	Wallet   Wallet
	Executor BridgeExecutor
	Gate     ConfirmationGate
	History  HistoryStore
	Watcher  CompletionWatcher
	Waiter   TxWaiter
}

func (c Collaborators) validate() error {
	switch {
	case c.Wallet == nil:
		return errors.New("wallet is required")
	case c.Executor == nil:
		return errors.New("bridge executor is required")
	case c.Gate == nil:
		return errors.New("confirmation gate is required")
	case c.History == nil:
		return errors.New("history store is required")
	case c.Watcher == nil:
		return errors.New("completion watcher is required")
	case c.Waiter == nil:
		return errors.New("tx waiter is required")
	}
	return nil
}

// Option configures a Sender.
type Option func(*Sender)

// WithErrorFormatter sets how failures are turned into user facing messages.
func WithErrorFormatter(f ErrorFormatter) Option {
	return func(s *Sender) { s.formatter = f }
}

// WithPrePayment sets a payment to run before root network sends.
func WithPrePayment(p PrePayment) Option {
	return func(s *Sender) { s.prePayment = p }
}

// WithMeterProvider records send metrics on mp instead of the global provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Sender) { s.meterProvider = mp }
}

// WithClock overrides the clock used for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Sender) { s.now = now }
}

// Sender orchestrates cross-chain sends: it picks the transfer path, runs the
// confirm/submit protocol and keeps the transfer record in sync with what
// happens on chain afterwards.
type Sender struct {
	wallet   Wallet
	executor BridgeExecutor
	gate     ConfirmationGate
	history  HistoryStore
	watcher  CompletionWatcher
	waiter   TxWaiter

	formatter  ErrorFormatter
	prePayment PrePayment
	now        func() time.Time
	metrics    *sendMetrics
	tracer     trace.Tracer

	meterProvider metric.MeterProvider

	// background listeners run on bgCtx, not on the request context
	bgCtx    context.Context
	bgCancel context.CancelFunc
	wg       sync.WaitGroup

	// destination subscriptions by lowercased tx hash
	watchMu sync.Mutex
	watches map[string]*subscription
}

// NewSender creates a Sender over the given collaborators.
func NewSender(c Collaborators, opts ...Option) (*Sender, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	bgCtx, bgCancel := context.WithCancel(context.Background())
	s := &Sender{
		wallet:    c.Wallet,
		executor:  c.Executor,
		gate:      c.Gate,
		history:   c.History,
		watcher:   c.Watcher,
		waiter:    c.Waiter,
		formatter: defaultFormatter{},
		now:       time.Now,
		tracer:    otel.Tracer(instrumentationName),
		bgCtx:     bgCtx,
		bgCancel:  bgCancel,
		watches:   make(map[string]*subscription),

		meterProvider: otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.metrics = newSendMetrics(s.meterProvider)
	return s, nil
}

// Send runs one send invocation and records its progress on sess.
//
// Every failure is caught here once: it is classified, formatted into the
// session error and returned. A user cancelling the confirmation is not an
// error: the session ends without an error message and Send returns nil.
// The session's sending flag is cleared on every return path.
//
// Send returns once the transfer is submitted and recorded; destination and
// replacement tracking continue in the background.
func (s *Sender) Send(ctx context.Context, sess *Session, intent models.TransferIntent) (err error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "sender.Send", trace.WithAttributes(
		attribute.String("session", sess.ID()),
	))
	defer span.End()

	sess.begin()
	kind := KindNone
	defer func() {
		sess.setSending(false)
		s.metrics.send(ctx, sess.Snapshot().Path, kind, time.Since(start))
	}()

	err = s.send(ctx, sess, intent)
	if err == nil {
		return nil
	}

	kind = KindOf(err)
	if kind == KindUserCancelled {
		senderLog.Info().Err(err).Str("session", sess.ID()).Msg("Send cancelled")
		sess.cancel()
		span.SetAttributes(attribute.Bool("cancelled", true))
		return nil
	}

	sess.fail(s.formatter.Format(err, intent.Source), kind)
	span.RecordError(err)
	span.SetStatus(codes.Error, string(kind))
	senderLog.Error().
		Err(err).
		Str("session", sess.ID()).
		Str("kind", string(kind)).
		Msg("Send failed")
	return err
}

func (s *Sender) send(ctx context.Context, sess *Session, intent models.TransferIntent) error {
	if intent.Source == nil || intent.Destination == nil {
		return ErrMissingNetwork
	}
	sess.transition(StateValidating)

	if err := s.verifyNetwork(ctx, *intent.Source); err != nil {
		return err
	}
	if intent.CustomRecipient != "" && !ValidRecipient(intent.CustomRecipient) {
		return fmt.Errorf("%w: %s", ErrInvalidRecipient, intent.CustomRecipient)
	}

	signer, err := s.wallet.Signer(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoSigner, err)
	}
	if signer == nil {
		return ErrNoSigner
	}
	if intent.Token == nil {
		return ErrNoToken
	}

	amount, err := ParseAmount(intent.Amount, intent.Token.Decimals)
	if err != nil {
		return err
	}

	recipient := intent.CustomRecipient
	if recipient == "" {
		recipient, err = signer.Address(ctx)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrNoSigner, err)
		}
	}

	sc := newSendContext(sess.ID(), intent, amount, recipient)
	sess.setPath(sc.Path)
	sess.setSending(true)

	senderLog.Info().
		Str("session", sc.SessionID).
		Str("from", sc.Source.Slug).
		Str("to", sc.Destination.Slug).
		Str("token", sc.Token.Symbol).
		Str("amount", sc.Amount).
		Str("path", sc.Path.String()).
		Str("recipient", sc.Recipient).
		Msg("Sending transfer")

	tx, err := s.runStrategy(ctx, sess, sc, strategyFor(sc.Path))
	if err != nil {
		return err
	}
	if tx == nil {
		return ErrUserCancelled
	}

	_, record, err := HandleTransaction(s.history, *tx, sc.Source, sc.Destination, sc.Token, s.now())
	if err != nil {
		return err
	}
	senderLog.Info().
		Str("session", sc.SessionID).
		Str("tx", record.Hash).
		Str("path", sc.Path.String()).
		Msg("Transfer submitted")

	sess.setTransfer(record, StatePending)
	s.watchDestination(sess, sc.watchKey(record.Hash))
	s.reconcile(sess, sc, *tx)
	return nil
}

// Close stops all background listeners and waits for them to exit.
func (s *Sender) Close() {
	s.bgCancel()
	s.wg.Wait()
}

// Wait blocks until every background listener has finished on its own.
func (s *Sender) Wait() {
	s.wg.Wait()
}
