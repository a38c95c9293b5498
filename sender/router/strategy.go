package router

import (
	"context"
	"fmt"

	"github.com/Cogwheel-Validator/spectra-sender/sender/models"
)

// transferStrategy builds the executor call for one path.
type transferStrategy interface {
	path() Path
	// buildSend checks the path's bounds and computes the fee adjusted options
	buildSend(sc *SendContext) (models.BridgeSend, error)
}

// PrePayment runs before a root network send. Nothing enables it by default.
type PrePayment func(ctx context.Context, sc *SendContext) error

func strategyFor(p Path) transferStrategy {
	switch p {
	case PathDirectToIntermediary:
		return directToIntermediary{}
	case PathIntermediaryToDirect:
		return intermediaryToDirect{}
	default:
		return intermediaryToIntermediary{}
	}
}

// runStrategy opens the confirmation gate for the send and returns the
// submitted tx, or nil when the user dismissed the dialog.
func (s *Sender) runStrategy(ctx context.Context, sess *Session, sc *SendContext, st transferStrategy) (*models.RawTx, error) {
	req := ConfirmRequest{
		SessionID: sc.SessionID,
		Kind:      "send",
		Input:     sc.confirmInput(),
		OnConfirm: func(ctx context.Context) (*models.RawTx, error) {
			sess.transition(StateSubmitting)

			send, err := st.buildSend(sc)
			if err != nil {
				return nil, err
			}

			// the wallet may have switched networks while the dialog was open
			if err := s.verifyNetwork(ctx, sc.Source); err != nil {
				return nil, err
			}

			if st.path() == PathDirectToIntermediary && s.prePayment != nil {
				if err := s.prePayment(ctx, sc); err != nil {
					return nil, fmt.Errorf("pre-payment failed: %w", err)
				}
			}

			senderLog.Debug().
				Str("session", sc.SessionID).
				Str("path", st.path().String()).
				Str("amount", send.Amount.Dec()).
				Str("amountOutMin", models.IntOrZero(send.Options.AmountOutMin).Dec()).
				Str("recipient", send.Options.Recipient).
				Msg("Calling bridge executor")

			tx, err := s.executor.Send(ctx, send)
			if err != nil {
				return nil, &ExecutorError{Path: st.path(), Err: err}
			}
			if tx == nil {
				return nil, &ExecutorError{Path: st.path(), Err: fmt.Errorf("executor returned no transaction")}
			}
			return tx, nil
		},
	}

	sess.transition(StateAwaitingConfirmation)
	return s.gate.Show(ctx, req)
}

// verifyNetwork checks the wallet is connected to the source network.
func (s *Sender) verifyNetwork(ctx context.Context, source models.Network) error {
	ok, err := s.wallet.CheckConnectedNetworkID(ctx, source.NetworkID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWrongNetwork, err)
	}
	if !ok {
		return fmt.Errorf("%w: expected network id %d", ErrWrongNetwork, source.NetworkID)
	}
	return nil
}

// guardFee rejects fees larger than the amount being sent.
func guardFee(sc *SendContext) error {
	if sc.TotalFee.Gt(sc.ParsedAmount) {
		return fmt.Errorf("fee %s exceeds amount %s: %w", sc.TotalFee.Dec(), sc.ParsedAmount.Dec(), ErrFeeExceedsAmount)
	}
	return nil
}
