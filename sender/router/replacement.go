package router

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Cogwheel-Validator/spectra-sender/sender/models"
)

// reconcile waits on the submitted tx in the background. Each replacement gets
// its own record and watcher, and is waited on in turn, so the lineage forms a
// chain back to the original submission.
func (s *Sender) reconcile(sess *Session, sc *SendContext, tx models.RawTx) {
	args := models.WaitArgs{
		NetworkName:     sc.Source.Slug,
		DestNetworkName: sc.Destination.Slug,
		Token:           sc.Token,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		current := tx
		for {
			res, err := s.waiter.WaitForTransaction(s.bgCtx, current, args)
			if err != nil {
				if s.bgCtx.Err() == nil {
					senderLog.Warn().Err(err).Str("tx", current.Hash).Msg("Waiting for transaction failed")
				}
				return
			}

			if res.Replacement == nil {
				pending := false
				if _, _, err := s.history.UpdateTransaction(current.Hash, models.TransferUpdate{Pending: &pending}); err != nil {
					senderLog.Error().Err(err).Str("tx", current.Hash).Msg("Failed to mark transaction mined")
				}
				return
			}

			replacement := *res.Replacement
			if err := s.applyReplacement(sess, sc, current, replacement); err != nil {
				senderLog.Error().
					Err(err).
					Str("tx", current.Hash).
					Str("replacement", replacement.Hash).
					Msg("Failed to reconcile replacement")
				return
			}
			current = replacement
		}
	}()
}

// applyReplacement records the replacement with a back reference to the tx it
// replaced and moves the destination watch over to it. The old subscription is
// released once the new one is installed.
func (s *Sender) applyReplacement(sess *Session, sc *SendContext, original, replacement models.RawTx) error {
	if replacement.Hash == "" {
		return errors.New("replacement has no hash")
	}
	if strings.EqualFold(replacement.Hash, original.Hash) {
		return fmt.Errorf("replacement %s has the same hash as the original", replacement.Hash)
	}

	record := NewTransferRecord(replacement, sc.Source, sc.Destination, sc.Token, s.now())
	record.ReplacedFrom = original.Hash
	if err := s.history.AddTransaction(record); err != nil {
		return fmt.Errorf("failed to add replacement to history: %w", err)
	}

	if sess.currentHash() == original.Hash {
		sess.setTransfer(record, StateReplaced)
	}
	s.watchDestination(sess, sc.watchKey(replacement.Hash))
	// the replaced hash never confirms
	s.releaseWatch(original.Hash)
	s.metrics.replacement(s.bgCtx, sc.Source.Slug)

	senderLog.Info().
		Str("session", sess.ID()).
		Str("replacedFrom", original.Hash).
		Str("tx", replacement.Hash).
		Msg("Transaction replaced")
	return nil
}
