package router

import (
	"context"
	"strings"

	"github.com/Cogwheel-Validator/spectra-sender/sender/models"
)

// subscription is one live destination watch.
type subscription struct {
	cancel context.CancelFunc
}

// watchDestination installs a one-shot completion listener for key. The
// listener outlives the Send call and ends on its receipt, on release of its
// subscription, or on Close.
func (s *Sender) watchDestination(sess *Session, key models.WatchKey) {
	ctx, cancel := context.WithCancel(s.bgCtx)
	receipts, err := s.watcher.Watch(ctx, key)
	if err != nil {
		cancel()
		// the tx is already on chain, so a missing watcher is not a send failure
		senderLog.Warn().
			Err(err).
			Str("session", sess.ID()).
			Str("tx", key.TxHash).
			Msg("Failed to watch destination")
		return
	}

	sub := &subscription{cancel: cancel}
	s.watchMu.Lock()
	if prev, ok := s.watches[watchID(key.TxHash)]; ok {
		prev.cancel()
	}
	s.watches[watchID(key.TxHash)] = sub
	s.watchMu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.endWatch(key.TxHash, sub)
		select {
		case <-ctx.Done():
			return
		case receipt, ok := <-receipts:
			if !ok {
				senderLog.Debug().Str("tx", key.TxHash).Msg("Destination watch closed without receipt")
				return
			}
			s.applyReceipt(s.bgCtx, sess, key, receipt)
		}
	}()
}

func watchID(txHash string) string {
	return strings.ToLower(txHash)
}

// endWatch cancels sub and forgets it if it is still the live subscription
// for txHash.
func (s *Sender) endWatch(txHash string, sub *subscription) {
	sub.cancel()
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	if s.watches[watchID(txHash)] == sub {
		delete(s.watches, watchID(txHash))
	}
}

// releaseWatch drops the destination watch for a superseded tx.
func (s *Sender) releaseWatch(txHash string) {
	s.watchMu.Lock()
	sub, ok := s.watches[watchID(txHash)]
	if ok {
		delete(s.watches, watchID(txHash))
	}
	s.watchMu.Unlock()
	if ok {
		sub.cancel()
		senderLog.Debug().Str("tx", txHash).Msg("Destination watch released")
	}
}

// applyReceipt writes the destination hash unless one is already set.
func (s *Sender) applyReceipt(ctx context.Context, sess *Session, key models.WatchKey, receipt models.DestinationReceipt) {
	senderLog.Debug().
		Str("tx", key.TxHash).
		Str("destTx", receipt.TxHash).
		Msg("Destination receipt")

	destTxHash := receipt.TxHash
	pendingDest := false
	record, applied, err := s.history.UpdateTransaction(key.TxHash, models.TransferUpdate{
		DestTxHash:                     &destTxHash,
		PendingDestinationConfirmation: &pendingDest,
	})
	if err != nil {
		senderLog.Error().Err(err).Str("tx", key.TxHash).Msg("Failed to record destination receipt")
		return
	}
	if !applied {
		senderLog.Debug().Str("tx", key.TxHash).Msg("Destination hash already set, ignoring receipt")
		return
	}

	s.metrics.receipt(ctx, key.SourceSlug, key.DestSlug)
	if sess.complete(record) {
		senderLog.Info().
			Str("session", sess.ID()).
			Str("tx", record.Hash).
			Str("destTx", record.DestTxHash).
			Msg("Transfer completed")
	}
}
