package router

import (
	"fmt"
	"time"

	"github.com/Cogwheel-Validator/spectra-sender/sender/models"
)

// NewTransferRecord builds the record for a freshly submitted source tx.
func NewTransferRecord(tx models.RawTx, source, dest models.Network, token models.Token, now time.Time) models.TransferRecord {
	return models.TransferRecord{
		Hash:                           tx.Hash,
		NetworkSlug:                    source.Slug,
		DestNetworkSlug:                dest.Slug,
		TokenSymbol:                    token.Symbol,
		Pending:                        true,
		PendingDestinationConfirmation: true,
		Timestamp:                      now,
	}
}

// HandleTransaction wraps a submitted tx into a TransferRecord and registers it
// with the history store.
func HandleTransaction(
	store HistoryStore,
	tx models.RawTx,
	source, dest models.Network,
	token models.Token,
	now time.Time,
) (models.RawTx, models.TransferRecord, error) {
	record := NewTransferRecord(tx, source, dest, token, now)
	if err := store.AddTransaction(record); err != nil {
		return tx, record, fmt.Errorf("failed to add transfer %s to history: %w", tx.Hash, err)
	}
	return tx, record, nil
}
