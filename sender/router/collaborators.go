package router

import (
	"context"

	"github.com/Cogwheel-Validator/spectra-sender/sender/models"
)

// Signer is the connected account.
type Signer interface {
	Address(ctx context.Context) (string, error)
}

// Wallet is the wallet/provider connection.
type Wallet interface {
	// Signer returns the connected signer, or nil when none is connected
	Signer(ctx context.Context) (Signer, error)
	// CheckConnectedNetworkID reports whether the wallet is on the given network
	CheckConnectedNetworkID(ctx context.Context, networkID uint64) (bool, error)
}

// BridgeExecutor encodes and submits the bridge call.
type BridgeExecutor interface {
	Send(ctx context.Context, req models.BridgeSend) (*models.RawTx, error)
}

// ConfirmRequest is shown to the user. OnConfirm runs only after approval.
type ConfirmRequest struct {
	SessionID string
	Kind      string
	Input     models.ConfirmInput
	OnConfirm func(ctx context.Context) (*models.RawTx, error)
}

// ConfirmationGate blocks until the user approves or cancels.
// A nil tx with a nil error means the user dismissed the dialog.
type ConfirmationGate interface {
	Show(ctx context.Context, req ConfirmRequest) (*models.RawTx, error)
}

// HistoryStore persists transfer records. It is the serialization point for
// concurrent sends: UpdateTransaction only writes DestTxHash and ReplacedFrom
// while they are unset, and reports whether the update was applied.
type HistoryStore interface {
	AddTransaction(record models.TransferRecord) error
	UpdateTransaction(hash string, update models.TransferUpdate) (models.TransferRecord, bool, error)
	Clear() error
}

// CompletionWatcher subscribes to destination completion. The returned channel
// yields at most one receipt.
type CompletionWatcher interface {
	Watch(ctx context.Context, key models.WatchKey) (<-chan models.DestinationReceipt, error)
}

// TxWaiter waits for a source tx to be mined or replaced.
type TxWaiter interface {
	WaitForTransaction(ctx context.Context, tx models.RawTx, args models.WaitArgs) (models.WaitResult, error)
}
