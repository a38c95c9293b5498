package models

import (
	"time"

	"github.com/holiman/uint256"
)

// Network identifies one chain the bridge can send from or to.
type Network struct {
	Slug        string `json:"slug" toml:"slug"`                 // routing slug, e.g. "optimism"
	Name        string `json:"name" toml:"name"`                 // display name
	NetworkID   uint64 `json:"network_id" toml:"network_id"`     // EVM chain id
	IsRoot      bool   `json:"is_root" toml:"is_root"`           // the settlement chain every other network settles to
	ExplorerURL string `json:"explorer_url" toml:"explorer_url"` // base url for tx links
}

// Token is the asset being bridged.
type Token struct {
	Symbol   string `json:"symbol" toml:"symbol"`
	Decimals int32  `json:"decimals" toml:"decimals"`
}

// TransferIntent is everything a single send invocation needs. It is never persisted.
type TransferIntent struct {
	Source      *Network
	Destination *Network
	Token       *Token

	// Amount is the human readable source amount, e.g. "1.5"
	Amount string

	AmountOutMin             *uint256.Int
	IntermediaryAmountOutMin *uint256.Int
	TotalFee                 *uint256.Int

	CustomRecipient   string
	EstimatedReceived string

	// Deadline returns the unix timestamp the transfer must settle by
	Deadline func() uint64
}

// TransferRecord is the durable unit of state for a submitted transfer.
// Empty DestTxHash and ReplacedFrom mean "not set".
type TransferRecord struct {
	Hash                           string    `json:"hash"`
	NetworkSlug                    string    `json:"network_slug"`
	DestNetworkSlug                string    `json:"dest_network_slug"`
	TokenSymbol                    string    `json:"token_symbol"`
	Pending                        bool      `json:"pending"`
	DestTxHash                     string    `json:"dest_tx_hash,omitempty"`
	PendingDestinationConfirmation bool      `json:"pending_destination_confirmation"`
	ReplacedFrom                   string    `json:"replaced_from,omitempty"`
	Timestamp                      time.Time `json:"timestamp"`
}

// TransferUpdate is a partial update applied to a TransferRecord.
// Nil fields are left untouched.
type TransferUpdate struct {
	Pending                        *bool
	DestTxHash                     *string
	PendingDestinationConfirmation *bool
	ReplacedFrom                   *string
}

// RawTx is the submitted source chain transaction as returned by the bridge executor.
type RawTx struct {
	Hash  string `json:"hash"`
	From  string `json:"from,omitempty"`
	Nonce uint64 `json:"nonce"`
}

// WatchKey identifies a destination completion subscription.
type WatchKey struct {
	TxHash      string
	TokenSymbol string
	SourceSlug  string
	DestSlug    string
}

// DestinationReceipt is emitted once the transfer lands on the destination chain.
type DestinationReceipt struct {
	TxHash string `json:"transaction_hash"`
}

// WaitArgs gives the tx waiter enough context to build a replacement record.
type WaitArgs struct {
	NetworkName     string
	DestNetworkName string
	Token           Token
}

// WaitResult is the outcome of waiting on a source transaction.
// Replacement is non-nil when the original tx was superseded before it confirmed.
type WaitResult struct {
	Confirmed   bool
	Replacement *RawTx
}
