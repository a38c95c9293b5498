package models

import "github.com/holiman/uint256"

// SendOptions is the option bag handed to the bridge executor.
// Nil numeric values are sent as zero, meaning no destination side window.
type SendOptions struct {
	Recipient               string
	Deadline                uint64
	BonderFee               *uint256.Int
	RelayerFee              *uint256.Int
	AmountOutMin            *uint256.Int
	DestinationAmountOutMin *uint256.Int
	DestinationDeadline     uint64
}

// BridgeSend is one call into the bridge executor.
type BridgeSend struct {
	Token       string
	Amount      *uint256.Int
	Source      string // source slug, the root network slug on root sends
	Destination string
	Options     SendOptions
}

// ConfirmSource describes the source side of a confirmation payload.
type ConfirmSource struct {
	Amount  string  `json:"amount"`
	Token   Token   `json:"token"`
	Network Network `json:"network"`
}

// ConfirmDest describes the destination side of a confirmation payload.
type ConfirmDest struct {
	Network Network `json:"network"`
}

// ConfirmInput is what the user reviews before approving a send.
type ConfirmInput struct {
	CustomRecipient   string        `json:"custom_recipient,omitempty"`
	Source            ConfirmSource `json:"source"`
	Dest              ConfirmDest   `json:"dest"`
	EstimatedReceived string        `json:"estimated_received,omitempty"`
}

// IntOrZero returns v, or a zero value when v is nil.
func IntOrZero(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return v
}
