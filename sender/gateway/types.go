package gateway

import "github.com/Cogwheel-Validator/spectra-sender/sender/models"

// Amounts on the wire are base unit decimal strings.

type SignerResponse struct {
	Address string `json:"address"`
}

type NetworkResponse struct {
	NetworkID uint64 `json:"network_id"`
}

type SendOptions struct {
	Recipient               string `json:"recipient"`
	Deadline                uint64 `json:"deadline"`
	BonderFee               string `json:"bonder_fee,omitempty"`
	RelayerFee              string `json:"relayer_fee,omitempty"`
	AmountOutMin            string `json:"amount_out_min"`
	DestinationAmountOutMin string `json:"destination_amount_out_min"`
	DestinationDeadline     uint64 `json:"destination_deadline"`
}

type SendRequest struct {
	Token       string      `json:"token"`
	Amount      string      `json:"amount"`
	Source      string      `json:"source"`
	Destination string      `json:"destination"`
	Options     SendOptions `json:"options"`
}

type SendResponse struct {
	Tx models.RawTx `json:"tx"`
}

// Destination statuses
const (
	DestinationPending  = "pending"
	DestinationComplete = "complete"
)

type DestinationResponse struct {
	Status          string `json:"status"`
	TransactionHash string `json:"transaction_hash,omitempty"`
}

// Source transaction statuses
const (
	TxPending  = "pending"
	TxMined    = "mined"
	TxReplaced = "replaced"
)

type WaitResponse struct {
	Status      string        `json:"status"`
	Replacement *models.RawTx `json:"replacement,omitempty"`
}
