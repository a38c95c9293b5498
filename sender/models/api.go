package models

// SendRequest - Send RPC body. Amounts other than Amount are base units.
type SendRequest struct {
	FromNetwork              string `json:"from_network"`                          // slug, e.g. "ethereum"
	ToNetwork                string `json:"to_network"`                            // slug, e.g. "arbitrum"
	TokenSymbol              string `json:"token_symbol"`                          // e.g. "USDC"
	Amount                   string `json:"amount"`                                // human amount, e.g. "100.5"
	AmountOutMin             string `json:"amount_out_min,omitempty"`              // base units
	IntermediaryAmountOutMin string `json:"intermediary_amount_out_min,omitempty"` // base units, double hop only
	TotalFee                 string `json:"total_fee,omitempty"`                   // base units
	CustomRecipient          string `json:"custom_recipient,omitempty"`
	EstimatedReceived        string `json:"estimated_received,omitempty"`
	DeadlineMinutes          *int   `json:"deadline_minutes,omitempty"` // if nil the configured default is used
}

// SendResponse returns the session created for the send.
type SendResponse struct {
	SessionID string `json:"session_id"`
}

// SessionRequest addresses a session by id.
type SessionRequest struct {
	SessionID string `json:"session_id"`
}

// SessionResponse is a point in time view of a send session.
type SessionResponse struct {
	SessionID string          `json:"session_id"`
	State     string          `json:"state"`
	Path      string          `json:"path,omitempty"`
	Sending   bool            `json:"sending"`
	Cancelled bool            `json:"cancelled"`
	Error     string          `json:"error,omitempty"`
	ErrorKind string          `json:"error_kind,omitempty"`
	Transfer  *TransferRecord `json:"transfer,omitempty"`
}

// PendingConfirmation is a send waiting for the user to approve or cancel.
type PendingConfirmation struct {
	SessionID string       `json:"session_id"`
	Kind      string       `json:"kind"`
	Input     ConfirmInput `json:"input"`
}

// PendingConfirmationsResponse lists confirmations waiting for a decision.
type PendingConfirmationsResponse struct {
	Confirmations []PendingConfirmation `json:"confirmations"`
}

// ListTransfersRequest filters the transfer history.
type ListTransfersRequest struct {
	Limit int `json:"limit,omitempty"`
}

// ListTransfersResponse holds transfer records, newest first.
type ListTransfersResponse struct {
	Transfers []TransferRecord `json:"transfers"`
}

// Empty is used by procedures without a payload.
type Empty struct{}
