package router

import (
	"strings"

	"github.com/Cogwheel-Validator/spectra-sender/sender/models"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// SendContext is built once per send invocation and passed to every step.
// Nothing in it is mutated after newSendContext returns.
type SendContext struct {
	SessionID   string
	Path        Path
	Source      models.Network
	Destination models.Network
	Token       models.Token

	Amount       string
	ParsedAmount *uint256.Int

	AmountOutMin             *uint256.Int
	IntermediaryAmountOutMin *uint256.Int
	TotalFee                 *uint256.Int

	CustomRecipient   string
	Recipient         string
	EstimatedReceived string
	Deadline          func() uint64
}

func newSendContext(
	sessionID string,
	intent models.TransferIntent,
	parsedAmount *uint256.Int,
	recipient string,
) *SendContext {
	deadline := intent.Deadline
	if deadline == nil {
		deadline = func() uint64 { return 0 }
	}
	return &SendContext{
		SessionID:                sessionID,
		Path:                     SelectPath(*intent.Source, *intent.Destination),
		Source:                   *intent.Source,
		Destination:              *intent.Destination,
		Token:                    *intent.Token,
		Amount:                   intent.Amount,
		ParsedAmount:             parsedAmount,
		AmountOutMin:             cloneInt(intent.AmountOutMin),
		IntermediaryAmountOutMin: cloneInt(intent.IntermediaryAmountOutMin),
		TotalFee:                 cloneInt(intent.TotalFee),
		CustomRecipient:          intent.CustomRecipient,
		Recipient:                recipient,
		EstimatedReceived:        intent.EstimatedReceived,
		Deadline:                 deadline,
	}
}

// confirmInput is the payload the user reviews.
func (sc *SendContext) confirmInput() models.ConfirmInput {
	return models.ConfirmInput{
		CustomRecipient: sc.CustomRecipient,
		Source: models.ConfirmSource{
			Amount:  sc.Amount,
			Token:   sc.Token,
			Network: sc.Source,
		},
		Dest: models.ConfirmDest{
			Network: sc.Destination,
		},
		EstimatedReceived: sc.EstimatedReceived,
	}
}

func (sc *SendContext) watchKey(txHash string) models.WatchKey {
	return models.WatchKey{
		TxHash:      txHash,
		TokenSymbol: sc.Token.Symbol,
		SourceSlug:  sc.Source.Slug,
		DestSlug:    sc.Destination.Slug,
	}
}

func cloneInt(v *uint256.Int) *uint256.Int {
	if v == nil {
		return nil
	}
	return v.Clone()
}

// ValidRecipient reports whether addr is a hex address. Mixed case addresses
// must carry a valid EIP-55 checksum.
func ValidRecipient(addr string) bool {
	if !common.IsHexAddress(addr) {
		return false
	}
	hex := addr
	if strings.HasPrefix(hex, "0x") || strings.HasPrefix(hex, "0X") {
		hex = hex[2:]
	}
	if hex == strings.ToLower(hex) || hex == strings.ToUpper(hex) {
		return true
	}
	return common.HexToAddress(addr).Hex() == addr
}
