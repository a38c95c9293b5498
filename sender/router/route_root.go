package router

import (
	"fmt"

	"github.com/Cogwheel-Validator/spectra-sender/sender/models"
	"github.com/holiman/uint256"
)

// directToIntermediary sends from the root network to a non-root network.
type directToIntermediary struct{}

func (directToIntermediary) path() Path {
	return PathDirectToIntermediary
}

func (directToIntermediary) buildSend(sc *SendContext) (models.BridgeSend, error) {
	if sc.AmountOutMin == nil {
		return models.BridgeSend{}, fmt.Errorf("root send: %w", ErrMissingBound)
	}

	// the relayer fee is optional on root sends
	fee := sc.TotalFee
	if fee == nil {
		fee = new(uint256.Int)
	}
	relayerFee, err := WithDisambiguatingID(fee)
	if err != nil {
		return models.BridgeSend{}, err
	}
	amountOutMin, err := ComputeMinOutput(sc.AmountOutMin, relayerFee)
	if err != nil {
		return models.BridgeSend{}, err
	}

	return models.BridgeSend{
		Token:       sc.Token.Symbol,
		Amount:      sc.ParsedAmount.Clone(),
		Source:      sc.Source.Slug,
		Destination: sc.Destination.Slug,
		Options: models.SendOptions{
			Recipient:    sc.Recipient,
			Deadline:     sc.Deadline(),
			RelayerFee:   relayerFee.Value(),
			AmountOutMin: amountOutMin,
		},
	}, nil
}
