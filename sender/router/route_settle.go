package router

import (
	"fmt"

	"github.com/Cogwheel-Validator/spectra-sender/sender/models"
	"github.com/holiman/uint256"
)

// intermediaryToDirect sends from a non-root network back to the root network.
// It settles in one hop, so there is no destination side slippage window.
type intermediaryToDirect struct{}

func (intermediaryToDirect) path() Path {
	return PathIntermediaryToDirect
}

func (intermediaryToDirect) buildSend(sc *SendContext) (models.BridgeSend, error) {
	if sc.AmountOutMin == nil {
		return models.BridgeSend{}, fmt.Errorf("settle send: %w", ErrMissingBound)
	}
	if sc.TotalFee == nil {
		return models.BridgeSend{}, fmt.Errorf("settle send: %w", ErrMissingFee)
	}
	if err := guardFee(sc); err != nil {
		return models.BridgeSend{}, err
	}

	bonderFee, err := WithDisambiguatingID(sc.TotalFee)
	if err != nil {
		return models.BridgeSend{}, err
	}
	amountOutMin, err := ComputeMinOutput(sc.AmountOutMin, bonderFee)
	if err != nil {
		return models.BridgeSend{}, err
	}

	return models.BridgeSend{
		Token:       sc.Token.Symbol,
		Amount:      sc.ParsedAmount.Clone(),
		Source:      sc.Source.Slug,
		Destination: sc.Destination.Slug,
		Options: models.SendOptions{
			Recipient:               sc.Recipient,
			BonderFee:               bonderFee.Value(),
			AmountOutMin:            amountOutMin,
			Deadline:                sc.Deadline(),
			DestinationAmountOutMin: new(uint256.Int),
			DestinationDeadline:     0,
		},
	}, nil
}
