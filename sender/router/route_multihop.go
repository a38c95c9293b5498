package router

import (
	"fmt"

	"github.com/Cogwheel-Validator/spectra-sender/sender/models"
)

// intermediaryToIntermediary sends between two non-root networks. The first hop
// settles on the root network and the second hop delivers to the destination,
// so both hops get their own bound and the destination gets a deadline.
type intermediaryToIntermediary struct{}

func (intermediaryToIntermediary) path() Path {
	return PathIntermediaryToIntermediary
}

func (intermediaryToIntermediary) buildSend(sc *SendContext) (models.BridgeSend, error) {
	if sc.TotalFee == nil {
		return models.BridgeSend{}, fmt.Errorf("multihop send: %w", ErrMissingFee)
	}
	if sc.AmountOutMin == nil {
		return models.BridgeSend{}, fmt.Errorf("multihop send: %w", ErrMissingBound)
	}
	if err := guardFee(sc); err != nil {
		return models.BridgeSend{}, err
	}

	bonderFee, err := WithDisambiguatingID(sc.TotalFee)
	if err != nil {
		return models.BridgeSend{}, err
	}
	intermediaryMin, err := ComputeMinOutput(models.IntOrZero(sc.IntermediaryAmountOutMin), bonderFee)
	if err != nil {
		return models.BridgeSend{}, fmt.Errorf("intermediary bound: %w", err)
	}
	destinationMin, err := ComputeMinOutput(sc.AmountOutMin, bonderFee)
	if err != nil {
		return models.BridgeSend{}, fmt.Errorf("destination bound: %w", err)
	}

	deadline := sc.Deadline()
	return models.BridgeSend{
		Token:       sc.Token.Symbol,
		Amount:      sc.ParsedAmount.Clone(),
		Source:      sc.Source.Slug,
		Destination: sc.Destination.Slug,
		Options: models.SendOptions{
			Recipient:               sc.Recipient,
			BonderFee:               bonderFee.Value(),
			AmountOutMin:            intermediaryMin,
			Deadline:                deadline,
			DestinationAmountOutMin: destinationMin,
			DestinationDeadline:     deadline,
		},
	}, nil
}
