package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/Cogwheel-Validator/spectra-sender/sender/models"
	"github.com/holiman/uint256"
)

// Send submits the bridge call. Submissions are sent once: a retry could
// broadcast the same transfer twice.
func (c *Client) Send(ctx context.Context, req models.BridgeSend) (*models.RawTx, error) {
	if req.Amount == nil {
		return nil, errors.New("send amount is required")
	}
	payload, err := json.Marshal(SendRequest{
		Token:       req.Token,
		Amount:      req.Amount.Dec(),
		Source:      req.Source,
		Destination: req.Destination,
		Options: SendOptions{
			Recipient:               req.Options.Recipient,
			Deadline:                req.Options.Deadline,
			BonderFee:               optionalDec(req.Options.BonderFee),
			RelayerFee:              optionalDec(req.Options.RelayerFee),
			AmountOutMin:            models.IntOrZero(req.Options.AmountOutMin).Dec(),
			DestinationAmountOutMin: models.IntOrZero(req.Options.DestinationAmountOutMin).Dec(),
			DestinationDeadline:     req.Options.DestinationDeadline,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode send request: %w", err)
	}

	body, err := c.do(ctx, http.MethodPost, "/v1/bridge/send", payload)
	if err != nil {
		return nil, err
	}

	var resp SendResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse send response: %w", err)
	}
	if resp.Tx.Hash == "" {
		return nil, errors.New("gateway returned a transaction without hash")
	}
	log.Info().
		Str("tx", resp.Tx.Hash).
		Str("source", req.Source).
		Str("destination", req.Destination).
		Msg("Bridge transaction submitted")
	return &resp.Tx, nil
}

func optionalDec(v *uint256.Int) string {
	if v == nil {
		return ""
	}
	return v.Dec()
}
