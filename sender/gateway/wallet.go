package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/Cogwheel-Validator/spectra-sender/sender/router"
	"github.com/ethereum/go-ethereum/common"
)

// signer is the account the gateway signs with.
type signer struct {
	address common.Address
}

func (s signer) Address(ctx context.Context) (string, error) {
	return s.address.Hex(), nil
}

// Signer returns the gateway's signing account. A gateway without an
// unlocked account answers 404, which yields a nil signer.
func (c *Client) Signer(ctx context.Context) (router.Signer, error) {
	body, err := c.doRequestWithFailover(ctx, http.MethodGet, "/v1/wallet/signer", nil)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var resp SignerResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse signer response: %w", err)
	}
	if resp.Address == "" {
		return nil, nil
	}
	if !common.IsHexAddress(resp.Address) {
		return nil, fmt.Errorf("gateway returned invalid signer address %q", resp.Address)
	}
	return signer{address: common.HexToAddress(resp.Address)}, nil
}

// CheckConnectedNetworkID reports whether the gateway wallet is on networkID.
func (c *Client) CheckConnectedNetworkID(ctx context.Context, networkID uint64) (bool, error) {
	body, err := c.doRequestWithFailover(ctx, http.MethodGet, "/v1/wallet/network", nil)
	if err != nil {
		return false, err
	}

	var resp NetworkResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return false, fmt.Errorf("failed to parse network response: %w", err)
	}
	if resp.NetworkID != networkID {
		log.Debug().
			Uint64("connected", resp.NetworkID).
			Uint64("expected", networkID).
			Msg("Wallet on a different network")
	}
	return resp.NetworkID == networkID, nil
}
