package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/Cogwheel-Validator/spectra-sender/sender/models"
	"github.com/Cogwheel-Validator/spectra-sender/sender/tokens"
)

// Watch polls the destination status of key.TxHash until the transfer lands.
// The channel yields one receipt and is closed afterwards, or when ctx ends.
func (c *Client) Watch(ctx context.Context, key models.WatchKey) (<-chan models.DestinationReceipt, error) {
	if key.TxHash == "" {
		return nil, errors.New("watch key has no tx hash")
	}
	q := url.Values{}
	q.Set("token", tokens.CanonicalSymbol(key.TokenSymbol))
	q.Set("source", key.SourceSlug)
	q.Set("destination", key.DestSlug)
	path := fmt.Sprintf("/v1/transfers/%s/destination?%s", url.PathEscape(key.TxHash), q.Encode())

	out := make(chan models.DestinationReceipt, 1)
	go func() {
		defer close(out)
		failures := 0
		for {
			resp, err := c.pollDestination(ctx, path)
			switch {
			case ctx.Err() != nil:
				return
			case err != nil:
				failures++
				log.Warn().Err(err).Str("tx", key.TxHash).Int("failures", failures).Msg("Destination poll failed")
			case resp.Status == DestinationComplete && resp.TransactionHash != "":
				log.Debug().
					Str("tx", key.TxHash).
					Str("destTx", resp.TransactionHash).
					Msg("Transfer arrived on destination")
				out <- models.DestinationReceipt{TxHash: resp.TransactionHash}
				return
			default:
				failures = 0
			}

			if !c.sleep(ctx) {
				return
			}
		}
	}()
	return out, nil
}

func (c *Client) pollDestination(ctx context.Context, path string) (DestinationResponse, error) {
	if err := c.pollLimiter.Wait(ctx); err != nil {
		return DestinationResponse{}, err
	}
	body, err := c.doRequestWithFailover(ctx, http.MethodGet, path, nil)
	if err != nil {
		return DestinationResponse{}, err
	}
	var resp DestinationResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return DestinationResponse{}, fmt.Errorf("failed to parse destination response: %w", err)
	}
	return resp, nil
}

// WaitForTransaction polls the source tx until it is mined or replaced. It gives
// up after MaxPollFailures failed polls in a row.
func (c *Client) WaitForTransaction(ctx context.Context, tx models.RawTx, args models.WaitArgs) (models.WaitResult, error) {
	q := url.Values{}
	q.Set("network", args.NetworkName)
	q.Set("dest_network", args.DestNetworkName)
	q.Set("token", tokens.CanonicalSymbol(args.Token.Symbol))
	if tx.From != "" {
		q.Set("from", tx.From)
	}
	q.Set("nonce", fmt.Sprintf("%d", tx.Nonce))
	path := fmt.Sprintf("/v1/transactions/%s/wait?%s", url.PathEscape(tx.Hash), q.Encode())

	failures := 0
	for {
		if err := c.pollLimiter.Wait(ctx); err != nil {
			return models.WaitResult{}, err
		}
		body, err := c.doRequestWithFailover(ctx, http.MethodGet, path, nil)
		if err == nil {
			var resp WaitResponse
			if err = json.Unmarshal(body, &resp); err == nil {
				switch resp.Status {
				case TxMined:
					return models.WaitResult{Confirmed: true}, nil
				case TxReplaced:
					if resp.Replacement == nil || resp.Replacement.Hash == "" {
						return models.WaitResult{}, fmt.Errorf("tx %s replaced without a replacement hash", tx.Hash)
					}
					return models.WaitResult{Replacement: resp.Replacement}, nil
				}
				failures = 0
			}
		}
		if ctx.Err() != nil {
			return models.WaitResult{}, ctx.Err()
		}
		if err != nil {
			failures++
			if failures >= c.config.MaxPollFailures {
				return models.WaitResult{}, fmt.Errorf("waiting for %s: %d failed polls: %w", tx.Hash, failures, err)
			}
			log.Warn().Err(err).Str("tx", tx.Hash).Int("failures", failures).Msg("Transaction poll failed")
		}

		if !c.sleep(ctx) {
			return models.WaitResult{}, ctx.Err()
		}
	}
}

// sleep waits PollInterval and reports false when ctx ended first.
func (c *Client) sleep(ctx context.Context) bool {
	t := time.NewTimer(c.config.PollInterval)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
