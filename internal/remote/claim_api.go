package remote

import (
	"context"
	"net/url"
	"strconv"

	"github.com/opencustody/walletsync/internal/types"
)

// Claim-wallet resource: wallets the account is inheriting or recovering
// rather than owning outright.

// GetClaimingWallets returns one page of claimable wallets in the given
// statuses.
func (c *Client) GetClaimingWallets(ctx context.Context, offset, limit int, statuses []string) ([]types.WalletDTO, error) {
	q := url.Values{}
	q.Set("offset", strconv.Itoa(offset))
	q.Set("limit", strconv.Itoa(limit))
	for _, s := range statuses {
		q.Add("statuses", s)
	}
	var data walletsData
	if err := c.get(ctx, "/v1/claim-wallets/wallets", q, &data); err != nil {
		return nil, err
	}
	return data.Wallets, nil
}

func (c *Client) GetClaimTransaction(ctx context.Context, walletID, txID string) (*types.TransactionDTO, error) {
	var data transactionData
	if err := c.get(ctx, "/v1/claim-wallets/wallets/"+walletID+"/transactions/"+txID, nil, &data); err != nil {
		return nil, err
	}
	return data.Transaction, nil
}

// CreateClaimTransaction both creates and re-signs claim transactions; the
// claim resource has no separate sign endpoint.
func (c *Client) CreateClaimTransaction(ctx context.Context, walletID string, req CreateTransactionRequest) (*types.TransactionDTO, error) {
	var data transactionData
	if err := c.post(ctx, "/v1/claim-wallets/wallets/"+walletID+"/transactions", nil, req, &data); err != nil {
		return nil, err
	}
	return data.Transaction, nil
}
