package remote

import (
	"context"
	"fmt"
	"net/url"

	"github.com/opencustody/walletsync/internal/types"
)

// Personal-wallet resource: everything scoped to the calling account's own
// assisted wallets.

type nonceData struct {
	Nonce struct {
		Nonce string `json:"nonce"`
	} `json:"nonce"`
}

// GetNonce fetches a fresh single-use nonce. Never cached: every proposal
// envelope embeds a nonce fetched immediately before construction.
func (c *Client) GetNonce(ctx context.Context) (string, error) {
	var data nonceData
	// nonces must be fresh, so no retry wrapper here
	if err := c.do(ctx, "GET", "/v1/user-wallets/nonce", nil, nil, nil, &data); err != nil {
		return "", err
	}
	if data.Nonce.Nonce == "" {
		return "", fmt.Errorf("server returned an empty nonce")
	}
	return data.Nonce.Nonce, nil
}

type walletsData struct {
	Wallets []types.WalletDTO `json:"wallets"`
}

type walletData struct {
	Wallet *types.WalletDTO `json:"wallet"`
}

// GetServerWallets returns the full assisted-wallet collection for the
// account.
func (c *Client) GetServerWallets(ctx context.Context) ([]types.WalletDTO, error) {
	var data walletsData
	if err := c.get(ctx, "/v1/user-wallets/wallets", nil, &data); err != nil {
		return nil, err
	}
	return data.Wallets, nil
}

func (c *Client) GetWallet(ctx context.Context, walletID string) (*types.WalletDTO, error) {
	var data walletData
	if err := c.get(ctx, "/v1/user-wallets/wallets/"+walletID, nil, &data); err != nil {
		return nil, err
	}
	if data.Wallet == nil {
		return nil, fmt.Errorf("server returned an empty wallet")
	}
	return data.Wallet, nil
}

// UpdateWalletRequest renames a wallet or edits its description.
type UpdateWalletRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

func (c *Client) UpdateWallet(ctx context.Context, walletID string, req UpdateWalletRequest) (*types.WalletDTO, error) {
	var data walletData
	if err := c.put(ctx, "/v1/user-wallets/wallets/"+walletID, nil, req, &data); err != nil {
		return nil, err
	}
	if data.Wallet == nil {
		return nil, fmt.Errorf("server returned an empty wallet")
	}
	return data.Wallet, nil
}

// DeleteWallet commits a wallet deletion. The caller must have collected a
// threshold signature set; headers carry it.
func (c *Client) DeleteWallet(ctx context.Context, walletID string, headers map[string]string, envelope types.UserDataEnvelope) error {
	return c.delete(ctx, "/v1/user-wallets/wallets/"+walletID, headers, envelope)
}

type deletedWalletsData struct {
	Wallets []struct {
		LocalID string `json:"local_id"`
	} `json:"wallets"`
}

// GetDeletedWallets pages through wallet ids the server has deleted so the
// local stores can purge them.
func (c *Client) GetDeletedWallets(ctx context.Context, offset, limit int) ([]string, error) {
	var data deletedWalletsData
	if err := c.get(ctx, "/v1/user-wallets/wallets/deleted", pageQuery(offset, limit), &data); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(data.Wallets))
	for _, w := range data.Wallets {
		ids = append(ids, w.LocalID)
	}
	return ids, nil
}

// --- server key policy ---

type serverKeyData struct {
	Key *types.ServerKeyDTO `json:"key"`
}

type dummyTransactionData struct {
	DummyTransaction *types.DummyTransactionDTO `json:"dummy_transaction"`
}

func (c *Client) GetServerKey(ctx context.Context, xfp, derivationPath string) (*types.ServerKeyDTO, error) {
	q := url.Values{}
	q.Set("derivation_path", derivationPath)
	var data serverKeyData
	if err := c.get(ctx, "/v1/user-wallets/server-keys/"+xfp, q, &data); err != nil {
		return nil, err
	}
	if data.Key == nil {
		return nil, fmt.Errorf("server returned an empty key")
	}
	return data.Key, nil
}

// UpdateServerKeys proposes a key-policy change. The response carries the
// dummy transaction representing the pending action.
func (c *Client) UpdateServerKeys(ctx context.Context, headers map[string]string, keyIDOrXfp, derivationPath string, envelope types.UserDataEnvelope) (*types.DummyTransactionDTO, error) {
	q := url.Values{}
	q.Set("derivation_path", derivationPath)
	var data dummyTransactionData
	path := "/v1/user-wallets/server-keys/" + keyIDOrXfp + "?" + q.Encode()
	if err := c.put(ctx, path, headers, envelope, &data); err != nil {
		return nil, err
	}
	return data.DummyTransaction, nil
}

// --- transactions ---

type transactionData struct {
	Transaction *types.TransactionDTO `json:"transaction"`
}

type transactionsData struct {
	Transactions []types.TransactionDTO `json:"transactions"`
}

// CreateTransactionRequest uploads a freshly constructed PSBT.
type CreateTransactionRequest struct {
	Psbt string `json:"psbt"`
	Note string `json:"note,omitempty"`
}

func (c *Client) CreateTransaction(ctx context.Context, walletID string, req CreateTransactionRequest) (*types.TransactionDTO, error) {
	var data transactionData
	if err := c.post(ctx, "/v1/user-wallets/wallets/"+walletID+"/transactions", nil, req, &data); err != nil {
		return nil, err
	}
	return data.Transaction, nil
}

func (c *Client) GetTransaction(ctx context.Context, walletID, txID string) (*types.TransactionDTO, error) {
	var data transactionData
	if err := c.get(ctx, "/v1/user-wallets/wallets/"+walletID+"/transactions/"+txID, nil, &data); err != nil {
		return nil, err
	}
	return data.Transaction, nil
}

// SignTransactionRequest submits a PSBT carrying one more signature.
type SignTransactionRequest struct {
	Psbt string `json:"psbt"`
}

func (c *Client) SignTransaction(ctx context.Context, walletID, txID string, req SignTransactionRequest) (*types.TransactionDTO, error) {
	var data transactionData
	if err := c.post(ctx, "/v1/user-wallets/wallets/"+walletID+"/transactions/"+txID+"/sign", nil, req, &data); err != nil {
		return nil, err
	}
	return data.Transaction, nil
}

// SyncTransaction pushes the locally held PSBT back to the server when the
// two sides diverged; the response is the server's new record.
func (c *Client) SyncTransaction(ctx context.Context, walletID, txID string, psbt string) (*types.TransactionDTO, error) {
	var data transactionData
	req := SignTransactionRequest{Psbt: psbt}
	if err := c.post(ctx, "/v1/user-wallets/wallets/"+walletID+"/transactions/"+txID+"/sync", nil, req, &data); err != nil {
		return nil, err
	}
	return data.Transaction, nil
}

// UpdateTransactionNote edits the note attached to a server transaction.
func (c *Client) UpdateTransactionNote(ctx context.Context, walletID, txID, note string) (*types.TransactionDTO, error) {
	var data transactionData
	body := map[string]string{"note": note}
	if err := c.put(ctx, "/v1/user-wallets/wallets/"+walletID+"/transactions/"+txID, nil, body, &data); err != nil {
		return nil, err
	}
	return data.Transaction, nil
}

func (c *Client) DeleteTransaction(ctx context.Context, walletID, txID string) error {
	return c.delete(ctx, "/v1/user-wallets/wallets/"+walletID+"/transactions/"+txID, nil, nil)
}

// ScheduleTransactionRequest asks the server key to broadcast at a set
// time.
type ScheduleTransactionRequest struct {
	ScheduleTimeMillis int64  `json:"schedule_time_millis"`
	Psbt               string `json:"psbt"`
}

func (c *Client) ScheduleTransaction(ctx context.Context, walletID, txID string, req ScheduleTransactionRequest) (*types.TransactionDTO, error) {
	var data transactionData
	if err := c.post(ctx, "/v1/user-wallets/wallets/"+walletID+"/transactions/"+txID+"/schedule", nil, req, &data); err != nil {
		return nil, err
	}
	return data.Transaction, nil
}

// GetTransactionsToSync pages through server transactions that changed
// since the client last looked.
func (c *Client) GetTransactionsToSync(ctx context.Context, walletID string, offset, limit int) ([]types.TransactionDTO, error) {
	var data transactionsData
	if err := c.get(ctx, "/v1/user-wallets/wallets/"+walletID+"/transactions/sync", pageQuery(offset, limit), &data); err != nil {
		return nil, err
	}
	return data.Transactions, nil
}

// GetTransactionsToDelete pages through transaction ids deleted remotely.
func (c *Client) GetTransactionsToDelete(ctx context.Context, walletID string, offset, limit int) ([]types.TransactionDTO, error) {
	var data transactionsData
	if err := c.get(ctx, "/v1/user-wallets/wallets/"+walletID+"/transactions/deleted", pageQuery(offset, limit), &data); err != nil {
		return nil, err
	}
	return data.Transactions, nil
}

// GetConfirmedTransactionNotes pages through notes of confirmed
// transactions so memos survive across devices.
func (c *Client) GetConfirmedTransactionNotes(ctx context.Context, walletID string, offset, limit int) ([]types.TransactionDTO, error) {
	var data transactionsData
	if err := c.get(ctx, "/v1/user-wallets/wallets/"+walletID+"/transactions/notes", pageQuery(offset, limit), &data); err != nil {
		return nil, err
	}
	return data.Transactions, nil
}
