package remote

import (
	"context"
	"fmt"
	"net/url"

	"github.com/opencustody/walletsync/internal/types"
)

// Group-wallet resource: byzantine wallets shared between several
// accounts.

type groupsData struct {
	Groups []types.GroupDTO `json:"groups"`
}

type groupData struct {
	Group *types.GroupDTO `json:"group"`
}

func (c *Client) GetGroups(ctx context.Context) ([]types.GroupDTO, error) {
	var data groupsData
	if err := c.get(ctx, "/v1/group-wallets/groups", nil, &data); err != nil {
		return nil, err
	}
	return data.Groups, nil
}

func (c *Client) GetGroup(ctx context.Context, groupID string) (*types.GroupDTO, error) {
	var data groupData
	if err := c.get(ctx, "/v1/group-wallets/groups/"+groupID, nil, &data); err != nil {
		return nil, err
	}
	if data.Group == nil {
		return nil, fmt.Errorf("server returned an empty group")
	}
	return data.Group, nil
}

type alertsData struct {
	Alerts []types.AlertDTO `json:"alerts"`
}

// GetAlerts returns one page of alerts for a group or a personal wallet
// (exactly one of groupID/walletID is set).
func (c *Client) GetAlerts(ctx context.Context, groupID, walletID string, offset, limit int) ([]types.AlertDTO, error) {
	path := "/v1/group-wallets/groups/" + groupID + "/alerts"
	if groupID == "" {
		path = "/v1/user-wallets/wallets/" + walletID + "/alerts"
	}
	var data alertsData
	if err := c.get(ctx, path, pageQuery(offset, limit), &data); err != nil {
		return nil, err
	}
	return data.Alerts, nil
}

func (c *Client) MarkAlertRead(ctx context.Context, groupID, walletID, alertID string) error {
	path := "/v1/group-wallets/groups/" + groupID + "/alerts/" + alertID + "/view"
	if groupID == "" {
		path = "/v1/user-wallets/wallets/" + walletID + "/alerts/" + alertID + "/view"
	}
	return c.put(ctx, path, nil, nil, nil)
}

func (c *Client) DismissAlert(ctx context.Context, groupID, walletID, alertID string) error {
	path := "/v1/group-wallets/groups/" + groupID + "/alerts/" + alertID + "/dismiss"
	if groupID == "" {
		path = "/v1/user-wallets/wallets/" + walletID + "/alerts/" + alertID + "/dismiss"
	}
	return c.put(ctx, path, nil, nil, nil)
}

type keyHealthData struct {
	Statuses []types.KeyHealthDTO `json:"statuses"`
}

// GetWalletHealthStatus returns the full key-health collection for a
// wallet. Not paginated: one record per key.
func (c *Client) GetWalletHealthStatus(ctx context.Context, groupID, walletID string) ([]types.KeyHealthDTO, error) {
	var data keyHealthData
	if err := c.get(ctx, "/v1/group-wallets/groups/"+groupID+"/wallets/"+walletID+"/health", nil, &data); err != nil {
		return nil, err
	}
	return data.Statuses, nil
}

// --- group wallet lifecycle ---

type draftWalletData struct {
	DraftWallet *types.DraftWallet `json:"draft_wallet"`
}

func (c *Client) GetDraftWallet(ctx context.Context, groupID string) (*types.DraftWallet, error) {
	var data draftWalletData
	if err := c.get(ctx, "/v1/group-wallets/groups/"+groupID+"/draft-wallets/current", nil, &data); err != nil {
		return nil, err
	}
	if data.DraftWallet == nil {
		return nil, fmt.Errorf("server returned an empty draft wallet")
	}
	return data.DraftWallet, nil
}

// AddDraftWalletKey contributes one signer to the draft. The server
// rejects a fingerprint already present, surfaced as ErrDuplicateKey.
func (c *Client) AddDraftWalletKey(ctx context.Context, groupID string, signer types.SignerDTO) error {
	err := c.post(ctx, "/v1/group-wallets/groups/"+groupID+"/draft-wallets/current/keys", nil, signer, nil)
	if err != nil {
		var re *types.RemoteError
		if asRemote(err, &re) && re.Code == remoteCodeKeyExists {
			return types.ErrDuplicateKey
		}
		return err
	}
	return nil
}

// CreateGroupWallet finalizes the draft into a real wallet.
func (c *Client) CreateGroupWallet(ctx context.Context, groupID, name string) (*types.WalletDTO, error) {
	var data walletData
	body := map[string]string{"name": name}
	if err := c.post(ctx, "/v1/group-wallets/groups/"+groupID+"/wallets", nil, body, &data); err != nil {
		return nil, err
	}
	if data.Wallet == nil {
		return nil, fmt.Errorf("server returned an empty wallet")
	}
	return data.Wallet, nil
}

func (c *Client) GetGroupWallet(ctx context.Context, groupID string) (*types.WalletDTO, error) {
	var data walletData
	if err := c.get(ctx, "/v1/group-wallets/groups/"+groupID+"/wallets/current", nil, &data); err != nil {
		return nil, err
	}
	if data.Wallet == nil {
		return nil, fmt.Errorf("server returned an empty wallet")
	}
	return data.Wallet, nil
}

func (c *Client) UpdateGroupWallet(ctx context.Context, groupID, walletID string, req UpdateWalletRequest) (*types.WalletDTO, error) {
	var data walletData
	if err := c.put(ctx, "/v1/group-wallets/"+groupID+"/wallets/"+walletID, nil, req, &data); err != nil {
		return nil, err
	}
	if data.Wallet == nil {
		return nil, fmt.Errorf("server returned an empty wallet")
	}
	return data.Wallet, nil
}

// EditGroupMembers commits a member-roster change (threshold gated).
func (c *Client) EditGroupMembers(ctx context.Context, headers map[string]string, groupID string, envelope types.UserDataEnvelope) (*types.GroupDTO, error) {
	var data groupData
	if err := c.put(ctx, "/v1/group-wallets/groups/"+groupID+"/members", headers, envelope, &data); err != nil {
		return nil, err
	}
	return data.Group, nil
}

// --- group transactions ---

func groupTxPath(groupID, walletID, txID string) string {
	return "/v1/group-wallets/" + groupID + "/wallets/" + walletID + "/transactions/" + txID
}

func (c *Client) GetGroupTransaction(ctx context.Context, groupID, walletID, txID string) (*types.TransactionDTO, error) {
	var data transactionData
	if err := c.get(ctx, groupTxPath(groupID, walletID, txID), nil, &data); err != nil {
		return nil, err
	}
	return data.Transaction, nil
}

func (c *Client) CreateGroupTransaction(ctx context.Context, groupID, walletID string, req CreateTransactionRequest) (*types.TransactionDTO, error) {
	var data transactionData
	path := "/v1/group-wallets/" + groupID + "/wallets/" + walletID + "/transactions"
	if err := c.post(ctx, path, nil, req, &data); err != nil {
		return nil, err
	}
	return data.Transaction, nil
}

func (c *Client) SignGroupTransaction(ctx context.Context, groupID, walletID, txID string, req SignTransactionRequest) (*types.TransactionDTO, error) {
	var data transactionData
	if err := c.post(ctx, groupTxPath(groupID, walletID, txID)+"/sign", nil, req, &data); err != nil {
		return nil, err
	}
	return data.Transaction, nil
}

func (c *Client) SyncGroupTransaction(ctx context.Context, groupID, walletID, txID string, psbt string) (*types.TransactionDTO, error) {
	var data transactionData
	if err := c.post(ctx, groupTxPath(groupID, walletID, txID)+"/sync", nil, SignTransactionRequest{Psbt: psbt}, &data); err != nil {
		return nil, err
	}
	return data.Transaction, nil
}

func (c *Client) DeleteGroupTransaction(ctx context.Context, groupID, walletID, txID string) error {
	return c.delete(ctx, groupTxPath(groupID, walletID, txID), nil, nil)
}

func (c *Client) ScheduleGroupTransaction(ctx context.Context, groupID, walletID, txID string, req ScheduleTransactionRequest) (*types.TransactionDTO, error) {
	var data transactionData
	if err := c.post(ctx, groupTxPath(groupID, walletID, txID)+"/schedule", nil, req, &data); err != nil {
		return nil, err
	}
	return data.Transaction, nil
}

// --- group server keys ---

func (c *Client) GetGroupServerKey(ctx context.Context, groupID, xfp, derivationPath string) (*types.ServerKeyDTO, error) {
	q := url.Values{}
	q.Set("derivation_path", derivationPath)
	var data serverKeyData
	if err := c.get(ctx, "/v1/group-wallets/"+groupID+"/server-keys/"+xfp, q, &data); err != nil {
		return nil, err
	}
	if data.Key == nil {
		return nil, fmt.Errorf("server returned an empty key")
	}
	return data.Key, nil
}

// UpdateGroupServerKeys proposes a group key-policy change; draft previews
// it without creating the pending action.
func (c *Client) UpdateGroupServerKeys(ctx context.Context, headers map[string]string, groupID, keyIDOrXfp, derivationPath string, envelope types.UserDataEnvelope, draft bool) (*types.DummyTransactionDTO, error) {
	q := url.Values{}
	q.Set("derivation_path", derivationPath)
	if draft {
		q.Set("draft", "true")
	}
	var data dummyTransactionData
	path := "/v1/group-wallets/" + groupID + "/server-keys/" + keyIDOrXfp + "?" + q.Encode()
	if err := c.put(ctx, path, headers, envelope, &data); err != nil {
		return nil, err
	}
	return data.DummyTransaction, nil
}

// --- request-add-key tickets ---

type requestAddKeyData struct {
	Request *types.RequestAddKeyDTO `json:"request"`
}

// RequestAddKeyPayload asks a desktop/external device to contribute a key.
type RequestAddKeyPayload struct {
	Tags     []string `json:"tags"`
	KeyIndex int      `json:"key_index"`
}

func (c *Client) RequestAddKey(ctx context.Context, groupID string, payload RequestAddKeyPayload) (*types.RequestAddKeyDTO, error) {
	path := "/v1/user-wallets/request-add-key"
	if groupID != "" {
		path = "/v1/group-wallets/groups/" + groupID + "/request-add-key"
	}
	var data requestAddKeyData
	if err := c.post(ctx, path, nil, payload, &data); err != nil {
		return nil, err
	}
	if data.Request == nil {
		return nil, fmt.Errorf("server returned an empty add-key request")
	}
	return data.Request, nil
}

// GetRequestAddKeyStatus returns (nil, nil) when the request disappeared
// remotely; the caller converts that to a cancellation signal.
func (c *Client) GetRequestAddKeyStatus(ctx context.Context, groupID, requestID string) (*types.RequestAddKeyDTO, error) {
	path := "/v1/user-wallets/request-add-key/" + requestID
	if groupID != "" {
		path = "/v1/group-wallets/groups/" + groupID + "/request-add-key/" + requestID
	}
	var data requestAddKeyData
	if err := c.get(ctx, path, nil, &data); err != nil {
		if types.IsRemoteNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return data.Request, nil
}

// PushRequestAddKey re-notifies the target device of an open ticket.
func (c *Client) PushRequestAddKey(ctx context.Context, requestID string) error {
	return c.post(ctx, "/v1/user-wallets/request-add-key/"+requestID+"/push", nil, nil, nil)
}

func (c *Client) CancelRequestAddKey(ctx context.Context, groupID, requestID string) error {
	path := "/v1/user-wallets/request-add-key/" + requestID
	if groupID != "" {
		path = "/v1/group-wallets/groups/" + groupID + "/request-add-key/" + requestID
	}
	return c.delete(ctx, path, nil, nil)
}

// --- saved addresses ---

type savedAddressesData struct {
	Addresses []types.SavedAddress `json:"addresses"`
}

func (c *Client) GetSavedAddresses(ctx context.Context) ([]types.SavedAddress, error) {
	var data savedAddressesData
	if err := c.get(ctx, "/v1/user-wallets/saved-addresses", nil, &data); err != nil {
		return nil, err
	}
	return data.Addresses, nil
}

func (c *Client) AddOrUpdateSavedAddress(ctx context.Context, addr types.SavedAddress) error {
	return c.post(ctx, "/v1/user-wallets/saved-addresses", nil, addr, nil)
}

func (c *Client) DeleteSavedAddress(ctx context.Context, address string) error {
	return c.delete(ctx, "/v1/user-wallets/saved-addresses/"+address, nil, nil)
}
