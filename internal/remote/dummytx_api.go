package remote

import (
	"context"
	"fmt"
	"net/url"

	"github.com/opencustody/walletsync/internal/types"
)

// Dummy-transaction endpoints: the pending half-committed actions awaiting
// threshold authorization. Group variants live under the group-wallet
// resource.

func (c *Client) dummyTxPath(groupID, walletID, dummyTxID string) string {
	if groupID != "" {
		return "/v1/group-wallets/" + groupID + "/wallets/" + walletID + "/dummy-transactions/" + dummyTxID
	}
	return "/v1/user-wallets/wallets/" + walletID + "/dummy-transactions/" + dummyTxID
}

func (c *Client) GetDummyTransaction(ctx context.Context, groupID, walletID, dummyTxID string) (*types.DummyTransactionDTO, error) {
	var data dummyTransactionData
	if err := c.do(ctx, "GET", c.dummyTxPath(groupID, walletID, dummyTxID), nil, nil, nil, &data); err != nil {
		return nil, err
	}
	if data.DummyTransaction == nil {
		return nil, &types.RemoteError{Code: types.RemoteCodeNotFound, Message: "dummy transaction not found"}
	}
	return data.DummyTransaction, nil
}

// UpdateDummyTransaction submits the collected authorization headers; the
// server applies the underlying mutation once the threshold is met.
func (c *Client) UpdateDummyTransaction(ctx context.Context, headers map[string]string, groupID, walletID, dummyTxID string) (*types.DummyTransactionDTO, error) {
	var data dummyTransactionData
	if err := c.put(ctx, c.dummyTxPath(groupID, walletID, dummyTxID), headers, nil, &data); err != nil {
		return nil, err
	}
	if data.DummyTransaction == nil {
		return nil, fmt.Errorf("server returned an empty dummy transaction")
	}
	return data.DummyTransaction, nil
}

func (c *Client) DeleteDummyTransaction(ctx context.Context, groupID, walletID, dummyTxID string) error {
	return c.delete(ctx, c.dummyTxPath(groupID, walletID, dummyTxID), nil, nil)
}

// FinalizeDummyTransaction marks a fully signed dummy transaction as
// executed and returns the authoritative record.
func (c *Client) FinalizeDummyTransaction(ctx context.Context, groupID, walletID, dummyTxID string) (*types.DummyTransactionDTO, error) {
	var data dummyTransactionData
	if err := c.post(ctx, c.dummyTxPath(groupID, walletID, dummyTxID)+"/finalize", nil, nil, &data); err != nil {
		return nil, err
	}
	if data.DummyTransaction == nil {
		return nil, fmt.Errorf("server returned an empty dummy transaction")
	}
	return data.DummyTransaction, nil
}

// --- threshold-gated account/wallet actions ---

// LockdownUpdate commits an emergency lockdown (personal or group scope is
// carried inside the envelope body).
func (c *Client) LockdownUpdate(ctx context.Context, headers map[string]string, groupID string, envelope types.UserDataEnvelope) error {
	path := "/v1/user-wallets/lockdown/lock"
	if groupID != "" {
		path = "/v1/group-wallets/" + groupID + "/lockdown/lock"
	}
	return c.post(ctx, path, headers, envelope, nil)
}

type lockdownPeriodsData struct {
	Periods []types.LockdownPeriod `json:"periods"`
}

func (c *Client) GetLockdownPeriods(ctx context.Context) ([]types.LockdownPeriod, error) {
	var data lockdownPeriodsData
	if err := c.get(ctx, "/v1/user-wallets/lockdown/period", nil, &data); err != nil {
		return nil, err
	}
	return data.Periods, nil
}

// ChangeEmail commits an account email change.
func (c *Client) ChangeEmail(ctx context.Context, headers map[string]string, envelope types.UserDataEnvelope) error {
	return c.post(ctx, "/v1/user-wallets/change-email", headers, envelope, nil)
}

// --- inheritance ---

type inheritanceData struct {
	Inheritance *types.InheritanceDTO `json:"inheritance"`
}

func (c *Client) GetInheritance(ctx context.Context, walletID, groupID string) (*types.InheritanceDTO, error) {
	q := url.Values{}
	if groupID != "" {
		q.Set("group_id", groupID)
	}
	var data inheritanceData
	if err := c.get(ctx, "/v1/user-wallets/wallets/"+walletID+"/inheritance", q, &data); err != nil {
		return nil, err
	}
	return data.Inheritance, nil
}

// CreateInheritance proposes or commits an inheritance plan; draft runs
// the server-side dry check without committing.
func (c *Client) CreateInheritance(ctx context.Context, headers map[string]string, envelope types.UserDataEnvelope, draft bool) (*types.InheritanceDTO, error) {
	path := "/v1/user-wallets/inheritance"
	if draft {
		path += "?draft=true"
	}
	var data inheritanceData
	if err := c.post(ctx, path, headers, envelope, &data); err != nil {
		return nil, err
	}
	return data.Inheritance, nil
}

func (c *Client) UpdateInheritance(ctx context.Context, headers map[string]string, envelope types.UserDataEnvelope, draft bool) (*types.InheritanceDTO, error) {
	path := "/v1/user-wallets/inheritance"
	if draft {
		path += "?draft=true"
	}
	var data inheritanceData
	if err := c.put(ctx, path, headers, envelope, &data); err != nil {
		return nil, err
	}
	return data.Inheritance, nil
}

func (c *Client) CancelInheritance(ctx context.Context, headers map[string]string, envelope types.UserDataEnvelope) error {
	return c.post(ctx, "/v1/user-wallets/inheritance/cancel", headers, envelope, nil)
}

// RequestPlanningInheritance notifies co-signers that a plan change is
// being drafted.
func (c *Client) RequestPlanningInheritance(ctx context.Context, groupID, walletID string) error {
	body := map[string]string{"group_id": groupID, "wallet_id": walletID}
	return c.post(ctx, "/v1/user-wallets/inheritance/request-planning", nil, body, nil)
}

// --- key recovery ---

// RequestRecoverKey opens a key-recovery ticket for the given xfp.
func (c *Client) RequestRecoverKey(ctx context.Context, headers map[string]string, xfp string, envelope types.UserDataEnvelope) error {
	return c.post(ctx, "/v1/user-wallets/keys/"+xfp+"/recover", headers, envelope, nil)
}

// MarkKeyRecovered reports the recovery outcome back to the service.
func (c *Client) MarkKeyRecovered(ctx context.Context, xfp, status string) error {
	body := map[string]string{"status": status}
	return c.post(ctx, "/v1/user-wallets/keys/"+xfp+"/mark-recover-status", nil, body, nil)
}
