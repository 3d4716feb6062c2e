// Package storagetest provides an in-memory storage.Cache for tests.
package storagetest

import (
	"context"
	"sync"

	"github.com/opencustody/walletsync/internal/types"
	"github.com/opencustody/walletsync/storage"
)

var _ storage.Cache = (*Cache)(nil)

// Cache keeps every table in plain maps. It ignores the scope: tests run
// under a single account and network.
type Cache struct {
	mu sync.Mutex

	Wallets   map[string]types.AssistedWallet
	Groups    map[string]types.Group
	Alerts    map[string]types.Alert
	KeyHealth map[string]types.KeyHealth
	Requests  map[string]types.RequestAddKey
	Addresses map[string]types.SavedAddress
	Steps     map[string]types.MembershipStepInfo
	DummyTxs  map[string]types.DummyTransaction
}

func New() *Cache {
	return &Cache{
		Wallets:   make(map[string]types.AssistedWallet),
		Groups:    make(map[string]types.Group),
		Alerts:    make(map[string]types.Alert),
		KeyHealth: make(map[string]types.KeyHealth),
		Requests:  make(map[string]types.RequestAddKey),
		Addresses: make(map[string]types.SavedAddress),
		Steps:     make(map[string]types.MembershipStepInfo),
		DummyTxs:  make(map[string]types.DummyTransaction),
	}
}

func (c *Cache) Close() error { return nil }

func (c *Cache) GetAssistedWallets(_ context.Context, _ types.Scope) ([]types.AssistedWallet, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]types.AssistedWallet, 0, len(c.Wallets))
	for _, w := range c.Wallets {
		out = append(out, w)
	}
	return out, nil
}

func (c *Cache) GetAssistedWallet(_ context.Context, _ types.Scope, localID string) (types.AssistedWallet, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	w, ok := c.Wallets[localID]
	return w, ok, nil
}

func (c *Cache) UpsertAssistedWallets(_ context.Context, _ types.Scope, wallets []types.AssistedWallet) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, w := range wallets {
		c.Wallets[w.LocalID] = w
	}
	return nil
}

func (c *Cache) DeleteAssistedWallet(_ context.Context, _ types.Scope, localID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.Wallets, localID)
	return nil
}

func (c *Cache) DeletePersonalWalletsExcept(_ context.Context, _ types.Scope, keep []string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	keepSet := make(map[string]bool, len(keep))
	for _, id := range keep {
		keepSet[id] = true
	}
	var purged int64
	for id, w := range c.Wallets {
		if w.GroupID == "" && !keepSet[id] {
			delete(c.Wallets, id)
			purged++
		}
	}
	return purged, nil
}

func (c *Cache) GetGroups(_ context.Context, _ types.Scope) ([]types.Group, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]types.Group, 0, len(c.Groups))
	for _, g := range c.Groups {
		out = append(out, g)
	}
	return out, nil
}

func (c *Cache) ApplyGroups(_ context.Context, _ types.Scope, upserts []types.Group, deleteIDs []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, g := range upserts {
		c.Groups[g.ID] = g
	}
	for _, id := range deleteIDs {
		delete(c.Groups, id)
	}
	return nil
}

func (c *Cache) GetAlerts(_ context.Context, _ types.Scope, groupID, walletID string) ([]types.Alert, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []types.Alert
	for _, a := range c.Alerts {
		if a.GroupID == groupID && a.WalletID == walletID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (c *Cache) ApplyAlerts(_ context.Context, _ types.Scope, _, _ string, upserts []types.Alert, deleteIDs []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, a := range upserts {
		c.Alerts[a.ID] = a
	}
	for _, id := range deleteIDs {
		delete(c.Alerts, id)
	}
	return nil
}

func (c *Cache) GetKeyHealth(_ context.Context, _ types.Scope, groupID, walletID string) ([]types.KeyHealth, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []types.KeyHealth
	for _, k := range c.KeyHealth {
		if k.GroupID == groupID && k.WalletID == walletID {
			out = append(out, k)
		}
	}
	return out, nil
}

func (c *Cache) ApplyKeyHealth(_ context.Context, _ types.Scope, _, _ string, upserts []types.KeyHealth, deleteXfps []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range upserts {
		c.KeyHealth[k.Xfp] = k
	}
	for _, xfp := range deleteXfps {
		delete(c.KeyHealth, xfp)
	}
	return nil
}

func (c *Cache) GetRequestAddKey(_ context.Context, _ types.Scope, step types.MembershipStep, tagSet, groupID string) (types.RequestAddKey, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, req := range c.Requests {
		if req.Step == step && req.TagSet == tagSet && req.GroupID == groupID {
			return req, true, nil
		}
	}
	return types.RequestAddKey{}, false, nil
}

func (c *Cache) GetRequestAddKeys(_ context.Context, _ types.Scope, groupID string) ([]types.RequestAddKey, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []types.RequestAddKey
	for _, req := range c.Requests {
		if req.GroupID == groupID {
			out = append(out, req)
		}
	}
	return out, nil
}

func (c *Cache) InsertRequestAddKey(_ context.Context, _ types.Scope, req types.RequestAddKey) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, existing := range c.Requests {
		if existing.Step == req.Step && existing.TagSet == req.TagSet && existing.GroupID == req.GroupID {
			delete(c.Requests, id)
		}
	}
	c.Requests[req.RequestID] = req
	return nil
}

func (c *Cache) DeleteRequestAddKey(_ context.Context, _ types.Scope, requestID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.Requests, requestID)
	return nil
}

func (c *Cache) GetSavedAddresses(_ context.Context, _ types.Scope) ([]types.SavedAddress, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]types.SavedAddress, 0, len(c.Addresses))
	for _, a := range c.Addresses {
		out = append(out, a)
	}
	return out, nil
}

func (c *Cache) ApplySavedAddresses(_ context.Context, _ types.Scope, upserts []types.SavedAddress, deleteAddresses []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, a := range upserts {
		c.Addresses[a.Address] = a
	}
	for _, addr := range deleteAddresses {
		delete(c.Addresses, addr)
	}
	return nil
}

func (c *Cache) GetMembershipSteps(_ context.Context, _ types.Scope, groupID string) ([]types.MembershipStepInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []types.MembershipStepInfo
	for _, s := range c.Steps {
		if s.GroupID == groupID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (c *Cache) SaveMembershipStep(_ context.Context, _ types.Scope, step types.MembershipStepInfo) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Steps[step.GroupID+"/"+string(step.Step)] = step
	return nil
}

func (c *Cache) DeleteMembershipSteps(_ context.Context, _ types.Scope, groupID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, s := range c.Steps {
		if s.GroupID == groupID {
			delete(c.Steps, k)
		}
	}
	return nil
}

func (c *Cache) SaveDummyTransaction(_ context.Context, _ types.Scope, tx types.DummyTransaction) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.DummyTxs[tx.ID] = tx
	return nil
}

func (c *Cache) GetDummyTransaction(_ context.Context, _ types.Scope, id string) (types.DummyTransaction, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tx, ok := c.DummyTxs[id]
	return tx, ok, nil
}

func (c *Cache) DeleteDummyTransaction(_ context.Context, _ types.Scope, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.DummyTxs, id)
	return nil
}
