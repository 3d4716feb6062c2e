package reconcile

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/opencustody/walletsync/contexthelper"
	"github.com/opencustody/walletsync/internal/remote"
	"github.com/opencustody/walletsync/internal/types"
)

// SyncGroups converges the cached group roster onto the server's. A fetch
// failure aborts before any local mutation. Returns whether membership
// changed.
func (r *Reconciler) SyncGroups(ctx context.Context, scope types.Scope) (bool, error) {
	if err := contexthelper.CheckCancellation(ctx); err != nil {
		return false, err
	}

	dtos, err := r.client.GetGroups(ctx)
	if err != nil {
		return false, fmt.Errorf("fail to fetch groups: %w", err)
	}

	local, err := r.cache.GetGroups(ctx, scope)
	if err != nil {
		return false, fmt.Errorf("fail to load cached groups: %w", err)
	}

	fresh := make([]types.Group, 0, len(dtos))
	for _, dto := range dtos {
		fresh = append(fresh, dto.ToGroup())
	}

	upserts, deleteIDs, changed := diff(local, fresh,
		func(g types.Group) string { return g.ID },
		func(_ types.Group, _ bool, g types.Group) types.Group { return g },
	)

	if err := r.cache.ApplyGroups(ctx, scope, upserts, deleteIDs); err != nil {
		return false, fmt.Errorf("fail to apply group merge: %w", err)
	}

	r.logger.WithFields(logrus.Fields{
		"upserts": len(upserts),
		"deletes": len(deleteIDs),
	}).Info("synced groups")
	return changed, nil
}

// SyncGroup refreshes one group in place. A remote not-found deletes the
// cached row.
func (r *Reconciler) SyncGroup(ctx context.Context, scope types.Scope, groupID string) error {
	dto, err := r.client.GetGroup(ctx, groupID)
	if err != nil {
		if types.IsRemoteNotFound(err) {
			return r.cache.ApplyGroups(ctx, scope, nil, []string{groupID})
		}
		return fmt.Errorf("fail to fetch group %s: %w", groupID, err)
	}
	g := dto.ToGroup()
	return r.cache.ApplyGroups(ctx, scope, []types.Group{g}, nil)
}

// SyncAlerts pages through the server's alert feed until a short page and
// converges the cached set. The payload stays serialized as fetched.
func (r *Reconciler) SyncAlerts(ctx context.Context, scope types.Scope, groupID, walletID string) (int, error) {
	var fresh []types.Alert
	offset := 0
	for {
		if err := contexthelper.CheckCancellation(ctx); err != nil {
			return 0, err
		}
		page, err := r.client.GetAlerts(ctx, groupID, walletID, offset, remote.PageSize)
		if err != nil {
			return 0, fmt.Errorf("fail to fetch alerts: %w", err)
		}
		for _, dto := range page {
			fresh = append(fresh, dto.ToAlert(groupID, walletID))
		}
		if len(page) < remote.PageSize {
			break
		}
		offset += remote.PageSize
	}

	local, err := r.cache.GetAlerts(ctx, scope, groupID, walletID)
	if err != nil {
		return 0, fmt.Errorf("fail to load cached alerts: %w", err)
	}

	upserts, deleteIDs, _ := diff(local, fresh,
		func(a types.Alert) string { return a.ID },
		func(_ types.Alert, _ bool, a types.Alert) types.Alert { return a },
	)

	if err := r.cache.ApplyAlerts(ctx, scope, groupID, walletID, upserts, deleteIDs); err != nil {
		return 0, fmt.Errorf("fail to apply alert merge: %w", err)
	}
	return len(fresh), nil
}

// SyncKeyHealth converges the cached per-key health records for a wallet.
func (r *Reconciler) SyncKeyHealth(ctx context.Context, scope types.Scope, groupID, walletID string) error {
	dtos, err := r.client.GetWalletHealthStatus(ctx, groupID, walletID)
	if err != nil {
		return fmt.Errorf("fail to fetch key health: %w", err)
	}

	local, err := r.cache.GetKeyHealth(ctx, scope, groupID, walletID)
	if err != nil {
		return fmt.Errorf("fail to load cached key health: %w", err)
	}

	fresh := make([]types.KeyHealth, 0, len(dtos))
	for _, dto := range dtos {
		fresh = append(fresh, dto.ToKeyHealth(groupID, walletID))
	}

	upserts, deleteXfps, _ := diff(local, fresh,
		func(k types.KeyHealth) string { return k.Xfp },
		func(_ types.KeyHealth, _ bool, k types.KeyHealth) types.KeyHealth { return k },
	)

	if err := r.cache.ApplyKeyHealth(ctx, scope, groupID, walletID, upserts, deleteXfps); err != nil {
		return fmt.Errorf("fail to apply key health merge: %w", err)
	}
	return nil
}

// SyncSavedAddresses converges the user's labelled address book.
func (r *Reconciler) SyncSavedAddresses(ctx context.Context, scope types.Scope) error {
	fresh, err := r.client.GetSavedAddresses(ctx)
	if err != nil {
		return fmt.Errorf("fail to fetch saved addresses: %w", err)
	}

	local, err := r.cache.GetSavedAddresses(ctx, scope)
	if err != nil {
		return fmt.Errorf("fail to load cached saved addresses: %w", err)
	}

	upserts, deleteAddrs, _ := diff(local, fresh,
		func(a types.SavedAddress) string { return a.Address },
		func(_ types.SavedAddress, _ bool, a types.SavedAddress) types.SavedAddress { return a },
	)

	if err := r.cache.ApplySavedAddresses(ctx, scope, upserts, deleteAddrs); err != nil {
		return fmt.Errorf("fail to apply saved address merge: %w", err)
	}
	return nil
}
