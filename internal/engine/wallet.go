package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/opencustody/walletsync/contexthelper"
	"github.com/opencustody/walletsync/internal/auth"
	"github.com/opencustody/walletsync/internal/remote"
	"github.com/opencustody/walletsync/internal/types"
)

// GetServerWallets runs the full wallet sync pass: every wallet the
// service reports (including claim-flow wallets) is materialized into the
// wallet store and mirrored into the cache, rows the server no longer
// reports are purged, and the assisted-key set is refreshed.
func (e *Engine) GetServerWallets(ctx context.Context, scope types.Scope) (types.WalletSyncResult, error) {
	result := types.WalletSyncResult{KeyPolicies: make(map[string]types.KeyPolicy)}

	dtos, err := e.client.GetServerWallets(ctx)
	if err != nil {
		return result, fmt.Errorf("fail to fetch server wallets: %w", err)
	}

	claiming, err := e.fetchClaimingWallets(ctx)
	if err != nil {
		return result, err
	}
	dtos = append(dtos, claiming...)

	var (
		keep    []string
		upserts []types.AssistedWallet
		xfpSeen = make(map[string]struct{})
	)
	for _, dto := range dtos {
		if err := contexthelper.CheckCancellation(ctx); err != nil {
			return result, err
		}
		if dto.LocalID == "" {
			continue
		}
		if !e.store.HasWallet(dto.LocalID) {
			result.NeedReload = true
		}
		if err := e.rec.SaveWalletToStore(ctx, scope, dto); err != nil {
			e.logger.WithFields(logrus.Fields{
				"wallet": dto.LocalID,
				"error":  err,
			}).Error("fail to materialize server wallet")
			continue
		}

		row := dto.ToBrief()
		if existing, ok, err := e.cache.GetAssistedWallet(ctx, scope, dto.LocalID); err == nil && ok {
			row.IsSetupInheritance = existing.IsSetupInheritance
			row.RegisterColdcardCount = existing.RegisterColdcardCount
			row.RegisterAirgapCount = existing.RegisterAirgapCount
			row.ReplaceSignerTypes = existing.ReplaceSignerTypes
			row.Ext = existing.Ext
		}
		upserts = append(upserts, row)
		keep = append(keep, dto.LocalID)

		if dto.ServerKey != nil {
			result.KeyPolicies[dto.LocalID] = dto.ServerKey.Policies.ToKeyPolicy()
		}
		for _, sd := range dto.Signers {
			if sd.Xfp == "" {
				continue
			}
			if _, seen := xfpSeen[sd.Xfp]; !seen {
				xfpSeen[sd.Xfp] = struct{}{}
				result.AssistedXfps = append(result.AssistedXfps, sd.Xfp)
			}
		}
	}

	if err := e.cache.UpsertAssistedWallets(ctx, scope, upserts); err != nil {
		return result, fmt.Errorf("fail to upsert assisted wallets: %w", err)
	}
	purged, err := e.cache.DeletePersonalWalletsExcept(ctx, scope, keep)
	if err != nil {
		return result, fmt.Errorf("fail to purge stale wallets: %w", err)
	}
	if purged > 0 {
		result.NeedReload = true
	}

	if e.redis != nil {
		if err := e.redis.SetAssistedKeys(ctx, scope, result.AssistedXfps); err != nil {
			e.logger.WithError(err).Error("fail to refresh assisted-key set")
		}
	}

	e.count("walletsync.wallets.synced", int64(len(keep)), nil)
	return result, nil
}

func (e *Engine) fetchClaimingWallets(ctx context.Context) ([]types.WalletDTO, error) {
	var all []types.WalletDTO
	offset := 0
	for {
		if err := contexthelper.CheckCancellation(ctx); err != nil {
			return nil, err
		}
		page, err := e.client.GetClaimingWallets(ctx, offset, remote.PageSize, []string{string(types.WalletStatusActive)})
		if err != nil {
			return nil, fmt.Errorf("fail to fetch claiming wallets: %w", err)
		}
		all = append(all, page...)
		if len(page) < remote.PageSize {
			return all, nil
		}
		offset += remote.PageSize
	}
}

// ListAssistedWallets returns the cached wallet rows.
func (e *Engine) ListAssistedWallets(ctx context.Context, scope types.Scope) ([]types.AssistedWallet, error) {
	return e.cache.GetAssistedWallets(ctx, scope)
}

// GetWallet refreshes one wallet from the server and materializes it.
func (e *Engine) GetWallet(ctx context.Context, scope types.Scope, walletID string) (types.AssistedWallet, error) {
	dto, err := e.client.GetWallet(ctx, walletID)
	if err != nil {
		return types.AssistedWallet{}, fmt.Errorf("fail to fetch wallet %s: %w", walletID, err)
	}
	if err := e.rec.SaveWalletToStore(ctx, scope, *dto); err != nil {
		return types.AssistedWallet{}, err
	}
	row := dto.ToBrief()
	if existing, ok, err := e.cache.GetAssistedWallet(ctx, scope, dto.LocalID); err == nil && ok {
		row.IsSetupInheritance = existing.IsSetupInheritance
		row.RegisterColdcardCount = existing.RegisterColdcardCount
		row.RegisterAirgapCount = existing.RegisterAirgapCount
		row.ReplaceSignerTypes = existing.ReplaceSignerTypes
		row.Ext = existing.Ext
	}
	if err := e.cache.UpsertAssistedWallets(ctx, scope, []types.AssistedWallet{row}); err != nil {
		return types.AssistedWallet{}, fmt.Errorf("fail to cache wallet %s: %w", dto.LocalID, err)
	}
	return row, nil
}

// UpdateWalletName pushes a rename and refreshes local copies.
func (e *Engine) UpdateWalletName(ctx context.Context, scope types.Scope, groupID, walletID, name, description string) error {
	req := remote.UpdateWalletRequest{Name: name, Description: description}
	var (
		dto *types.WalletDTO
		err error
	)
	if groupID != "" {
		dto, err = e.client.UpdateGroupWallet(ctx, groupID, walletID, req)
	} else {
		dto, err = e.client.UpdateWallet(ctx, walletID, req)
	}
	if err != nil {
		return fmt.Errorf("fail to rename wallet %s: %w", walletID, err)
	}
	return e.rec.SaveWalletToStore(ctx, scope, *dto)
}

// UpdateAssistedWalletLocal persists the locally owned portion of a cache
// row; the next merge pass carries these fields forward untouched.
func (e *Engine) UpdateAssistedWalletLocal(ctx context.Context, scope types.Scope, row types.AssistedWallet) error {
	return e.cache.UpsertAssistedWallets(ctx, scope, []types.AssistedWallet{row})
}

// DeleteWallet is threshold-gated: the caller supplies co-signer
// signatures over a fresh nonce envelope. On success every local trace of
// the wallet goes away.
func (e *Engine) DeleteWallet(ctx context.Context, scope types.Scope, walletID, localID string, body json.RawMessage, pairs []auth.SignaturePair, opts auth.HeaderOptions) error {
	nonce, err := e.auth.NextNonce(ctx)
	if err != nil {
		return fmt.Errorf("fail to fetch nonce: %w", err)
	}
	envelope := types.UserDataEnvelope{Nonce: nonce, Body: body}
	headers := auth.BuildHeaders(pairs, opts)

	if err := e.client.DeleteWallet(ctx, walletID, headers, envelope); err != nil {
		return fmt.Errorf("fail to delete wallet %s: %w", walletID, err)
	}
	return e.purgeLocalWallet(ctx, scope, localID)
}

func (e *Engine) purgeLocalWallet(ctx context.Context, scope types.Scope, localID string) error {
	if err := e.cache.DeleteAssistedWallet(ctx, scope, localID); err != nil {
		return fmt.Errorf("fail to purge cached wallet %s: %w", localID, err)
	}
	if e.store.HasWallet(localID) {
		if err := e.store.DeleteWallet(localID); err != nil {
			return fmt.Errorf("fail to delete stored wallet %s: %w", localID, err)
		}
	}
	if e.blocks != nil {
		if err := e.blocks.DeleteDescriptorBackup(scope, localID); err != nil {
			e.logger.WithFields(logrus.Fields{"wallet": localID, "error": err}).Warn("fail to delete descriptor backup")
		}
	}
	return nil
}

// SyncDeletedWallets pages through the server's deleted-wallet feed and
// removes every local trace of each.
func (e *Engine) SyncDeletedWallets(ctx context.Context, scope types.Scope) (int, error) {
	removed := 0
	offset := 0
	for {
		if err := contexthelper.CheckCancellation(ctx); err != nil {
			return removed, err
		}
		page, err := e.client.GetDeletedWallets(ctx, offset, remote.PageSize)
		if err != nil {
			return removed, fmt.Errorf("fail to fetch deleted wallets: %w", err)
		}
		for _, localID := range page {
			if err := e.purgeLocalWallet(ctx, scope, localID); err != nil {
				e.logger.WithFields(logrus.Fields{"wallet": localID, "error": err}).Error("fail to purge deleted wallet")
				continue
			}
			removed++
		}
		if len(page) < remote.PageSize {
			break
		}
		offset += remote.PageSize
	}
	e.count("walletsync.wallets.deleted", int64(removed), nil)
	return removed, nil
}

// BackupWalletDescriptor exports the wallet's descriptor and stores it
// encrypted in block storage.
func (e *Engine) BackupWalletDescriptor(scope types.Scope, localID, passphrase string) error {
	if e.blocks == nil {
		return fmt.Errorf("block storage is not configured")
	}
	descriptor, err := e.store.ExportDescriptor(localID)
	if err != nil {
		return fmt.Errorf("fail to export descriptor for %s: %w", localID, err)
	}
	return e.blocks.BackupDescriptor(scope, localID, descriptor, passphrase)
}

// RestoreWalletDescriptor pulls a descriptor backup and materializes the
// wallet from it.
func (e *Engine) RestoreWalletDescriptor(scope types.Scope, localID, passphrase string) (types.Wallet, error) {
	if e.blocks == nil {
		return types.Wallet{}, fmt.Errorf("block storage is not configured")
	}
	descriptor, err := e.blocks.RestoreDescriptor(scope, localID, passphrase)
	if err != nil {
		return types.Wallet{}, err
	}
	w, err := e.store.ParseDescriptor(descriptor)
	if err != nil {
		return types.Wallet{}, fmt.Errorf("fail to parse restored descriptor: %w", err)
	}
	w.ID = localID
	if !e.store.HasWallet(localID) {
		if err := e.store.CreateWallet(w); err != nil {
			return types.Wallet{}, err
		}
	}
	return w, nil
}
