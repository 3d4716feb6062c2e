package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/opencustody/walletsync/internal/types"
)

// SaveWalletToStore materializes a server wallet record into the embedded
// wallet store: the wallet itself is synthesized from the descriptor when
// absent, signer metadata is created or refreshed, and keys orphaned by
// the update are swept unless the server says otherwise.
func (r *Reconciler) SaveWalletToStore(ctx context.Context, scope types.Scope, dto types.WalletDTO) error {
	if dto.LocalID == "" {
		return fmt.Errorf("server wallet %s carries no local id", dto.ID)
	}

	var prevSigners []types.Signer
	if existing, ok := r.store.GetWallet(dto.LocalID); ok {
		prevSigners = existing.Signers
		changed := existing.Name != dto.Name || existing.Description != dto.Description
		if dto.Bsms != "" {
			parsed, err := r.store.ParseDescriptor(dto.Bsms)
			if err != nil {
				return fmt.Errorf("fail to parse descriptor for wallet %s: %w", dto.LocalID, err)
			}
			if !sameRoster(existing.Signers, parsed.Signers) {
				existing.M = parsed.M
				existing.N = parsed.N
				existing.Signers = parsed.Signers
				changed = true
			}
		}
		if changed {
			existing.Name = dto.Name
			existing.Description = dto.Description
			if err := r.store.UpdateWallet(existing); err != nil {
				return fmt.Errorf("fail to update wallet %s: %w", dto.LocalID, err)
			}
		}
	} else {
		if dto.Bsms == "" {
			return fmt.Errorf("server wallet %s is unknown locally and carries no descriptor", dto.LocalID)
		}
		w, err := r.store.ParseDescriptor(dto.Bsms)
		if err != nil {
			return fmt.Errorf("fail to parse descriptor for wallet %s: %w", dto.LocalID, err)
		}
		w.ID = dto.LocalID
		w.Name = dto.Name
		w.Description = dto.Description
		w.CreateDate = dto.CreatedTimeMillis / 1000
		if err := r.store.CreateWallet(w); err != nil {
			return fmt.Errorf("fail to create wallet %s: %w", dto.LocalID, err)
		}
		r.logger.WithFields(logrus.Fields{
			"wallet": dto.LocalID,
			"m":      w.M,
			"n":      w.N,
		}).Info("materialized wallet from descriptor")
	}

	for _, sd := range dto.Signers {
		if err := r.saveSigner(sd); err != nil {
			return err
		}
	}

	// REPLACED wallets keep their keys: the replacement flow still needs
	// them to prove continuity
	if dto.RemoveUnusedKeys && dto.Status != string(types.WalletStatusReplaced) {
		r.sweepOrphanedSigners(prevSigners)
	}
	return nil
}

// sameRoster compares two signer rosters by identity key, ignoring
// metadata.
func sameRoster(a, b []types.Signer) bool {
	if len(a) != len(b) {
		return false
	}
	keys := make(map[string]bool, len(a))
	for _, sg := range a {
		keys[sg.Key()] = true
	}
	for _, sg := range b {
		if !keys[sg.Key()] {
			return false
		}
	}
	return true
}

// saveSigner creates the signer if new, otherwise refreshes the metadata
// the server owns. Master signers keep their local key material untouched.
func (r *Reconciler) saveSigner(sd types.SignerDTO) error {
	sg := sd.ToSigner()
	if sg.MasterFingerprint == "" {
		return nil
	}

	if _, ok := r.store.GetMasterSigner(sg.MasterFingerprint); ok {
		if err := r.store.UpdateMasterSigner(sg.MasterFingerprint, sg.Name, sg.Tags, sg.Visible); err != nil {
			return fmt.Errorf("fail to update master signer %s: %w", sg.MasterFingerprint, err)
		}
		return nil
	}

	if r.store.HasSigner(sg.MasterFingerprint, sg.DerivationPath) {
		if err := r.store.UpdateRemoteSigner(sg.MasterFingerprint, sg.DerivationPath, sg.Name, sg.Tags, sg.Visible); err != nil {
			return fmt.Errorf("fail to update signer %s: %w", sg.Key(), err)
		}
		return nil
	}

	if err := r.store.CreateSigner(sg); err != nil {
		if errors.Is(err, types.ErrDuplicateKey) {
			return nil
		}
		return fmt.Errorf("fail to create signer %s: %w", sg.Key(), err)
	}
	return nil
}

// sweepOrphanedSigners deletes remote signers that no wallet references
// anymore. Master signers always survive the sweep.
func (r *Reconciler) sweepOrphanedSigners(candidates []types.Signer) {
	for _, sg := range candidates {
		if sg.Type == types.SignerTypeMaster {
			continue
		}
		// the roster copy may be stale on type; trust the stored record
		if stored, ok := r.store.GetSigner(sg.MasterFingerprint, sg.DerivationPath); ok && stored.Type == types.SignerTypeMaster {
			continue
		}
		if len(r.store.SignerWalletRefs(sg.MasterFingerprint, sg.DerivationPath)) > 0 {
			continue
		}
		if err := r.store.DeleteSigner(sg.MasterFingerprint, sg.DerivationPath); err != nil {
			r.logger.WithFields(logrus.Fields{
				"signer": sg.Key(),
				"error":  err,
			}).Warn("fail to sweep orphaned signer")
		}
	}
}
