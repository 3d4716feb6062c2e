package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/opencustody/walletsync/internal/remote"
	"github.com/opencustody/walletsync/internal/types"
	"github.com/opencustody/walletsync/internal/validation"
)

func tagSetKey(tags []string) string {
	sorted := append([]string(nil), tags...)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}

// RequestAddKey asks an external device to contribute a key for the given
// step. If a ticket for the same (step, tags, group) slot already exists
// it is re-pushed instead of duplicated; a genuinely new request
// supersedes whatever held the slot.
func (e *Engine) RequestAddKey(ctx context.Context, scope types.Scope, groupID string, step types.MembershipStep, tags []string, keyIndex int) (types.RequestAddKey, error) {
	tagSet := tagSetKey(tags)

	if existing, ok, err := e.cache.GetRequestAddKey(ctx, scope, step, tagSet, groupID); err == nil && ok {
		if err := e.client.PushRequestAddKey(ctx, existing.RequestID); err == nil {
			return existing, nil
		}
		// stale ticket; fall through and open a fresh one
	}

	dto, err := e.client.RequestAddKey(ctx, groupID, remote.RequestAddKeyPayload{Tags: tags, KeyIndex: keyIndex})
	if err != nil {
		return types.RequestAddKey{}, fmt.Errorf("fail to request add key: %w", err)
	}
	req := types.RequestAddKey{
		RequestID: dto.ID,
		Step:      step,
		TagSet:    tagSet,
		GroupID:   groupID,
	}
	if err := e.cache.InsertRequestAddKey(ctx, scope, req); err != nil {
		return types.RequestAddKey{}, fmt.Errorf("fail to track add-key request: %w", err)
	}
	return req, nil
}

// CheckKeyAdded polls one add-key ticket. A completed ticket yields the
// contributed signer and closes the ticket. A ticket the server no longer
// knows means the request was resolved or withdrawn elsewhere: the local
// row is purged and ErrPendingActionGone is returned so the caller treats
// it as a cancellation.
func (e *Engine) CheckKeyAdded(ctx context.Context, scope types.Scope, req types.RequestAddKey) (*types.Signer, error) {
	dto, err := e.client.GetRequestAddKeyStatus(ctx, req.GroupID, req.RequestID)
	if err != nil {
		return nil, fmt.Errorf("fail to check add-key request %s: %w", req.RequestID, err)
	}
	if dto == nil {
		if err := e.cache.DeleteRequestAddKey(ctx, scope, req.RequestID); err != nil {
			return nil, err
		}
		return nil, types.ErrPendingActionGone
	}
	if dto.Status != types.RequestAddKeyStatusCompleted || dto.Key == nil {
		return nil, nil
	}

	sg := dto.Key.ToSigner()
	if !e.store.HasSigner(sg.MasterFingerprint, sg.DerivationPath) {
		if err := e.store.CreateSigner(sg); err != nil && !errors.Is(err, types.ErrDuplicateKey) {
			return nil, fmt.Errorf("fail to store contributed key: %w", err)
		}
	}
	if err := e.cache.DeleteRequestAddKey(ctx, scope, req.RequestID); err != nil {
		return nil, err
	}
	return &sg, nil
}

// CancelRequestAddKey withdraws a pending ticket on both sides.
func (e *Engine) CancelRequestAddKey(ctx context.Context, scope types.Scope, req types.RequestAddKey) error {
	if err := e.client.CancelRequestAddKey(ctx, req.GroupID, req.RequestID); err != nil && !types.IsRemoteNotFound(err) {
		return fmt.Errorf("fail to cancel add-key request %s: %w", req.RequestID, err)
	}
	return e.cache.DeleteRequestAddKey(ctx, scope, req.RequestID)
}

// GetDraftWallet fetches the group wallet under construction.
func (e *Engine) GetDraftWallet(ctx context.Context, groupID string) (*types.DraftWallet, error) {
	return e.client.GetDraftWallet(ctx, groupID)
}

// AddDraftWalletKey contributes a key to the draft. A duplicate comes back
// as types.ErrDuplicateKey.
func (e *Engine) AddDraftWalletKey(ctx context.Context, groupID string, signer types.SignerDTO) error {
	if err := validation.Validate.Struct(signer); err != nil {
		return fmt.Errorf("invalid signer: %w", err)
	}
	return e.client.AddDraftWalletKey(ctx, groupID, signer)
}

// CreateGroupWallet finalizes the draft into a wallet and materializes it
// locally.
func (e *Engine) CreateGroupWallet(ctx context.Context, scope types.Scope, groupID, name string) (types.AssistedWallet, error) {
	dto, err := e.client.CreateGroupWallet(ctx, groupID, name)
	if err != nil {
		return types.AssistedWallet{}, fmt.Errorf("fail to create group wallet: %w", err)
	}
	if err := e.rec.SaveWalletToStore(ctx, scope, *dto); err != nil {
		return types.AssistedWallet{}, err
	}
	row := dto.ToBrief()
	if err := e.cache.UpsertAssistedWallets(ctx, scope, []types.AssistedWallet{row}); err != nil {
		return types.AssistedWallet{}, fmt.Errorf("fail to cache group wallet: %w", err)
	}
	// construction is done; the step records served their purpose
	if err := e.cache.DeleteMembershipSteps(ctx, scope, groupID); err != nil {
		return types.AssistedWallet{}, err
	}
	return row, nil
}

// SaveMembershipStep records progress through the wallet-construction
// steps.
func (e *Engine) SaveMembershipStep(ctx context.Context, scope types.Scope, step types.MembershipStepInfo) error {
	return e.cache.SaveMembershipStep(ctx, scope, step)
}

// GetMembershipSteps lists recorded construction progress for a group.
func (e *Engine) GetMembershipSteps(ctx context.Context, scope types.Scope, groupID string) ([]types.MembershipStepInfo, error) {
	return e.cache.GetMembershipSteps(ctx, scope, groupID)
}
