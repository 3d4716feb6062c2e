package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/opencustody/walletsync/internal/auth"
	"github.com/opencustody/walletsync/internal/types"
)

// GetInheritance fetches the wallet's inheritance plan and mirrors the
// inheritance flag onto the cached wallet row and the enrolled signer's
// tags.
func (e *Engine) GetInheritance(ctx context.Context, scope types.Scope, walletID, groupID string) (types.Inheritance, error) {
	dto, err := e.client.GetInheritance(ctx, walletID, groupID)
	if err != nil {
		return types.Inheritance{}, fmt.Errorf("fail to fetch inheritance plan: %w", err)
	}
	plan := dto.ToInheritance()

	if row, ok, err := e.cache.GetAssistedWallet(ctx, scope, plan.WalletLocalID); err == nil && ok {
		active := plan.Status == types.InheritanceStatusActive || plan.Status == types.InheritanceStatusPendingApproval
		if row.IsSetupInheritance != active {
			row.IsSetupInheritance = active
			if err := e.cache.UpsertAssistedWallets(ctx, scope, []types.AssistedWallet{row}); err != nil {
				return types.Inheritance{}, err
			}
		}
	}
	return plan, nil
}

func (e *Engine) signedEnvelope(ctx context.Context, body json.RawMessage) (types.UserDataEnvelope, error) {
	nonce, err := e.auth.NextNonce(ctx)
	if err != nil {
		return types.UserDataEnvelope{}, fmt.Errorf("fail to fetch nonce: %w", err)
	}
	return types.UserDataEnvelope{Nonce: nonce, Body: body}, nil
}

// CreateInheritancePlan commits a new plan with collected signatures.
func (e *Engine) CreateInheritancePlan(ctx context.Context, scope types.Scope, body json.RawMessage, pairs []auth.SignaturePair, opts auth.HeaderOptions, draft bool) (types.Inheritance, error) {
	envelope, err := e.signedEnvelope(ctx, body)
	if err != nil {
		return types.Inheritance{}, err
	}
	dto, err := e.client.CreateInheritance(ctx, auth.BuildHeaders(pairs, opts), envelope, draft)
	if err != nil {
		return types.Inheritance{}, fmt.Errorf("fail to create inheritance plan: %w", err)
	}
	return dto.ToInheritance(), nil
}

// UpdateInheritancePlan commits plan changes with collected signatures.
func (e *Engine) UpdateInheritancePlan(ctx context.Context, scope types.Scope, body json.RawMessage, pairs []auth.SignaturePair, opts auth.HeaderOptions, draft bool) (types.Inheritance, error) {
	envelope, err := e.signedEnvelope(ctx, body)
	if err != nil {
		return types.Inheritance{}, err
	}
	dto, err := e.client.UpdateInheritance(ctx, auth.BuildHeaders(pairs, opts), envelope, draft)
	if err != nil {
		return types.Inheritance{}, fmt.Errorf("fail to update inheritance plan: %w", err)
	}
	return dto.ToInheritance(), nil
}

// CancelInheritancePlan withdraws the plan with collected signatures.
func (e *Engine) CancelInheritancePlan(ctx context.Context, scope types.Scope, body json.RawMessage, pairs []auth.SignaturePair, opts auth.HeaderOptions) error {
	envelope, err := e.signedEnvelope(ctx, body)
	if err != nil {
		return err
	}
	if err := e.client.CancelInheritance(ctx, auth.BuildHeaders(pairs, opts), envelope); err != nil {
		return fmt.Errorf("fail to cancel inheritance plan: %w", err)
	}
	return nil
}

// RequestPlanningInheritance notifies the wallet owner that a beneficiary
// wants to start planning.
func (e *Engine) RequestPlanningInheritance(ctx context.Context, groupID, walletID string) error {
	return e.client.RequestPlanningInheritance(ctx, groupID, walletID)
}

// RequestRecoverKey opens a gated recovery of a backed-up key.
func (e *Engine) RequestRecoverKey(ctx context.Context, scope types.Scope, xfp string, body json.RawMessage, pairs []auth.SignaturePair, opts auth.HeaderOptions) error {
	envelope, err := e.signedEnvelope(ctx, body)
	if err != nil {
		return err
	}
	if err := e.client.RequestRecoverKey(ctx, auth.BuildHeaders(pairs, opts), xfp, envelope); err != nil {
		return fmt.Errorf("fail to request key recovery: %w", err)
	}
	return nil
}

// MarkKeyRecovered reports the recovery outcome back to the service.
func (e *Engine) MarkKeyRecovered(ctx context.Context, xfp, status string) error {
	return e.client.MarkKeyRecovered(ctx, xfp, status)
}
