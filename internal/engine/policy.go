package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/opencustody/walletsync/internal/auth"
	"github.com/opencustody/walletsync/internal/types"
)

// ProposeKeyPolicyUpdate opens a threshold-gated server-key policy change.
// The returned envelope is what each co-signer signs before Commit.
func (e *Engine) ProposeKeyPolicyUpdate(ctx context.Context, scope types.Scope, groupID, keyIDOrXfp, derivationPath string, body json.RawMessage, opts auth.HeaderOptions, draft bool) (types.DummyTransaction, types.UserDataEnvelope, error) {
	submit := func(ctx context.Context, envelope types.UserDataEnvelope) (*types.DummyTransactionDTO, error) {
		headers := auth.BuildHeaders(nil, opts)
		if groupID != "" {
			return e.client.UpdateGroupServerKeys(ctx, headers, groupID, keyIDOrXfp, derivationPath, envelope, draft)
		}
		return e.client.UpdateServerKeys(ctx, headers, keyIDOrXfp, derivationPath, envelope)
	}
	return e.dummy.Propose(ctx, scope, groupID, body, submit)
}

// GetServerKey fetches the server co-signing key and its current policy.
func (e *Engine) GetServerKey(ctx context.Context, scope types.Scope, groupID, xfp, derivationPath string) (*types.ServerKeyDTO, error) {
	if groupID != "" {
		return e.client.GetGroupServerKey(ctx, groupID, xfp, derivationPath)
	}
	return e.client.GetServerKey(ctx, xfp, derivationPath)
}

// EmergencyLockdown commits a lockdown with the collected signatures. The
// nonce envelope is built fresh; the caller has already had co-signers
// sign the body through the proposal flow or carries enough verification
// tokens for a single-signer account.
func (e *Engine) EmergencyLockdown(ctx context.Context, scope types.Scope, groupID string, body json.RawMessage, pairs []auth.SignaturePair, opts auth.HeaderOptions) error {
	nonce, err := e.auth.NextNonce(ctx)
	if err != nil {
		return fmt.Errorf("fail to fetch nonce: %w", err)
	}
	envelope := types.UserDataEnvelope{Nonce: nonce, Body: body}
	headers := auth.BuildHeaders(pairs, opts)
	if err := e.client.LockdownUpdate(ctx, headers, groupID, envelope); err != nil {
		return fmt.Errorf("fail to apply lockdown: %w", err)
	}
	e.count("walletsync.lockdown.applied", 1, nil)
	return nil
}

// GetLockdownPeriods lists the durations the service offers.
func (e *Engine) GetLockdownPeriods(ctx context.Context) ([]types.LockdownPeriod, error) {
	return e.client.GetLockdownPeriods(ctx)
}

// ChangeEmail commits an account email change with collected signatures.
func (e *Engine) ChangeEmail(ctx context.Context, scope types.Scope, body json.RawMessage, pairs []auth.SignaturePair, opts auth.HeaderOptions) error {
	nonce, err := e.auth.NextNonce(ctx)
	if err != nil {
		return fmt.Errorf("fail to fetch nonce: %w", err)
	}
	envelope := types.UserDataEnvelope{Nonce: nonce, Body: body}
	headers := auth.BuildHeaders(pairs, opts)
	if err := e.client.ChangeEmail(ctx, headers, envelope); err != nil {
		return fmt.Errorf("fail to change email: %w", err)
	}
	return nil
}

// RequiredSignatures asks the server what an action needs before commit.
func (e *Engine) RequiredSignatures(ctx context.Context, path string, body any) (types.CalculateRequiredSignatures, error) {
	return e.client.CalculateRequiredSignatures(ctx, path, body)
}

// GetSecurityQuestions lists the account's recovery questions.
func (e *Engine) GetSecurityQuestions(ctx context.Context) ([]types.SecurityQuestion, error) {
	return e.client.GetSecurityQuestions(ctx)
}

// ConfigureSecurityQuestions sets or replaces the account's questions.
func (e *Engine) ConfigureSecurityQuestions(ctx context.Context, answers []types.QuestionAnswer) error {
	return e.client.ConfigSecurityQuestions(ctx, answers)
}
