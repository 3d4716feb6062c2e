// Package storage defines the local relational cache the sync engine
// drives. Every table is scoped by (chat id, chain) so multi-account and
// multi-network data stay isolated.
package storage

import (
	"context"

	"github.com/opencustody/walletsync/internal/types"
)

// Cache is the typed-table surface the reconciler and engine consume. The
// ApplyX calls execute their upsert batch and delete batch inside one
// database transaction: a merge pass either lands fully or not at all.
type Cache interface {
	Close() error

	GetAssistedWallets(ctx context.Context, scope types.Scope) ([]types.AssistedWallet, error)
	GetAssistedWallet(ctx context.Context, scope types.Scope, localID string) (types.AssistedWallet, bool, error)
	UpsertAssistedWallets(ctx context.Context, scope types.Scope, wallets []types.AssistedWallet) error
	DeleteAssistedWallet(ctx context.Context, scope types.Scope, localID string) error
	// DeletePersonalWalletsExcept removes every non-group wallet row whose
	// local id is not in keep, returning how many rows went away.
	DeletePersonalWalletsExcept(ctx context.Context, scope types.Scope, keep []string) (int64, error)

	GetGroups(ctx context.Context, scope types.Scope) ([]types.Group, error)
	ApplyGroups(ctx context.Context, scope types.Scope, upserts []types.Group, deleteIDs []string) error

	GetAlerts(ctx context.Context, scope types.Scope, groupID, walletID string) ([]types.Alert, error)
	ApplyAlerts(ctx context.Context, scope types.Scope, groupID, walletID string, upserts []types.Alert, deleteIDs []string) error

	GetKeyHealth(ctx context.Context, scope types.Scope, groupID, walletID string) ([]types.KeyHealth, error)
	ApplyKeyHealth(ctx context.Context, scope types.Scope, groupID, walletID string, upserts []types.KeyHealth, deleteXfps []string) error

	GetRequestAddKey(ctx context.Context, scope types.Scope, step types.MembershipStep, tagSet, groupID string) (types.RequestAddKey, bool, error)
	GetRequestAddKeys(ctx context.Context, scope types.Scope, groupID string) ([]types.RequestAddKey, error)
	InsertRequestAddKey(ctx context.Context, scope types.Scope, req types.RequestAddKey) error
	DeleteRequestAddKey(ctx context.Context, scope types.Scope, requestID string) error

	GetSavedAddresses(ctx context.Context, scope types.Scope) ([]types.SavedAddress, error)
	ApplySavedAddresses(ctx context.Context, scope types.Scope, upserts []types.SavedAddress, deleteAddresses []string) error

	GetMembershipSteps(ctx context.Context, scope types.Scope, groupID string) ([]types.MembershipStepInfo, error)
	SaveMembershipStep(ctx context.Context, scope types.Scope, step types.MembershipStepInfo) error
	DeleteMembershipSteps(ctx context.Context, scope types.Scope, groupID string) error

	SaveDummyTransaction(ctx context.Context, scope types.Scope, tx types.DummyTransaction) error
	GetDummyTransaction(ctx context.Context, scope types.Scope, id string) (types.DummyTransaction, bool, error)
	DeleteDummyTransaction(ctx context.Context, scope types.Scope, id string) error
}
