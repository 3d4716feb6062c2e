package postgres

import (
	"context"
	"fmt"

	"github.com/opencustody/walletsync/internal/types"
)

const assistedWalletColumns = `local_id, group_id, plan_slug, name, status, pending_replace_xfps, ext,
	is_setup_inheritance, register_coldcard_count, register_airgap_count, replace_signer_types`

func (p *PostgresBackend) GetAssistedWallets(ctx context.Context, scope types.Scope) ([]types.AssistedWallet, error) {
	if p.pool == nil {
		return nil, fmt.Errorf("database pool is nil")
	}

	query := `SELECT ` + assistedWalletColumns + `
	FROM assisted_wallets
	WHERE chat_id = $1 AND chain = $2
	ORDER BY local_id`

	rows, err := p.pool.Query(ctx, query, scope.ChatID, scope.Chain)
	if err != nil {
		return nil, fmt.Errorf("fail to query assisted wallets: %w", err)
	}
	defer rows.Close()

	var wallets []types.AssistedWallet
	for rows.Next() {
		var w types.AssistedWallet
		if err := rows.Scan(
			&w.LocalID,
			&w.GroupID,
			&w.PlanSlug,
			&w.Name,
			&w.Status,
			&w.PendingReplaceXfps,
			&w.Ext,
			&w.IsSetupInheritance,
			&w.RegisterColdcardCount,
			&w.RegisterAirgapCount,
			&w.ReplaceSignerTypes,
		); err != nil {
			return nil, fmt.Errorf("fail to scan assisted wallet: %w", err)
		}
		wallets = append(wallets, w)
	}
	return wallets, rows.Err()
}

func (p *PostgresBackend) GetAssistedWallet(ctx context.Context, scope types.Scope, localID string) (types.AssistedWallet, bool, error) {
	if p.pool == nil {
		return types.AssistedWallet{}, false, fmt.Errorf("database pool is nil")
	}

	query := `SELECT ` + assistedWalletColumns + `
	FROM assisted_wallets
	WHERE chat_id = $1 AND chain = $2 AND local_id = $3`

	var w types.AssistedWallet
	err := p.pool.QueryRow(ctx, query, scope.ChatID, scope.Chain, localID).Scan(
		&w.LocalID,
		&w.GroupID,
		&w.PlanSlug,
		&w.Name,
		&w.Status,
		&w.PendingReplaceXfps,
		&w.Ext,
		&w.IsSetupInheritance,
		&w.RegisterColdcardCount,
		&w.RegisterAirgapCount,
		&w.ReplaceSignerTypes,
	)
	if err != nil {
		if isNoRows(err) {
			return types.AssistedWallet{}, false, nil
		}
		return types.AssistedWallet{}, false, fmt.Errorf("fail to get assisted wallet: %w", err)
	}
	return w, true, nil
}

func (p *PostgresBackend) UpsertAssistedWallets(ctx context.Context, scope types.Scope, wallets []types.AssistedWallet) error {
	if p.pool == nil {
		return fmt.Errorf("database pool is nil")
	}
	if len(wallets) == 0 {
		return nil
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("fail to begin db transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `INSERT INTO assisted_wallets
	(chat_id, chain, ` + assistedWalletColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	ON CONFLICT (chat_id, chain, local_id) DO UPDATE SET
		group_id = EXCLUDED.group_id,
		plan_slug = EXCLUDED.plan_slug,
		name = EXCLUDED.name,
		status = EXCLUDED.status,
		pending_replace_xfps = EXCLUDED.pending_replace_xfps,
		ext = EXCLUDED.ext,
		is_setup_inheritance = EXCLUDED.is_setup_inheritance,
		register_coldcard_count = EXCLUDED.register_coldcard_count,
		register_airgap_count = EXCLUDED.register_airgap_count,
		replace_signer_types = EXCLUDED.replace_signer_types`

	for _, w := range wallets {
		if _, err := tx.Exec(ctx, query,
			scope.ChatID, scope.Chain,
			w.LocalID, w.GroupID, w.PlanSlug, w.Name, w.Status,
			emptySlice(w.PendingReplaceXfps), w.Ext,
			w.IsSetupInheritance, w.RegisterColdcardCount, w.RegisterAirgapCount,
			emptySlice(w.ReplaceSignerTypes),
		); err != nil {
			return fmt.Errorf("fail to upsert assisted wallet %s: %w", w.LocalID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("fail to commit db transaction: %w", err)
	}
	return nil
}

func (p *PostgresBackend) DeleteAssistedWallet(ctx context.Context, scope types.Scope, localID string) error {
	if p.pool == nil {
		return fmt.Errorf("database pool is nil")
	}

	_, err := p.pool.Exec(ctx, `DELETE FROM assisted_wallets
	WHERE chat_id = $1 AND chain = $2 AND local_id = $3`,
		scope.ChatID, scope.Chain, localID)
	if err != nil {
		return fmt.Errorf("fail to delete assisted wallet: %w", err)
	}
	return nil
}

func (p *PostgresBackend) DeletePersonalWalletsExcept(ctx context.Context, scope types.Scope, keep []string) (int64, error) {
	if p.pool == nil {
		return 0, fmt.Errorf("database pool is nil")
	}

	tag, err := p.pool.Exec(ctx, `DELETE FROM assisted_wallets
	WHERE chat_id = $1 AND chain = $2 AND group_id = '' AND NOT (local_id = ANY($3))`,
		scope.ChatID, scope.Chain, emptySlice(keep))
	if err != nil {
		return 0, fmt.Errorf("fail to purge assisted wallets: %w", err)
	}
	return tag.RowsAffected(), nil
}
