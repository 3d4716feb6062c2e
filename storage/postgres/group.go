package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/opencustody/walletsync/internal/types"
)

func (p *PostgresBackend) GetGroups(ctx context.Context, scope types.Scope) ([]types.Group, error) {
	if p.pool == nil {
		return nil, fmt.Errorf("database pool is nil")
	}

	query := `SELECT group_id, status, members, policy, created_time_millis, is_locked
	FROM groups
	WHERE chat_id = $1 AND chain = $2
	ORDER BY created_time_millis`

	rows, err := p.pool.Query(ctx, query, scope.ChatID, scope.Chain)
	if err != nil {
		return nil, fmt.Errorf("fail to query groups: %w", err)
	}
	defer rows.Close()

	var groups []types.Group
	for rows.Next() {
		var g types.Group
		var membersJSON, policyJSON []byte
		if err := rows.Scan(&g.ID, &g.Status, &membersJSON, &policyJSON, &g.CreatedTimeMillis, &g.IsLocked); err != nil {
			return nil, fmt.Errorf("fail to scan group: %w", err)
		}
		if err := json.Unmarshal(membersJSON, &g.Members); err != nil {
			return nil, fmt.Errorf("fail to unmarshal group members: %w", err)
		}
		if err := json.Unmarshal(policyJSON, &g.Policy); err != nil {
			return nil, fmt.Errorf("fail to unmarshal group policy: %w", err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func (p *PostgresBackend) ApplyGroups(ctx context.Context, scope types.Scope, upserts []types.Group, deleteIDs []string) error {
	if p.pool == nil {
		return fmt.Errorf("database pool is nil")
	}
	if len(upserts) == 0 && len(deleteIDs) == 0 {
		return nil
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("fail to begin db transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `INSERT INTO groups
	(chat_id, chain, group_id, status, members, policy, created_time_millis, is_locked)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (chat_id, chain, group_id) DO UPDATE SET
		status = EXCLUDED.status,
		members = EXCLUDED.members,
		policy = EXCLUDED.policy,
		created_time_millis = EXCLUDED.created_time_millis,
		is_locked = EXCLUDED.is_locked`

	for _, g := range upserts {
		membersJSON, err := json.Marshal(g.Members)
		if err != nil {
			return fmt.Errorf("fail to marshal group members: %w", err)
		}
		policyJSON, err := json.Marshal(g.Policy)
		if err != nil {
			return fmt.Errorf("fail to marshal group policy: %w", err)
		}
		if _, err := tx.Exec(ctx, query,
			scope.ChatID, scope.Chain,
			g.ID, g.Status, membersJSON, policyJSON, g.CreatedTimeMillis, g.IsLocked,
		); err != nil {
			return fmt.Errorf("fail to upsert group %s: %w", g.ID, err)
		}
	}

	if len(deleteIDs) > 0 {
		if _, err := tx.Exec(ctx, `DELETE FROM groups
		WHERE chat_id = $1 AND chain = $2 AND group_id = ANY($3)`,
			scope.ChatID, scope.Chain, deleteIDs); err != nil {
			return fmt.Errorf("fail to delete groups: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("fail to commit db transaction: %w", err)
	}
	return nil
}
