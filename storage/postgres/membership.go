package postgres

import (
	"context"
	"fmt"

	"github.com/opencustody/walletsync/internal/types"
)

func (p *PostgresBackend) GetRequestAddKey(ctx context.Context, scope types.Scope, step types.MembershipStep, tagSet, groupID string) (types.RequestAddKey, bool, error) {
	if p.pool == nil {
		return types.RequestAddKey{}, false, fmt.Errorf("database pool is nil")
	}

	query := `SELECT request_id, step, tag_set, group_id
	FROM request_add_keys
	WHERE chat_id = $1 AND chain = $2 AND step = $3 AND tag_set = $4 AND group_id = $5`

	var req types.RequestAddKey
	err := p.pool.QueryRow(ctx, query, scope.ChatID, scope.Chain, step, tagSet, groupID).Scan(
		&req.RequestID, &req.Step, &req.TagSet, &req.GroupID)
	if err != nil {
		if isNoRows(err) {
			return types.RequestAddKey{}, false, nil
		}
		return types.RequestAddKey{}, false, fmt.Errorf("fail to get add-key request: %w", err)
	}
	return req, true, nil
}

func (p *PostgresBackend) GetRequestAddKeys(ctx context.Context, scope types.Scope, groupID string) ([]types.RequestAddKey, error) {
	if p.pool == nil {
		return nil, fmt.Errorf("database pool is nil")
	}

	query := `SELECT request_id, step, tag_set, group_id
	FROM request_add_keys
	WHERE chat_id = $1 AND chain = $2 AND group_id = $3`

	rows, err := p.pool.Query(ctx, query, scope.ChatID, scope.Chain, groupID)
	if err != nil {
		return nil, fmt.Errorf("fail to query add-key requests: %w", err)
	}
	defer rows.Close()

	var reqs []types.RequestAddKey
	for rows.Next() {
		var req types.RequestAddKey
		if err := rows.Scan(&req.RequestID, &req.Step, &req.TagSet, &req.GroupID); err != nil {
			return nil, fmt.Errorf("fail to scan add-key request: %w", err)
		}
		reqs = append(reqs, req)
	}
	return reqs, rows.Err()
}

func (p *PostgresBackend) InsertRequestAddKey(ctx context.Context, scope types.Scope, req types.RequestAddKey) error {
	if p.pool == nil {
		return fmt.Errorf("database pool is nil")
	}

	// a new request for the same (step, tag set, group) supersedes the old
	// one, so clear the identity slot before inserting
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("fail to begin db transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM request_add_keys
	WHERE chat_id = $1 AND chain = $2 AND step = $3 AND tag_set = $4 AND group_id = $5`,
		scope.ChatID, scope.Chain, req.Step, req.TagSet, req.GroupID); err != nil {
		return fmt.Errorf("fail to supersede add-key request: %w", err)
	}

	if _, err := tx.Exec(ctx, `INSERT INTO request_add_keys
	(chat_id, chain, request_id, step, tag_set, group_id)
	VALUES ($1, $2, $3, $4, $5, $6)`,
		scope.ChatID, scope.Chain, req.RequestID, req.Step, req.TagSet, req.GroupID); err != nil {
		return fmt.Errorf("fail to insert add-key request: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("fail to commit db transaction: %w", err)
	}
	return nil
}

func (p *PostgresBackend) DeleteRequestAddKey(ctx context.Context, scope types.Scope, requestID string) error {
	if p.pool == nil {
		return fmt.Errorf("database pool is nil")
	}

	_, err := p.pool.Exec(ctx, `DELETE FROM request_add_keys
	WHERE chat_id = $1 AND chain = $2 AND request_id = $3`,
		scope.ChatID, scope.Chain, requestID)
	if err != nil {
		return fmt.Errorf("fail to delete add-key request: %w", err)
	}
	return nil
}

func (p *PostgresBackend) GetSavedAddresses(ctx context.Context, scope types.Scope) ([]types.SavedAddress, error) {
	if p.pool == nil {
		return nil, fmt.Errorf("database pool is nil")
	}

	query := `SELECT address, label
	FROM saved_addresses
	WHERE chat_id = $1 AND chain = $2
	ORDER BY label`

	rows, err := p.pool.Query(ctx, query, scope.ChatID, scope.Chain)
	if err != nil {
		return nil, fmt.Errorf("fail to query saved addresses: %w", err)
	}
	defer rows.Close()

	var addresses []types.SavedAddress
	for rows.Next() {
		var a types.SavedAddress
		if err := rows.Scan(&a.Address, &a.Label); err != nil {
			return nil, fmt.Errorf("fail to scan saved address: %w", err)
		}
		addresses = append(addresses, a)
	}
	return addresses, rows.Err()
}

func (p *PostgresBackend) ApplySavedAddresses(ctx context.Context, scope types.Scope, upserts []types.SavedAddress, deleteAddresses []string) error {
	if p.pool == nil {
		return fmt.Errorf("database pool is nil")
	}
	if len(upserts) == 0 && len(deleteAddresses) == 0 {
		return nil
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("fail to begin db transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `INSERT INTO saved_addresses (chat_id, chain, address, label)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (chat_id, chain, address) DO UPDATE SET label = EXCLUDED.label`

	for _, a := range upserts {
		if _, err := tx.Exec(ctx, query, scope.ChatID, scope.Chain, a.Address, a.Label); err != nil {
			return fmt.Errorf("fail to upsert saved address: %w", err)
		}
	}

	if len(deleteAddresses) > 0 {
		if _, err := tx.Exec(ctx, `DELETE FROM saved_addresses
		WHERE chat_id = $1 AND chain = $2 AND address = ANY($3)`,
			scope.ChatID, scope.Chain, deleteAddresses); err != nil {
			return fmt.Errorf("fail to delete saved addresses: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("fail to commit db transaction: %w", err)
	}
	return nil
}

func (p *PostgresBackend) GetMembershipSteps(ctx context.Context, scope types.Scope, groupID string) ([]types.MembershipStepInfo, error) {
	if p.pool == nil {
		return nil, fmt.Errorf("database pool is nil")
	}

	query := `SELECT step, group_id, master_signer_id, key_id_in_server, verify_type, plan_slug, extra_data
	FROM membership_steps
	WHERE chat_id = $1 AND chain = $2 AND group_id = $3
	ORDER BY step`

	rows, err := p.pool.Query(ctx, query, scope.ChatID, scope.Chain, groupID)
	if err != nil {
		return nil, fmt.Errorf("fail to query membership steps: %w", err)
	}
	defer rows.Close()

	var steps []types.MembershipStepInfo
	for rows.Next() {
		var s types.MembershipStepInfo
		if err := rows.Scan(&s.Step, &s.GroupID, &s.MasterSignerID, &s.KeyIDInServer, &s.VerifyType, &s.PlanSlug, &s.ExtraData); err != nil {
			return nil, fmt.Errorf("fail to scan membership step: %w", err)
		}
		steps = append(steps, s)
	}
	return steps, rows.Err()
}

func (p *PostgresBackend) SaveMembershipStep(ctx context.Context, scope types.Scope, step types.MembershipStepInfo) error {
	if p.pool == nil {
		return fmt.Errorf("database pool is nil")
	}

	query := `INSERT INTO membership_steps
	(chat_id, chain, group_id, step, master_signer_id, key_id_in_server, verify_type, plan_slug, extra_data)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (chat_id, chain, group_id, step) DO UPDATE SET
		master_signer_id = EXCLUDED.master_signer_id,
		key_id_in_server = EXCLUDED.key_id_in_server,
		verify_type = EXCLUDED.verify_type,
		plan_slug = EXCLUDED.plan_slug,
		extra_data = EXCLUDED.extra_data`

	_, err := p.pool.Exec(ctx, query,
		scope.ChatID, scope.Chain,
		step.GroupID, step.Step, step.MasterSignerID, step.KeyIDInServer,
		step.VerifyType, step.PlanSlug, step.ExtraData)
	if err != nil {
		return fmt.Errorf("fail to save membership step: %w", err)
	}
	return nil
}

func (p *PostgresBackend) DeleteMembershipSteps(ctx context.Context, scope types.Scope, groupID string) error {
	if p.pool == nil {
		return fmt.Errorf("database pool is nil")
	}

	_, err := p.pool.Exec(ctx, `DELETE FROM membership_steps
	WHERE chat_id = $1 AND chain = $2 AND group_id = $3`,
		scope.ChatID, scope.Chain, groupID)
	if err != nil {
		return fmt.Errorf("fail to delete membership steps: %w", err)
	}
	return nil
}
