package postgres

import (
	"context"
	"fmt"

	"github.com/opencustody/walletsync/internal/types"
)

const dummyTxColumns = `id, wallet_local_id, group_id, action, status, required_signatures,
	pending_signatures, request_body, payload, requester_user_id, is_draft`

func (p *PostgresBackend) SaveDummyTransaction(ctx context.Context, scope types.Scope, tx types.DummyTransaction) error {
	if p.pool == nil {
		return fmt.Errorf("database pool is nil")
	}

	query := `INSERT INTO dummy_transactions
	(chat_id, chain, ` + dummyTxColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	ON CONFLICT (chat_id, chain, id) DO UPDATE SET
		wallet_local_id = EXCLUDED.wallet_local_id,
		group_id = EXCLUDED.group_id,
		action = EXCLUDED.action,
		status = EXCLUDED.status,
		required_signatures = EXCLUDED.required_signatures,
		pending_signatures = EXCLUDED.pending_signatures,
		request_body = EXCLUDED.request_body,
		payload = EXCLUDED.payload,
		requester_user_id = EXCLUDED.requester_user_id,
		is_draft = EXCLUDED.is_draft`

	_, err := p.pool.Exec(ctx, query,
		scope.ChatID, scope.Chain,
		tx.ID, tx.WalletLocalID, tx.GroupID, tx.Action, tx.Status,
		tx.RequiredSignatures, tx.PendingSignatures, tx.RequestBody,
		tx.Payload, tx.RequesterUserID, tx.IsDraft)
	if err != nil {
		return fmt.Errorf("fail to save dummy transaction: %w", err)
	}
	return nil
}

func (p *PostgresBackend) GetDummyTransaction(ctx context.Context, scope types.Scope, id string) (types.DummyTransaction, bool, error) {
	if p.pool == nil {
		return types.DummyTransaction{}, false, fmt.Errorf("database pool is nil")
	}

	query := `SELECT ` + dummyTxColumns + `
	FROM dummy_transactions
	WHERE chat_id = $1 AND chain = $2 AND id = $3`

	var tx types.DummyTransaction
	err := p.pool.QueryRow(ctx, query, scope.ChatID, scope.Chain, id).Scan(
		&tx.ID, &tx.WalletLocalID, &tx.GroupID, &tx.Action, &tx.Status,
		&tx.RequiredSignatures, &tx.PendingSignatures, &tx.RequestBody,
		&tx.Payload, &tx.RequesterUserID, &tx.IsDraft)
	if err != nil {
		if isNoRows(err) {
			return types.DummyTransaction{}, false, nil
		}
		return types.DummyTransaction{}, false, fmt.Errorf("fail to get dummy transaction: %w", err)
	}
	return tx, true, nil
}

func (p *PostgresBackend) DeleteDummyTransaction(ctx context.Context, scope types.Scope, id string) error {
	if p.pool == nil {
		return fmt.Errorf("database pool is nil")
	}

	_, err := p.pool.Exec(ctx, `DELETE FROM dummy_transactions
	WHERE chat_id = $1 AND chain = $2 AND id = $3`,
		scope.ChatID, scope.Chain, id)
	if err != nil {
		return fmt.Errorf("fail to delete dummy transaction: %w", err)
	}
	return nil
}
