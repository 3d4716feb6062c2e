package postgres

import (
	"context"
	"fmt"

	"github.com/opencustody/walletsync/internal/types"
)

func (p *PostgresBackend) GetAlerts(ctx context.Context, scope types.Scope, groupID, walletID string) ([]types.Alert, error) {
	if p.pool == nil {
		return nil, fmt.Errorf("database pool is nil")
	}

	query := `SELECT alert_id, type, title, body, status, viewable, payload, created_time_millis
	FROM alerts
	WHERE chat_id = $1 AND chain = $2 AND group_id = $3 AND wallet_id = $4
	ORDER BY created_time_millis DESC`

	rows, err := p.pool.Query(ctx, query, scope.ChatID, scope.Chain, groupID, walletID)
	if err != nil {
		return nil, fmt.Errorf("fail to query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []types.Alert
	for rows.Next() {
		a := types.Alert{GroupID: groupID, WalletID: walletID}
		if err := rows.Scan(&a.ID, &a.Type, &a.Title, &a.Body, &a.Status, &a.Viewable, &a.Payload, &a.CreatedTimeMillis); err != nil {
			return nil, fmt.Errorf("fail to scan alert: %w", err)
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

func (p *PostgresBackend) ApplyAlerts(ctx context.Context, scope types.Scope, groupID, walletID string, upserts []types.Alert, deleteIDs []string) error {
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

	query := `INSERT INTO alerts
	(chat_id, chain, group_id, wallet_id, alert_id, type, title, body, status, viewable, payload, created_time_millis)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	ON CONFLICT (chat_id, chain, group_id, wallet_id, alert_id) DO UPDATE SET
		type = EXCLUDED.type,
		title = EXCLUDED.title,
		body = EXCLUDED.body,
		status = EXCLUDED.status,
		viewable = EXCLUDED.viewable,
		payload = EXCLUDED.payload,
		created_time_millis = EXCLUDED.created_time_millis`

	for _, a := range upserts {
		if _, err := tx.Exec(ctx, query,
			scope.ChatID, scope.Chain, groupID, walletID,
			a.ID, a.Type, a.Title, a.Body, a.Status, a.Viewable, a.Payload, a.CreatedTimeMillis,
		); err != nil {
			return fmt.Errorf("fail to upsert alert %s: %w", a.ID, err)
		}
	}

	if len(deleteIDs) > 0 {
		if _, err := tx.Exec(ctx, `DELETE FROM alerts
		WHERE chat_id = $1 AND chain = $2 AND group_id = $3 AND wallet_id = $4 AND alert_id = ANY($5)`,
			scope.ChatID, scope.Chain, groupID, walletID, deleteIDs); err != nil {
			return fmt.Errorf("fail to delete alerts: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("fail to commit db transaction: %w", err)
	}
	return nil
}

func (p *PostgresBackend) GetKeyHealth(ctx context.Context, scope types.Scope, groupID, walletID string) ([]types.KeyHealth, error) {
	if p.pool == nil {
		return nil, fmt.Errorf("database pool is nil")
	}

	query := `SELECT xfp, can_request_health_check, last_health_check_time_millis
	FROM key_health
	WHERE chat_id = $1 AND chain = $2 AND group_id = $3 AND wallet_id = $4
	ORDER BY xfp`

	rows, err := p.pool.Query(ctx, query, scope.ChatID, scope.Chain, groupID, walletID)
	if err != nil {
		return nil, fmt.Errorf("fail to query key health: %w", err)
	}
	defer rows.Close()

	var records []types.KeyHealth
	for rows.Next() {
		k := types.KeyHealth{GroupID: groupID, WalletID: walletID}
		if err := rows.Scan(&k.Xfp, &k.CanRequestHealthCheck, &k.LastHealthCheckTimeMillis); err != nil {
			return nil, fmt.Errorf("fail to scan key health: %w", err)
		}
		records = append(records, k)
	}
	return records, rows.Err()
}

func (p *PostgresBackend) ApplyKeyHealth(ctx context.Context, scope types.Scope, groupID, walletID string, upserts []types.KeyHealth, deleteXfps []string) error {
	if p.pool == nil {
		return fmt.Errorf("database pool is nil")
	}
	if len(upserts) == 0 && len(deleteXfps) == 0 {
		return nil
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("fail to begin db transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `INSERT INTO key_health
	(chat_id, chain, group_id, wallet_id, xfp, can_request_health_check, last_health_check_time_millis)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (chat_id, chain, group_id, wallet_id, xfp) DO UPDATE SET
		can_request_health_check = EXCLUDED.can_request_health_check,
		last_health_check_time_millis = EXCLUDED.last_health_check_time_millis`

	for _, k := range upserts {
		if _, err := tx.Exec(ctx, query,
			scope.ChatID, scope.Chain, groupID, walletID,
			k.Xfp, k.CanRequestHealthCheck, k.LastHealthCheckTimeMillis,
		); err != nil {
			return fmt.Errorf("fail to upsert key health %s: %w", k.Xfp, err)
		}
	}

	if len(deleteXfps) > 0 {
		if _, err := tx.Exec(ctx, `DELETE FROM key_health
		WHERE chat_id = $1 AND chain = $2 AND group_id = $3 AND wallet_id = $4 AND xfp = ANY($5)`,
			scope.ChatID, scope.Chain, groupID, walletID, deleteXfps); err != nil {
			return fmt.Errorf("fail to delete key health: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("fail to commit db transaction: %w", err)
	}
	return nil
}
