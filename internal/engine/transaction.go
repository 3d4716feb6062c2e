package engine

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/opencustody/walletsync/contexthelper"
	"github.com/opencustody/walletsync/internal/remote"
	"github.com/opencustody/walletsync/internal/types"
)

// CreateTransaction imports the PSBT locally, registers it with the
// service, then reconciles so the local record reflects whatever the
// server did to it (server-key co-signing included).
func (e *Engine) CreateTransaction(ctx context.Context, scope types.Scope, groupID, walletID, psbtB64, note string) (types.ExtendedTransaction, error) {
	local, err := e.store.ImportPsbt(walletID, psbtB64)
	if err != nil {
		return types.ExtendedTransaction{}, fmt.Errorf("fail to import psbt: %w", err)
	}
	if note != "" {
		if err := e.store.UpdateTransactionMemo(walletID, local.TxID, note); err != nil {
			return types.ExtendedTransaction{}, err
		}
	}

	req := remote.CreateTransactionRequest{Psbt: local.Psbt, Note: note}
	var dto *types.TransactionDTO
	if groupID != "" {
		dto, err = e.client.CreateGroupTransaction(ctx, groupID, walletID, req)
	} else {
		dto, err = e.client.CreateTransaction(ctx, walletID, req)
	}
	if err != nil {
		return types.ExtendedTransaction{}, fmt.Errorf("fail to create server transaction: %w", err)
	}

	e.count("walletsync.transactions.created", 1, nil)
	return e.rec.ReconcileTransaction(ctx, scope, groupID, walletID, local.TxID, dto)
}

// SignTransaction merges a newly signed PSBT into the local record and
// pushes it through the sign endpoint.
func (e *Engine) SignTransaction(ctx context.Context, scope types.Scope, groupID, walletID, txID, signedPsbt string) (types.ExtendedTransaction, error) {
	local, err := e.store.ImportPsbt(walletID, signedPsbt)
	if err != nil {
		return types.ExtendedTransaction{}, fmt.Errorf("fail to import signed psbt: %w", err)
	}
	if local.TxID != txID {
		return types.ExtendedTransaction{}, fmt.Errorf("signed psbt belongs to transaction %s, not %s", local.TxID, txID)
	}

	req := remote.SignTransactionRequest{Psbt: local.Psbt}
	var (
		dto *types.TransactionDTO
	)
	if groupID != "" {
		dto, err = e.client.SignGroupTransaction(ctx, groupID, walletID, txID, req)
	} else {
		dto, err = e.client.SignTransaction(ctx, walletID, txID, req)
	}
	if err != nil {
		return types.ExtendedTransaction{}, fmt.Errorf("fail to push signature: %w", err)
	}

	e.count("walletsync.transactions.signed", 1, nil)
	return e.rec.ReconcileTransaction(ctx, scope, groupID, walletID, txID, dto)
}

// GetTransaction fetches and reconciles one transaction.
func (e *Engine) GetTransaction(ctx context.Context, scope types.Scope, groupID, walletID, txID string) (types.ExtendedTransaction, error) {
	return e.rec.FetchAndReconcile(ctx, scope, groupID, walletID, txID)
}

// UpdateTransactionNote pushes a note change and mirrors it locally.
func (e *Engine) UpdateTransactionNote(ctx context.Context, scope types.Scope, groupID, walletID, txID, note string) error {
	if groupID == "" {
		if _, err := e.client.UpdateTransactionNote(ctx, walletID, txID, note); err != nil {
			return fmt.Errorf("fail to update server note: %w", err)
		}
	} else {
		// group notes ride through the sync endpoint
		local, ok := e.store.GetTransaction(walletID, txID)
		if !ok {
			return fmt.Errorf("transaction %s not found", txID)
		}
		if _, err := e.client.SyncGroupTransaction(ctx, groupID, walletID, txID, local.Psbt); err != nil {
			return fmt.Errorf("fail to sync group transaction: %w", err)
		}
	}
	return e.store.UpdateTransactionMemo(walletID, txID, note)
}

// DeleteTransaction cancels the transaction remotely and locally.
func (e *Engine) DeleteTransaction(ctx context.Context, scope types.Scope, groupID, walletID, txID string) error {
	var err error
	if groupID != "" {
		err = e.client.DeleteGroupTransaction(ctx, groupID, walletID, txID)
	} else {
		err = e.client.DeleteTransaction(ctx, walletID, txID)
	}
	if err != nil && !types.IsRemoteNotFound(err) {
		return fmt.Errorf("fail to delete server transaction %s: %w", txID, err)
	}
	return e.store.DeleteTransaction(walletID, txID)
}

// ScheduleTransaction sets a broadcast time on the server record.
func (e *Engine) ScheduleTransaction(ctx context.Context, scope types.Scope, groupID, walletID, txID string, broadcastTimeMillis int64) (types.ExtendedTransaction, error) {
	local, ok := e.store.GetTransaction(walletID, txID)
	if !ok {
		return types.ExtendedTransaction{}, fmt.Errorf("transaction %s not found", txID)
	}
	req := remote.ScheduleTransactionRequest{ScheduleTimeMillis: broadcastTimeMillis, Psbt: local.Psbt}
	var (
		dto *types.TransactionDTO
		err error
	)
	if groupID != "" {
		dto, err = e.client.ScheduleGroupTransaction(ctx, groupID, walletID, txID, req)
	} else {
		dto, err = e.client.ScheduleTransaction(ctx, walletID, txID, req)
	}
	if err != nil {
		return types.ExtendedTransaction{}, fmt.Errorf("fail to schedule transaction %s: %w", txID, err)
	}
	return e.rec.ReconcileTransaction(ctx, scope, groupID, walletID, txID, dto)
}

// SyncWalletTransactions runs the periodic per-wallet pass: reconcile
// every transaction the server flags for sync, drop the ones it deleted,
// and pick up notes that landed after confirmation.
func (e *Engine) SyncWalletTransactions(ctx context.Context, scope types.Scope, groupID, walletID string) error {
	if err := e.syncPending(ctx, scope, groupID, walletID); err != nil {
		return err
	}
	if err := e.syncDeleted(ctx, scope, walletID); err != nil {
		return err
	}
	return e.syncConfirmedNotes(ctx, walletID)
}

func (e *Engine) syncPending(ctx context.Context, scope types.Scope, groupID, walletID string) error {
	offset := 0
	for {
		if err := contexthelper.CheckCancellation(ctx); err != nil {
			return err
		}
		page, err := e.client.GetTransactionsToSync(ctx, walletID, offset, remote.PageSize)
		if err != nil {
			return fmt.Errorf("fail to fetch transactions to sync: %w", err)
		}
		for i := range page {
			dto := page[i]
			txID := dto.TransactionID
			if txID == "" {
				continue
			}
			if _, err := e.rec.ReconcileTransaction(ctx, scope, groupID, walletID, txID, &dto); err != nil {
				e.logger.WithFields(logrus.Fields{"tx": txID, "error": err}).Error("fail to reconcile transaction")
			}
		}
		if len(page) < remote.PageSize {
			return nil
		}
		offset += remote.PageSize
	}
}

func (e *Engine) syncDeleted(ctx context.Context, scope types.Scope, walletID string) error {
	offset := 0
	for {
		if err := contexthelper.CheckCancellation(ctx); err != nil {
			return err
		}
		page, err := e.client.GetTransactionsToDelete(ctx, walletID, offset, remote.PageSize)
		if err != nil {
			return fmt.Errorf("fail to fetch transactions to delete: %w", err)
		}
		for _, dto := range page {
			if dto.TransactionID == "" {
				continue
			}
			if err := e.store.DeleteTransaction(walletID, dto.TransactionID); err != nil {
				e.logger.WithFields(logrus.Fields{"tx": dto.TransactionID, "error": err}).Warn("fail to drop deleted transaction")
			}
		}
		if len(page) < remote.PageSize {
			return nil
		}
		offset += remote.PageSize
	}
}

func (e *Engine) syncConfirmedNotes(ctx context.Context, walletID string) error {
	offset := 0
	for {
		if err := contexthelper.CheckCancellation(ctx); err != nil {
			return err
		}
		page, err := e.client.GetConfirmedTransactionNotes(ctx, walletID, offset, remote.PageSize)
		if err != nil {
			return fmt.Errorf("fail to fetch confirmed notes: %w", err)
		}
		for _, dto := range page {
			if dto.TransactionID == "" || dto.Note == "" {
				continue
			}
			if err := e.store.UpdateTransactionMemo(walletID, dto.TransactionID, dto.Note); err != nil {
				e.logger.WithFields(logrus.Fields{"tx": dto.TransactionID, "error": err}).Warn("fail to apply confirmed note")
			}
		}
		if len(page) < remote.PageSize {
			return nil
		}
		offset += remote.PageSize
	}
}
