package reconcile

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/opencustody/walletsync/internal/types"
	"github.com/opencustody/walletsync/internal/walletstore"
)

// ReconcileTransaction converges one transaction across the embedded
// store and the server record. Three cases:
//
//   - the remote status is terminal: the server's PSBT and metadata win
//     outright, the local record is overwritten;
//   - the remote record exists but is still in flight: signatures are
//     merged both ways, and the merged PSBT is pushed back when it holds
//     more than the server's copy;
//   - no remote record exists: the local PSBT is pushed to create one.
func (r *Reconciler) ReconcileTransaction(ctx context.Context, scope types.Scope, groupID, walletID, txID string, remoteTx *types.TransactionDTO) (types.ExtendedTransaction, error) {
	local, hasLocal := r.store.GetTransaction(walletID, txID)

	if remoteTx == nil {
		if !hasLocal {
			return types.ExtendedTransaction{}, fmt.Errorf("transaction %s is unknown both locally and remotely", txID)
		}
		pushed, err := r.pushPsbt(ctx, groupID, walletID, txID, local.Psbt)
		if err != nil {
			return types.ExtendedTransaction{}, fmt.Errorf("fail to push transaction %s: %w", txID, err)
		}
		if pushed != nil {
			r.snapshots.Add(walletID, txID, *pushed)
		}
		return types.ExtendedTransaction{Transaction: local, Server: pushed}, nil
	}

	if hasLocal && r.snapshots.Unchanged(walletID, txID, *remoteTx) {
		return types.ExtendedTransaction{Transaction: local, Server: remoteTx}, nil
	}

	status := remoteTx.StatusOrDefault()
	if status.Terminal() {
		if err := r.applyTerminal(walletID, txID, remoteTx, status); err != nil {
			return types.ExtendedTransaction{}, err
		}
	} else {
		updated, err := r.mergeInFlight(ctx, groupID, walletID, txID, local, remoteTx, status)
		if err != nil {
			return types.ExtendedTransaction{}, err
		}
		remoteTx = updated
	}

	if remoteTx.Note != "" {
		if err := r.store.UpdateTransactionMemo(walletID, txID, remoteTx.Note); err != nil {
			r.logger.WithFields(logrus.Fields{"tx": txID, "error": err}).Warn("fail to update transaction note")
		}
	}
	if remoteTx.BroadcastTimeMillis > 0 {
		if err := r.store.UpdateTransactionSchedule(walletID, txID, remoteTx.BroadcastTimeMillis); err != nil {
			r.logger.WithFields(logrus.Fields{"tx": txID, "error": err}).Warn("fail to update transaction schedule")
		}
	}

	r.snapshots.Add(walletID, txID, *remoteTx)
	final, _ := r.store.GetTransaction(walletID, txID)
	return types.ExtendedTransaction{Transaction: final, Server: remoteTx}, nil
}

// applyTerminal lets the server record overwrite the local one. Once a
// transaction reached the network the local copy has nothing to add.
func (r *Reconciler) applyTerminal(walletID, txID string, remoteTx *types.TransactionDTO, status types.TransactionStatus) error {
	if remoteTx.Psbt != "" {
		if _, err := r.store.ImportPsbt(walletID, remoteTx.Psbt); err != nil {
			return fmt.Errorf("fail to import terminal psbt for %s: %w", txID, err)
		}
	}
	upd := walletstore.TransactionUpdate{
		NewTxID:   remoteTx.TransactionID,
		Hex:       remoteTx.Hex,
		RejectMsg: remoteTx.RejectMsg,
		Status:    status,
	}
	if _, err := r.store.UpdateTransaction(walletID, txID, upd); err != nil {
		return fmt.Errorf("fail to finalize transaction %s: %w", txID, err)
	}
	return nil
}

// mergeInFlight unions both signature sets and pushes the result back when
// it carries more than the server's copy.
func (r *Reconciler) mergeInFlight(ctx context.Context, groupID, walletID, txID string, local types.Transaction, remoteTx *types.TransactionDTO, status types.TransactionStatus) (*types.TransactionDTO, error) {
	if remoteTx.Psbt != "" {
		if _, err := r.store.ImportPsbt(walletID, remoteTx.Psbt); err != nil {
			// an undecodable remote psbt must not wedge the local record
			r.logger.WithFields(logrus.Fields{"tx": txID, "error": err}).Warn("fail to merge remote psbt, keeping local")
		}
	} else if local.Psbt != "" {
		if _, err := r.store.ImportPsbt(walletID, local.Psbt); err != nil {
			return nil, fmt.Errorf("fail to reimport local psbt for %s: %w", txID, err)
		}
	}

	if _, err := r.store.UpdateTransaction(walletID, txID, walletstore.TransactionUpdate{Status: status}); err != nil {
		return nil, fmt.Errorf("fail to update transaction %s: %w", txID, err)
	}

	merged, ok := r.store.GetTransaction(walletID, txID)
	if ok && merged.Psbt != "" && merged.Psbt != remoteTx.Psbt {
		pushed, err := r.pushPsbt(ctx, groupID, walletID, txID, merged.Psbt)
		if err != nil {
			return nil, fmt.Errorf("fail to push merged psbt for %s: %w", txID, err)
		}
		if pushed != nil {
			return pushed, nil
		}
	}
	return remoteTx, nil
}

func (r *Reconciler) pushPsbt(ctx context.Context, groupID, walletID, txID, psbtB64 string) (*types.TransactionDTO, error) {
	if groupID != "" {
		return r.client.SyncGroupTransaction(ctx, groupID, walletID, txID, psbtB64)
	}
	return r.client.SyncTransaction(ctx, walletID, txID, psbtB64)
}

// FetchAndReconcile pulls the current server record, treating a remote
// not-found as "no record", then runs the merge protocol.
func (r *Reconciler) FetchAndReconcile(ctx context.Context, scope types.Scope, groupID, walletID, txID string) (types.ExtendedTransaction, error) {
	var (
		remoteTx *types.TransactionDTO
		err      error
	)
	if groupID != "" {
		remoteTx, err = r.client.GetGroupTransaction(ctx, groupID, walletID, txID)
	} else {
		remoteTx, err = r.client.GetTransaction(ctx, walletID, txID)
	}
	if err != nil {
		if !types.IsRemoteNotFound(err) {
			return types.ExtendedTransaction{}, err
		}
		remoteTx = nil
	}
	return r.ReconcileTransaction(ctx, scope, groupID, walletID, txID, remoteTx)
}
