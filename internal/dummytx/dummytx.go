// Package dummytx drives the two-phase threshold-authorization protocol:
// a gated mutation is proposed as a pseudo transaction, co-signers sign
// the nonce envelope out of band, and the collected signatures commit it.
package dummytx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/opencustody/walletsync/internal/auth"
	"github.com/opencustody/walletsync/internal/remote"
	"github.com/opencustody/walletsync/internal/types"
	"github.com/opencustody/walletsync/storage"
)

type Coordinator struct {
	logger *logrus.Logger
	client *remote.Client
	auth   *auth.Coordinator
	cache  storage.Cache
}

func NewCoordinator(client *remote.Client, authc *auth.Coordinator, cache storage.Cache) *Coordinator {
	return &Coordinator{
		logger: logrus.WithField("module", "dummytx").Logger,
		client: client,
		auth:   authc,
		cache:  cache,
	}
}

// SubmitFunc sends the nonce envelope to the action-specific endpoint and
// returns the pending pseudo transaction the server opened for it.
type SubmitFunc func(ctx context.Context, envelope types.UserDataEnvelope) (*types.DummyTransactionDTO, error)

// Propose opens a threshold-gated mutation. The nonce is fetched fresh
// for this envelope and never reused; the returned envelope is what each
// co-signer must sign.
func (c *Coordinator) Propose(ctx context.Context, scope types.Scope, groupID string, body json.RawMessage, submit SubmitFunc) (types.DummyTransaction, types.UserDataEnvelope, error) {
	nonce, err := c.auth.NextNonce(ctx)
	if err != nil {
		return types.DummyTransaction{}, types.UserDataEnvelope{}, fmt.Errorf("fail to fetch nonce: %w", err)
	}
	envelope := types.UserDataEnvelope{Nonce: nonce, Body: body}

	dto, err := submit(ctx, envelope)
	if err != nil {
		return types.DummyTransaction{}, types.UserDataEnvelope{}, fmt.Errorf("fail to propose: %w", err)
	}
	if dto == nil {
		// action committed without needing co-signers
		return types.DummyTransaction{Status: types.TxStatusConfirmed}, envelope, nil
	}

	tx := dto.ToDummyTransaction(groupID)
	if err := c.cache.SaveDummyTransaction(ctx, scope, tx); err != nil {
		c.logger.WithFields(logrus.Fields{"dummy_tx": tx.ID, "error": err}).Error("fail to cache dummy transaction")
	}
	return tx, envelope, nil
}

// Commit submits collected signatures. The server tallies them and either
// executes the mutation or reports how many signatures are still missing.
func (c *Coordinator) Commit(ctx context.Context, scope types.Scope, groupID, walletID, dummyTxID string, pairs []auth.SignaturePair, opts auth.HeaderOptions) (types.DummyTransactionUpdate, error) {
	headers := auth.BuildHeaders(pairs, opts)
	dto, err := c.client.UpdateDummyTransaction(ctx, headers, groupID, walletID, dummyTxID)
	if err != nil {
		return types.DummyTransactionUpdate{}, fmt.Errorf("fail to commit dummy transaction %s: %w", dummyTxID, err)
	}
	if dto == nil {
		return types.DummyTransactionUpdate{Status: types.TxStatusConfirmed}, nil
	}

	tx := dto.ToDummyTransaction(groupID)
	if tx.Status == types.TxStatusConfirmed {
		if err := c.cache.DeleteDummyTransaction(ctx, scope, dummyTxID); err != nil {
			c.logger.WithFields(logrus.Fields{"dummy_tx": dummyTxID, "error": err}).Error("fail to drop committed dummy transaction")
		}
	} else if err := c.cache.SaveDummyTransaction(ctx, scope, tx); err != nil {
		c.logger.WithFields(logrus.Fields{"dummy_tx": dummyTxID, "error": err}).Error("fail to cache dummy transaction")
	}

	return types.DummyTransactionUpdate{
		Status:            tx.Status,
		PendingSignatures: tx.PendingSignatures,
	}, nil
}

// Get fetches the pending mutation, falling back to the cached copy when
// the server is unreachable. A remote not-found means the proposal was
// resolved or withdrawn elsewhere: the cached row is dropped and
// ErrPendingActionGone tells the caller to stand down.
func (c *Coordinator) Get(ctx context.Context, scope types.Scope, groupID, walletID, dummyTxID string) (types.DummyTransaction, error) {
	dto, err := c.client.GetDummyTransaction(ctx, groupID, walletID, dummyTxID)
	if err != nil {
		if types.IsRemoteNotFound(err) {
			if derr := c.cache.DeleteDummyTransaction(ctx, scope, dummyTxID); derr != nil {
				c.logger.WithFields(logrus.Fields{"dummy_tx": dummyTxID, "error": derr}).Error("fail to drop vanished dummy transaction")
			}
			return types.DummyTransaction{}, types.ErrPendingActionGone
		}
		cached, ok, cerr := c.cache.GetDummyTransaction(ctx, scope, dummyTxID)
		if cerr == nil && ok {
			return cached, nil
		}
		return types.DummyTransaction{}, err
	}

	tx := dto.ToDummyTransaction(groupID)
	if err := c.cache.SaveDummyTransaction(ctx, scope, tx); err != nil {
		c.logger.WithFields(logrus.Fields{"dummy_tx": dummyTxID, "error": err}).Error("fail to cache dummy transaction")
	}
	return tx, nil
}

// Finalize commits a draft proposal that collected its signatures ahead
// of submission.
func (c *Coordinator) Finalize(ctx context.Context, scope types.Scope, groupID, walletID, dummyTxID string) (types.DummyTransaction, error) {
	dto, err := c.client.FinalizeDummyTransaction(ctx, groupID, walletID, dummyTxID)
	if err != nil {
		return types.DummyTransaction{}, fmt.Errorf("fail to finalize dummy transaction %s: %w", dummyTxID, err)
	}
	tx := dto.ToDummyTransaction(groupID)
	if err := c.cache.DeleteDummyTransaction(ctx, scope, dummyTxID); err != nil {
		c.logger.WithFields(logrus.Fields{"dummy_tx": dummyTxID, "error": err}).Error("fail to drop finalized dummy transaction")
	}
	return tx, nil
}

// Cancel withdraws a pending proposal.
func (c *Coordinator) Cancel(ctx context.Context, scope types.Scope, groupID, walletID, dummyTxID string) error {
	if err := c.client.DeleteDummyTransaction(ctx, groupID, walletID, dummyTxID); err != nil && !types.IsRemoteNotFound(err) {
		return fmt.Errorf("fail to cancel dummy transaction %s: %w", dummyTxID, err)
	}
	return c.cache.DeleteDummyTransaction(ctx, scope, dummyTxID)
}

// ThresholdNotMet reports whether a commit failed because signatures are
// still missing rather than being invalid.
func ThresholdNotMet(err error) bool {
	var re *types.RemoteError
	return errors.As(err, &re) && re.Code == types.RemoteCodeThresholdNotMet
}
