// Package tasks defines the asynq task types the sync worker consumes.
package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	TypeSyncAll    = "sync:all"
	TypeSyncWallet = "sync:wallet"
	TypeSyncGroup  = "sync:group"
)

// QueueDefault serves account-wide passes; QueueWallets serves per-wallet
// merge passes.
const (
	QueueDefault = "default"
	QueueWallets = "wallets"
)

type SyncAllPayload struct {
	ChatID string
	Chain  string
}

type SyncWalletPayload struct {
	ChatID   string
	Chain    string
	GroupID  string
	WalletID string
}

type SyncGroupPayload struct {
	ChatID   string
	Chain    string
	GroupID  string
	WalletID string
}

func NewSyncAllTask(p SyncAllPayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("fail to marshal sync-all payload: %w", err)
	}
	return asynq.NewTask(TypeSyncAll, payload), nil
}

func NewSyncWalletTask(p SyncWalletPayload) (*asynq.Task, []asynq.Option, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, nil, fmt.Errorf("fail to marshal sync-wallet payload: %w", err)
	}
	// the task id keys on the wallet so two merge passes for the same
	// wallet can never be in flight together
	opts := []asynq.Option{
		asynq.Queue(QueueWallets),
		asynq.TaskID(TypeSyncWallet + ":" + p.WalletID),
	}
	return asynq.NewTask(TypeSyncWallet, payload), opts, nil
}

func NewSyncGroupTask(p SyncGroupPayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("fail to marshal sync-group payload: %w", err)
	}
	return asynq.NewTask(TypeSyncGroup, payload), nil
}
