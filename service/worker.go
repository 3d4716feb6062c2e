package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/opencustody/walletsync/config"
	"github.com/opencustody/walletsync/contexthelper"
	"github.com/opencustody/walletsync/internal/engine"
	"github.com/opencustody/walletsync/internal/tasks"
	"github.com/opencustody/walletsync/internal/types"
)

type WorkerService struct {
	cfg         config.Config
	logger      *logrus.Logger
	engine      *engine.Engine
	queueClient *asynq.Client
	sdClient    *statsd.Client
}

func NewWorker(cfg config.Config, eng *engine.Engine, queueClient *asynq.Client, sdClient *statsd.Client) *WorkerService {
	return &WorkerService{
		cfg:         cfg,
		logger:      logrus.WithField("service", "worker").Logger,
		engine:      eng,
		queueClient: queueClient,
		sdClient:    sdClient,
	}
}

func (s *WorkerService) incCounter(name string, tags []string) {
	if err := s.sdClient.Count(name, 1, tags, 1); err != nil {
		s.logger.Errorf("fail to count metric, err: %v", err)
	}
}

func (s *WorkerService) measureTime(name string, start time.Time, tags []string) {
	if err := s.sdClient.Timing(name, time.Since(start), tags, 1); err != nil {
		s.logger.Errorf("fail to measure time metric, err: %v", err)
	}
}

// HandleSyncAll runs the account-wide pass and fans out per-wallet and
// per-group tasks onto their own queues.
func (s *WorkerService) HandleSyncAll(ctx context.Context, t *asynq.Task) error {
	if err := contexthelper.CheckCancellation(ctx); err != nil {
		return err
	}
	defer s.measureTime("worker.sync.all.latency", time.Now(), []string{})

	var p tasks.SyncAllPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("json.Unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}
	scope := types.Scope{ChatID: p.ChatID, Chain: types.Chain(p.Chain)}

	s.logger.WithFields(logrus.Fields{
		"chat_id": p.ChatID,
		"chain":   p.Chain,
	}).Info("starting full sync")
	s.incCounter("worker.sync.all", []string{})

	result, err := s.engine.GetServerWallets(ctx, scope)
	if err != nil {
		_ = s.sdClient.Count("worker.sync.all.error", 1, nil, 1)
		return fmt.Errorf("engine.GetServerWallets failed: %w", err)
	}

	if _, err := s.engine.SyncGroups(ctx, scope); err != nil {
		return fmt.Errorf("engine.SyncGroups failed: %w", err)
	}
	if _, err := s.engine.SyncDeletedWallets(ctx, scope); err != nil {
		return fmt.Errorf("engine.SyncDeletedWallets failed: %w", err)
	}
	if err := s.engine.Reconciler().SyncSavedAddresses(ctx, scope); err != nil {
		return fmt.Errorf("reconcile.SyncSavedAddresses failed: %w", err)
	}

	wallets, err := s.engine.ListAssistedWallets(ctx, scope)
	if err != nil {
		return fmt.Errorf("engine.ListAssistedWallets failed: %w", err)
	}
	for _, w := range wallets {
		task, opts, err := tasks.NewSyncWalletTask(tasks.SyncWalletPayload{
			ChatID:   p.ChatID,
			Chain:    p.Chain,
			GroupID:  w.GroupID,
			WalletID: w.LocalID,
		})
		if err != nil {
			return err
		}
		if _, err := s.queueClient.EnqueueContext(ctx, task, opts...); err != nil {
			if errors.Is(err, asynq.ErrTaskIDConflict) {
				continue
			}
			s.logger.WithFields(logrus.Fields{"wallet": w.LocalID, "error": err}).Error("fail to enqueue wallet sync")
		}
	}

	groups, err := s.engine.ListGroups(ctx, scope)
	if err != nil {
		return fmt.Errorf("engine.ListGroups failed: %w", err)
	}
	walletByGroup := make(map[string]string, len(wallets))
	for _, w := range wallets {
		if w.GroupID != "" {
			walletByGroup[w.GroupID] = w.LocalID
		}
	}
	for _, g := range groups {
		task, err := tasks.NewSyncGroupTask(tasks.SyncGroupPayload{
			ChatID:   p.ChatID,
			Chain:    p.Chain,
			GroupID:  g.ID,
			WalletID: walletByGroup[g.ID],
		})
		if err != nil {
			return err
		}
		if _, err := s.queueClient.EnqueueContext(ctx, task); err != nil {
			s.logger.WithFields(logrus.Fields{"group": g.ID, "error": err}).Error("fail to enqueue group sync")
		}
	}

	s.logger.WithFields(logrus.Fields{
		"wallets":     len(wallets),
		"groups":      len(groups),
		"need_reload": result.NeedReload,
	}).Info("full sync pass completed")
	return nil
}

// HandleSyncWallet reconciles one wallet's transactions.
func (s *WorkerService) HandleSyncWallet(ctx context.Context, t *asynq.Task) error {
	if err := contexthelper.CheckCancellation(ctx); err != nil {
		return err
	}
	defer s.measureTime("worker.sync.wallet.latency", time.Now(), []string{})

	var p tasks.SyncWalletPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("json.Unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}
	scope := types.Scope{ChatID: p.ChatID, Chain: types.Chain(p.Chain)}

	s.incCounter("worker.sync.wallet", []string{})
	if err := s.engine.SyncWalletTransactions(ctx, scope, p.GroupID, p.WalletID); err != nil {
		_ = s.sdClient.Count("worker.sync.wallet.error", 1, nil, 1)
		return fmt.Errorf("engine.SyncWalletTransactions failed: %w", err)
	}
	return nil
}

// HandleSyncGroup refreshes one group, its alerts and key health.
func (s *WorkerService) HandleSyncGroup(ctx context.Context, t *asynq.Task) error {
	if err := contexthelper.CheckCancellation(ctx); err != nil {
		return err
	}
	defer s.measureTime("worker.sync.group.latency", time.Now(), []string{})

	var p tasks.SyncGroupPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("json.Unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}
	scope := types.Scope{ChatID: p.ChatID, Chain: types.Chain(p.Chain)}

	s.incCounter("worker.sync.group", []string{})
	if err := s.engine.SyncGroup(ctx, scope, p.GroupID, p.WalletID); err != nil {
		_ = s.sdClient.Count("worker.sync.group.error", 1, nil, 1)
		return fmt.Errorf("engine.SyncGroup failed: %w", err)
	}
	return nil
}
