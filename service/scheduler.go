package service

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/opencustody/walletsync/config"
	"github.com/opencustody/walletsync/internal/tasks"
	"github.com/opencustody/walletsync/internal/types"
)

// SchedulerService periodically enqueues the account-wide sync pass.
type SchedulerService struct {
	cfg    config.Config
	scope  types.Scope
	logger *logrus.Logger
	client *asynq.Client
	done   chan struct{}
}

func NewSchedulerService(cfg config.Config, scope types.Scope, logger *logrus.Logger, client *asynq.Client) *SchedulerService {
	return &SchedulerService{
		cfg:    cfg,
		scope:  scope,
		logger: logger,
		client: client,
		done:   make(chan struct{}),
	}
}

func (s *SchedulerService) Start() {
	go s.run()
}

func (s *SchedulerService) Stop() {
	close(s.done)
}

func (s *SchedulerService) run() {
	interval := s.cfg.Worker.SyncInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.enqueueSyncAll()
	for {
		select {
		case <-ticker.C:
			s.enqueueSyncAll()
		case <-s.done:
			return
		}
	}
}

func (s *SchedulerService) enqueueSyncAll() {
	task, err := tasks.NewSyncAllTask(tasks.SyncAllPayload{
		ChatID: s.scope.ChatID,
		Chain:  string(s.scope.Chain),
	})
	if err != nil {
		s.logger.Errorf("fail to build sync task: %v", err)
		return
	}
	if _, err := s.client.EnqueueContext(context.Background(), task, asynq.Queue(tasks.QueueDefault)); err != nil {
		s.logger.Errorf("fail to enqueue sync task: %v", err)
	}
}
