package main

import (
	"flag"
	"log"
	"strings"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/opencustody/walletsync/config"
	"github.com/opencustody/walletsync/internal/engine"
	"github.com/opencustody/walletsync/internal/remote"
	"github.com/opencustody/walletsync/internal/tasks"
	"github.com/opencustody/walletsync/internal/types"
	"github.com/opencustody/walletsync/internal/walletstore"
	"github.com/opencustody/walletsync/service"
	"github.com/opencustody/walletsync/storage"
	"github.com/opencustody/walletsync/storage/postgres"
)

func chainFromNetwork(network string) types.Chain {
	switch strings.ToLower(network) {
	case "testnet":
		return types.ChainTestnet
	case "signet":
		return types.ChainSignet
	default:
		return types.ChainMain
	}
}

func main() {
	configName := flag.String("config", "config", "config file name without extension")
	flag.Parse()

	cfg, err := config.ReadConfig(*configName)
	if err != nil {
		log.Fatalf("fail to read config: %v", err)
	}
	logger := logrus.WithField("service", "walletsyncd").Logger

	sdClient, err := statsd.New(cfg.Datadog.Host + ":" + cfg.Datadog.Port)
	if err != nil {
		log.Fatalf("fail to create statsd client: %v", err)
	}

	cache, err := postgres.NewPostgresBackend(cfg.Postgres.DSN)
	if err != nil {
		log.Fatalf("fail to open local cache: %v", err)
	}
	defer func() {
		if err := cache.Close(); err != nil {
			logger.Errorf("fail to close local cache: %v", err)
		}
	}()

	redis, err := storage.NewRedisStorage(*cfg)
	if err != nil {
		log.Fatalf("fail to connect to redis: %v", err)
	}
	defer func() {
		if err := redis.Close(); err != nil {
			logger.Errorf("fail to close redis: %v", err)
		}
	}()

	var blocks *storage.BlockStorage
	if cfg.BlockStorage.Host != "" {
		blocks, err = storage.NewBlockStorage(*cfg)
		if err != nil {
			log.Fatalf("fail to create block storage: %v", err)
		}
	}

	client := remote.NewClient(cfg)
	client.SetAuthToken(cfg.Account.AuthToken)

	chain := chainFromNetwork(cfg.Bitcoin.Network)
	scope := types.Scope{ChatID: cfg.Account.ChatID, Chain: chain}
	store := walletstore.NewStore(chain)

	eng := engine.New(cfg, client, cache, redis, blocks, store, sdClient)

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
		Username: cfg.Redis.User,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	queueClient := asynq.NewClient(redisOpt)
	defer func() {
		if err := queueClient.Close(); err != nil {
			logger.Errorf("fail to close queue client: %v", err)
		}
	}()

	worker := service.NewWorker(*cfg, eng, queueClient, sdClient)

	scheduler := service.NewSchedulerService(*cfg, scope, logger, queueClient)
	scheduler.Start()
	defer scheduler.Stop()

	srv := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: cfg.Worker.Concurrency,
			Queues: map[string]int{
				tasks.QueueDefault: 3,
				tasks.QueueWallets: 6,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeSyncAll, worker.HandleSyncAll)
	mux.HandleFunc(tasks.TypeSyncWallet, worker.HandleSyncWallet)
	mux.HandleFunc(tasks.TypeSyncGroup, worker.HandleSyncGroup)

	logger.WithFields(logrus.Fields{
		"redis":   redisOpt.Addr,
		"chain":   chain,
		"chat_id": cfg.Account.ChatID,
	}).Info("starting sync worker")

	if err := srv.Run(mux); err != nil {
		log.Fatalf("could not run server: %v", err)
	}
}
