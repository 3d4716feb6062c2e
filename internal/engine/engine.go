// Package engine is the façade tying the remote client, the local cache,
// the embedded wallet store and the authorization machinery together. All
// operations take an explicit Scope; nothing in here reaches for ambient
// account state.
package engine

import (
	"github.com/DataDog/datadog-go/statsd"
	"github.com/sirupsen/logrus"

	"github.com/opencustody/walletsync/config"
	"github.com/opencustody/walletsync/internal/auth"
	"github.com/opencustody/walletsync/internal/dummytx"
	"github.com/opencustody/walletsync/internal/reconcile"
	"github.com/opencustody/walletsync/internal/remote"
	"github.com/opencustody/walletsync/internal/walletstore"
	"github.com/opencustody/walletsync/storage"
)

type Engine struct {
	logger   *logrus.Logger
	cfg      *config.Config
	client   *remote.Client
	cache    storage.Cache
	redis    *storage.RedisStorage
	blocks   *storage.BlockStorage
	store    *walletstore.Store
	rec      *reconcile.Reconciler
	auth     *auth.Coordinator
	dummy    *dummytx.Coordinator
	sdClient *statsd.Client
}

func New(cfg *config.Config,
	client *remote.Client,
	cache storage.Cache,
	redis *storage.RedisStorage,
	blocks *storage.BlockStorage,
	store *walletstore.Store,
	sdClient *statsd.Client) *Engine {
	authc := auth.NewCoordinator(client, redis)
	return &Engine{
		logger:   logrus.WithField("module", "engine").Logger,
		cfg:      cfg,
		client:   client,
		cache:    cache,
		redis:    redis,
		blocks:   blocks,
		store:    store,
		rec:      reconcile.NewReconciler(client, cache, store),
		auth:     authc,
		dummy:    dummytx.NewCoordinator(client, authc, cache),
		sdClient: sdClient,
	}
}

// Auth exposes the verification-token coordinator.
func (e *Engine) Auth() *auth.Coordinator { return e.auth }

// DummyTransactions exposes the threshold-authorization coordinator.
func (e *Engine) DummyTransactions() *dummytx.Coordinator { return e.dummy }

// Reconciler exposes the merge passes directly, mainly for the worker.
func (e *Engine) Reconciler() *reconcile.Reconciler { return e.rec }

// Store exposes the embedded wallet store.
func (e *Engine) Store() *walletstore.Store { return e.store }

func (e *Engine) count(name string, value int64, tags []string) {
	if e.sdClient == nil {
		return
	}
	if err := e.sdClient.Count(name, value, tags, 1); err != nil {
		e.logger.WithError(err).Debug("fail to report metric")
	}
}
