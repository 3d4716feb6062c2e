// Package reconcile implements the fetch-diff-merge passes that converge
// the local cache and embedded wallet store onto the coordination
// service's state without clobbering locally owned fields.
package reconcile

import (
	"github.com/sirupsen/logrus"

	"github.com/opencustody/walletsync/internal/remote"
	"github.com/opencustody/walletsync/internal/walletstore"
	"github.com/opencustody/walletsync/storage"
)

type Reconciler struct {
	logger    *logrus.Logger
	client    *remote.Client
	cache     storage.Cache
	store     *walletstore.Store
	snapshots *snapshotCache
}

func NewReconciler(client *remote.Client, cache storage.Cache, store *walletstore.Store) *Reconciler {
	return &Reconciler{
		logger:    logrus.WithField("module", "reconcile").Logger,
		client:    client,
		cache:     cache,
		store:     store,
		snapshots: newSnapshotCache(snapshotCapacity),
	}
}

// diff splits a freshly fetched remote collection against the local one.
// Every remote item becomes an upsert, merged against its local
// counterpart so locally owned fields survive; local keys the server no
// longer reports become the delete set. Both sets are meant to be applied
// in one storage transaction.
func diff[K comparable, T any](
	local []T,
	remoteItems []T,
	key func(T) K,
	merge func(old T, exists bool, fresh T) T,
) (upserts []T, deleteKeys []K, changed bool) {
	remaining := make(map[K]T, len(local))
	for _, item := range local {
		remaining[key(item)] = item
	}

	for _, fresh := range remoteItems {
		k := key(fresh)
		old, exists := remaining[k]
		upserts = append(upserts, merge(old, exists, fresh))
		if !exists {
			changed = true
		}
		delete(remaining, k)
	}

	for k := range remaining {
		deleteKeys = append(deleteKeys, k)
	}
	// changed tracks membership only; updated field values still land via
	// the upsert batch
	changed = changed || len(deleteKeys) > 0
	return upserts, deleteKeys, changed
}
