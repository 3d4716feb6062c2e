package reconcile

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/opencustody/walletsync/config"
	"github.com/opencustody/walletsync/internal/remote"
	"github.com/opencustody/walletsync/internal/storagetest"
	"github.com/opencustody/walletsync/internal/types"
	"github.com/opencustody/walletsync/internal/walletstore"
)

var testScope = types.Scope{ChatID: "chat-1", Chain: types.ChainMain}

func newTestEnv(t *testing.T, handler http.Handler) (*Reconciler, *storagetest.Cache, *walletstore.Store) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg := &config.Config{}
	cfg.Remote.Server = srv.URL
	cfg.Remote.Timeout = 5 * time.Second
	cache := storagetest.New()
	store := walletstore.NewStore(types.ChainMain)
	return NewReconciler(remote.NewClient(cfg), cache, store), cache, store
}

func respondOK(w http.ResponseWriter, data any) {
	payload, _ := json.Marshal(data)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"data":      json.RawMessage(payload),
		"isSuccess": true,
	})
}

func respondErr(w http.ResponseWriter, code int, message string) {
	_ = json.NewEncoder(w).Encode(map[string]any{
		"isSuccess": false,
		"error":     map[string]any{"code": code, "message": message},
	})
}

type diffRow struct {
	ID    string
	Value string
	Local string
}

func TestDiff(t *testing.T) {
	key := func(r diffRow) string { return r.ID }
	keepLocal := func(old diffRow, exists bool, fresh diffRow) diffRow {
		if exists {
			fresh.Local = old.Local
		}
		return fresh
	}

	testCases := []struct {
		name        string
		local       []diffRow
		remote      []diffRow
		wantUpserts int
		wantDeletes []string
		wantChanged bool
	}{
		{
			name: "both empty",
		},
		{
			name:        "same membership different values",
			local:       []diffRow{{ID: "a", Value: "old"}},
			remote:      []diffRow{{ID: "a", Value: "new"}},
			wantUpserts: 1,
			wantChanged: false,
		},
		{
			name:        "new remote item",
			local:       []diffRow{{ID: "a"}},
			remote:      []diffRow{{ID: "a"}, {ID: "b"}},
			wantUpserts: 2,
			wantChanged: true,
		},
		{
			name:        "remote dropped an item",
			local:       []diffRow{{ID: "a"}, {ID: "b"}},
			remote:      []diffRow{{ID: "a"}},
			wantUpserts: 1,
			wantDeletes: []string{"b"},
			wantChanged: true,
		},
		{
			name:        "remote empty deletes everything",
			local:       []diffRow{{ID: "a"}},
			wantDeletes: []string{"a"},
			wantChanged: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			upserts, deletes, changed := diff(tc.local, tc.remote, key, keepLocal)
			assert.Len(t, upserts, tc.wantUpserts)
			assert.ElementsMatch(t, tc.wantDeletes, deletes)
			assert.Equal(t, tc.wantChanged, changed)
		})
	}
}

func TestDiffPreservesLocalFields(t *testing.T) {
	local := []diffRow{{ID: "a", Value: "old", Local: "mine"}}
	remoteRows := []diffRow{{ID: "a", Value: "new"}}

	upserts, _, _ := diff(local, remoteRows, func(r diffRow) string { return r.ID },
		func(old diffRow, exists bool, fresh diffRow) diffRow {
			if exists {
				fresh.Local = old.Local
			}
			return fresh
		})

	assert.Equal(t, []diffRow{{ID: "a", Value: "new", Local: "mine"}}, upserts)
}

func TestSnapshotCache(t *testing.T) {
	c := newSnapshotCache(2)
	dto := types.TransactionDTO{ID: "srv-1", Status: "PENDING_SIGNATURES"}

	assert.False(t, c.Unchanged("w1", "tx1", dto))
	c.Add("w1", "tx1", dto)
	assert.True(t, c.Unchanged("w1", "tx1", dto))

	altered := dto
	altered.Status = "CONFIRMED"
	assert.False(t, c.Unchanged("w1", "tx1", altered))

	c.Remove("w1", "tx1")
	assert.False(t, c.Unchanged("w1", "tx1", dto))
}

func TestSnapshotCacheBounded(t *testing.T) {
	c := newSnapshotCache(2)
	c.Add("w1", "tx1", types.TransactionDTO{ID: "1"})
	c.Add("w1", "tx2", types.TransactionDTO{ID: "2"})
	c.Add("w1", "tx3", types.TransactionDTO{ID: "3"})
	assert.Len(t, c.items, 2)
}
