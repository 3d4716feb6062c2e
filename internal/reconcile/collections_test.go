package reconcile

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencustody/walletsync/internal/remote"
	"github.com/opencustody/walletsync/internal/types"
)

func TestSyncGroups(t *testing.T) {
	rec, cache, _ := newTestEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/group-wallets/groups", r.URL.Path)
		respondOK(w, map[string]any{
			"groups": []map[string]any{
				{"id": "g-a", "status": "ACTIVE"},
				{"id": "g-b", "status": "PENDING_WALLET"},
			},
		})
	}))

	cache.Groups["g-b"] = types.Group{ID: "g-b", Status: types.GroupStatusActive}
	cache.Groups["g-c"] = types.Group{ID: "g-c", Status: types.GroupStatusActive}

	changed, err := rec.SyncGroups(context.Background(), testScope)
	require.NoError(t, err)
	assert.True(t, changed, "a new group and a dropped group both count")

	assert.Len(t, cache.Groups, 2)
	assert.Contains(t, cache.Groups, "g-a")
	assert.Equal(t, types.GroupStatusPendingWallet, cache.Groups["g-b"].Status)
	assert.NotContains(t, cache.Groups, "g-c")

	changed, err = rec.SyncGroups(context.Background(), testScope)
	require.NoError(t, err)
	assert.False(t, changed, "an identical roster must report no change")
}

func TestSyncGroupsFetchFailureLeavesCacheAlone(t *testing.T) {
	rec, cache, _ := newTestEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondErr(w, 9000, "service unavailable")
	}))
	cache.Groups["g-a"] = types.Group{ID: "g-a"}

	_, err := rec.SyncGroups(context.Background(), testScope)
	require.Error(t, err)
	assert.Contains(t, cache.Groups, "g-a")
}

func TestSyncGroupNotFoundDeletesRow(t *testing.T) {
	rec, cache, _ := newTestEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondErr(w, types.RemoteCodeNotFound, "no such group")
	}))
	cache.Groups["g-a"] = types.Group{ID: "g-a"}

	require.NoError(t, rec.SyncGroup(context.Background(), testScope, "g-a"))
	assert.NotContains(t, cache.Groups, "g-a")
}

func TestSyncGroupRefreshesRow(t *testing.T) {
	rec, cache, _ := newTestEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondOK(w, map[string]any{
			"group": map[string]any{
				"id":     "g-a",
				"status": "ACTIVE",
				"wallet_config": map[string]any{
					"m": 2, "n": 4, "required_server_key": true,
				},
			},
		})
	}))

	require.NoError(t, rec.SyncGroup(context.Background(), testScope, "g-a"))
	g := cache.Groups["g-a"]
	assert.Equal(t, types.GroupStatusActive, g.Status)
	assert.Equal(t, 2, g.Policy.M)
	assert.True(t, g.Policy.RequiresServerKey)
}

func TestSyncAlertsPaginates(t *testing.T) {
	rec, cache, _ := newTestEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		var page []map[string]any
		total := remote.PageSize + 3
		for i := offset; i < total && i < offset+remote.PageSize; i++ {
			page = append(page, map[string]any{
				"id":    fmt.Sprintf("alert-%d", i),
				"title": "key health reminder",
			})
		}
		respondOK(w, map[string]any{"alerts": page})
	}))

	cache.Alerts["stale"] = types.Alert{ID: "stale", GroupID: "g-a"}

	count, err := rec.SyncAlerts(context.Background(), testScope, "g-a", "")
	require.NoError(t, err)
	assert.Equal(t, remote.PageSize+3, count)
	assert.Len(t, cache.Alerts, remote.PageSize+3)
	assert.NotContains(t, cache.Alerts, "stale")
	assert.Equal(t, "g-a", cache.Alerts["alert-0"].GroupID)
}

func TestSyncKeyHealth(t *testing.T) {
	rec, cache, _ := newTestEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondOK(w, map[string]any{
			"statuses": []map[string]any{
				{"xfp": "aabbccdd", "can_request_health_check": true, "last_health_check_time_millis": 1700000000000},
				{"xfp": "11223344"},
			},
		})
	}))

	cache.KeyHealth["55667788"] = types.KeyHealth{Xfp: "55667788", GroupID: "g-a", WalletID: "w1"}

	require.NoError(t, rec.SyncKeyHealth(context.Background(), testScope, "g-a", "w1"))
	assert.Len(t, cache.KeyHealth, 2)
	assert.NotContains(t, cache.KeyHealth, "55667788")
	assert.Equal(t, int64(1700000000000), cache.KeyHealth["aabbccdd"].LastHealthCheckTimeMillis)
	assert.Zero(t, cache.KeyHealth["11223344"].LastHealthCheckTimeMillis)
}

func TestSyncSavedAddresses(t *testing.T) {
	rec, cache, _ := newTestEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondOK(w, map[string]any{
			"addresses": []map[string]any{
				{"address": "bc1qaaaa", "label": "exchange"},
			},
		})
	}))

	cache.Addresses["bc1qbbbb"] = types.SavedAddress{Address: "bc1qbbbb", Label: "old"}

	require.NoError(t, rec.SyncSavedAddresses(context.Background(), testScope))
	assert.Len(t, cache.Addresses, 1)
	assert.Equal(t, "exchange", cache.Addresses["bc1qaaaa"].Label)
}
