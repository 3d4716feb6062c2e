package engine_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencustody/walletsync/config"
	"github.com/opencustody/walletsync/internal/engine"
	"github.com/opencustody/walletsync/internal/remote"
	"github.com/opencustody/walletsync/internal/storagetest"
	"github.com/opencustody/walletsync/internal/types"
	"github.com/opencustody/walletsync/internal/walletstore"
)

var testScope = types.Scope{ChatID: "chat-1", Chain: types.ChainMain}

func newTestEngine(t *testing.T, handler http.Handler) (*engine.Engine, *storagetest.Cache, *walletstore.Store) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg := &config.Config{}
	cfg.Remote.Server = srv.URL
	cfg.Remote.Timeout = 5 * time.Second
	cache := storagetest.New()
	store := walletstore.NewStore(types.ChainMain)
	return engine.New(cfg, remote.NewClient(cfg), cache, nil, nil, store, nil), cache, store
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

func testXpub(t *testing.T, seedByte byte) string {
	t.Helper()
	seed := bytes.Repeat([]byte{seedByte}, 32)
	master, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	require.NoError(t, err)
	neutered, err := master.Neuter()
	require.NoError(t, err)
	return neutered.String()
}

func testBsms(t *testing.T, m int, xfpSeeds map[string]byte) string {
	t.Helper()
	keys := make([]string, 0, len(xfpSeeds))
	for xfp, seed := range xfpSeeds {
		keys = append(keys, fmt.Sprintf("[%s/48h/0h/0h/2h]%s", xfp, testXpub(t, seed)))
	}
	return "BSMS 1.0\nwsh(sortedmulti(" + strconv.Itoa(m) + "," + strings.Join(keys, ",") + "))\n/0/*,/1/*\n"
}

func walletJSON(localID, groupID, bsms string, xfps ...string) map[string]any {
	signers := make([]map[string]any, 0, len(xfps))
	for _, xfp := range xfps {
		signers = append(signers, map[string]any{
			"xfp":             xfp,
			"derivation_path": "m/48'/0'/0'/2'",
			"type":            "REMOTE",
			"is_visible":      true,
		})
	}
	return map[string]any{
		"id":       "srv-" + localID,
		"local_id": localID,
		"name":     "wallet " + localID,
		"group_id": groupID,
		"bsms":     bsms,
		"status":   "ACTIVE",
		"signers":  signers,
		"server_key": map[string]any{
			"xfp": "eeeeeeee",
			"policies": map[string]any{
				"auto_broadcast_transaction": true,
				"signing_delay_seconds":      60,
			},
		},
	}
}

func TestGetServerWallets(t *testing.T) {
	personal := walletJSON("w1", "", testBsms(t, 2, map[string]byte{"aaaaaaaa": 1, "bbbbbbbb": 2}), "aaaaaaaa", "bbbbbbbb")
	group := walletJSON("w2", "g-1", testBsms(t, 2, map[string]byte{"bbbbbbbb": 2, "cccccccc": 3}), "bbbbbbbb", "cccccccc")

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/user-wallets/wallets", func(w http.ResponseWriter, r *http.Request) {
		respondOK(w, map[string]any{"wallets": []any{personal, group}})
	})
	mux.HandleFunc("/v1/claim-wallets/wallets", func(w http.ResponseWriter, r *http.Request) {
		respondOK(w, map[string]any{"wallets": []any{}})
	})

	eng, cache, store := newTestEngine(t, mux)
	cache.Wallets["w1"] = types.AssistedWallet{
		LocalID:               "w1",
		IsSetupInheritance:    true,
		RegisterColdcardCount: 2,
	}
	cache.Wallets["stale"] = types.AssistedWallet{LocalID: "stale"}
	cache.Wallets["g-old"] = types.AssistedWallet{LocalID: "g-old", GroupID: "g-zombie"}

	res, err := eng.GetServerWallets(context.Background(), testScope)
	require.NoError(t, err)

	assert.True(t, res.NeedReload, "freshly materialized wallets require a reload")
	assert.True(t, store.HasWallet("w1"))
	assert.True(t, store.HasWallet("w2"))

	row := cache.Wallets["w1"]
	assert.True(t, row.IsSetupInheritance, "locally owned fields must survive the merge")
	assert.Equal(t, 2, row.RegisterColdcardCount)
	assert.Equal(t, "wallet w1", row.Name)

	assert.NotContains(t, cache.Wallets, "stale", "personal rows the server dropped are purged")
	assert.Contains(t, cache.Wallets, "g-old", "group rows are not touched by the personal purge")

	assert.ElementsMatch(t, []string{"aaaaaaaa", "bbbbbbbb", "cccccccc"}, res.AssistedXfps)
	require.Contains(t, res.KeyPolicies, "w1")
	assert.True(t, res.KeyPolicies["w1"].AutoBroadcastTransaction)
	assert.Equal(t, int64(60), res.KeyPolicies["w1"].SigningDelaySeconds)

	// a second pass over known wallets changes nothing
	res, err = eng.GetServerWallets(context.Background(), testScope)
	require.NoError(t, err)
	assert.False(t, res.NeedReload)
}

func TestGetServerWalletsFetchFailure(t *testing.T) {
	eng, cache, _ := newTestEngine(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondErr(w, 9000, "service unavailable")
	}))
	cache.Wallets["w1"] = types.AssistedWallet{LocalID: "w1"}

	_, err := eng.GetServerWallets(context.Background(), testScope)
	require.Error(t, err)
	assert.Contains(t, cache.Wallets, "w1", "a failed fetch must not purge anything")
}
