package dummytx_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencustody/walletsync/config"
	"github.com/opencustody/walletsync/internal/auth"
	"github.com/opencustody/walletsync/internal/dummytx"
	"github.com/opencustody/walletsync/internal/remote"
	"github.com/opencustody/walletsync/internal/storagetest"
	"github.com/opencustody/walletsync/internal/types"
)

var testScope = types.Scope{ChatID: "chat-1", Chain: types.ChainMain}

func newCoordinator(t *testing.T, handler http.Handler) (*dummytx.Coordinator, *storagetest.Cache, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg := &config.Config{}
	cfg.Remote.Server = srv.URL
	cfg.Remote.Timeout = 5 * time.Second
	client := remote.NewClient(cfg)
	cache := storagetest.New()
	return dummytx.NewCoordinator(client, auth.NewCoordinator(client, nil), cache), cache, srv
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

func nonceHandler(counter *int64) func(w http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		n := atomic.AddInt64(counter, 1)
		respondOK(w, map[string]any{
			"nonce": map[string]any{"nonce": fmt.Sprintf("nonce-%d", n)},
		})
	}
}

func TestProposeUsesFreshNoncePerEnvelope(t *testing.T) {
	var nonces int64
	serveNonce := nonceHandler(&nonces)
	coord, cache, _ := newCoordinator(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/user-wallets/nonce", r.URL.Path)
		serveNonce(w)
	}))

	submit := func(ctx context.Context, envelope types.UserDataEnvelope) (*types.DummyTransactionDTO, error) {
		return &types.DummyTransactionDTO{
			ID:                 "dummy-" + envelope.Nonce,
			Status:             string(types.TxStatusPendingSignatures),
			RequiredSignatures: 2,
		}, nil
	}

	body := json.RawMessage(`{"signing_delay_seconds":3600}`)
	first, env1, err := coord.Propose(context.Background(), testScope, "", body, submit)
	require.NoError(t, err)
	second, env2, err := coord.Propose(context.Background(), testScope, "", body, submit)
	require.NoError(t, err)

	assert.Equal(t, "nonce-1", env1.Nonce)
	assert.Equal(t, "nonce-2", env2.Nonce)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Contains(t, cache.DummyTxs, first.ID, "pending proposals must be cached")
	assert.Contains(t, cache.DummyTxs, second.ID)
}

func TestProposeWithoutCoSigners(t *testing.T) {
	var nonces int64
	serveNonce := nonceHandler(&nonces)
	coord, cache, _ := newCoordinator(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		serveNonce(w)
	}))

	submit := func(ctx context.Context, envelope types.UserDataEnvelope) (*types.DummyTransactionDTO, error) {
		return nil, nil
	}
	tx, _, err := coord.Propose(context.Background(), testScope, "", nil, submit)
	require.NoError(t, err)
	assert.Equal(t, types.TxStatusConfirmed, tx.Status, "no pending record means the action already committed")
	assert.Empty(t, cache.DummyTxs)
}

func TestCommitCarriesPositionalHeaders(t *testing.T) {
	var gotHeaders http.Header
	coord, cache, _ := newCoordinator(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		gotHeaders = r.Header.Clone()
		respondOK(w, map[string]any{
			"dummy_transaction": map[string]any{
				"id":     "dummy-1",
				"status": string(types.TxStatusConfirmed),
			},
		})
	}))
	cache.DummyTxs["dummy-1"] = types.DummyTransaction{ID: "dummy-1"}

	upd, err := coord.Commit(context.Background(), testScope, "", "w1", "dummy-1",
		[]auth.SignaturePair{
			{Xfp: "aabbccdd", Signature: "sig-one"},
			{Xfp: "11223344", Signature: "sig-two"},
		},
		auth.HeaderOptions{VerifyToken: "vt"})
	require.NoError(t, err)

	assert.Equal(t, "aabbccdd.sig-one", gotHeaders.Get("AuthorizationX-1"))
	assert.Equal(t, "11223344.sig-two", gotHeaders.Get("AuthorizationX-2"))
	assert.Equal(t, "vt", gotHeaders.Get(auth.HeaderVerifyToken))

	assert.Equal(t, types.TxStatusConfirmed, upd.Status)
	assert.NotContains(t, cache.DummyTxs, "dummy-1", "committed proposals must be dropped from the cache")
}

func TestCommitThresholdNotMet(t *testing.T) {
	coord, _, _ := newCoordinator(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondErr(w, types.RemoteCodeThresholdNotMet, "1 of 2 signatures collected")
	}))

	_, err := coord.Commit(context.Background(), testScope, "", "w1", "dummy-1", nil, auth.HeaderOptions{})
	require.Error(t, err)
	assert.True(t, dummytx.ThresholdNotMet(err))
	assert.False(t, dummytx.ThresholdNotMet(fmt.Errorf("unrelated")))
}

func TestCommitStillPending(t *testing.T) {
	coord, cache, _ := newCoordinator(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondOK(w, map[string]any{
			"dummy_transaction": map[string]any{
				"id":                 "dummy-1",
				"status":             string(types.TxStatusPendingSignatures),
				"pending_signatures": 1,
			},
		})
	}))

	upd, err := coord.Commit(context.Background(), testScope, "", "w1", "dummy-1", nil, auth.HeaderOptions{})
	require.NoError(t, err)
	assert.Equal(t, types.TxStatusPendingSignatures, upd.Status)
	assert.Equal(t, 1, upd.PendingSignatures)
	assert.Contains(t, cache.DummyTxs, "dummy-1", "a still-pending proposal stays cached")
}

func TestGetVanishedProposal(t *testing.T) {
	coord, cache, _ := newCoordinator(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondErr(w, types.RemoteCodeNotFound, "no such dummy transaction")
	}))
	cache.DummyTxs["dummy-1"] = types.DummyTransaction{ID: "dummy-1"}

	_, err := coord.Get(context.Background(), testScope, "", "w1", "dummy-1")
	assert.ErrorIs(t, err, types.ErrPendingActionGone)
	assert.NotContains(t, cache.DummyTxs, "dummy-1")
}

func TestGetFallsBackToCacheWhenUnreachable(t *testing.T) {
	coord, cache, srv := newCoordinator(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	cached := types.DummyTransaction{ID: "dummy-1", Status: types.TxStatusPendingSignatures, PendingSignatures: 1}
	cache.DummyTxs["dummy-1"] = cached
	srv.Close()

	tx, err := coord.Get(context.Background(), testScope, "", "w1", "dummy-1")
	require.NoError(t, err)
	assert.Equal(t, cached, tx)
}

func TestCancelIgnoresRemoteNotFound(t *testing.T) {
	coord, cache, _ := newCoordinator(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondErr(w, types.RemoteCodeNotFound, "already gone")
	}))
	cache.DummyTxs["dummy-1"] = types.DummyTransaction{ID: "dummy-1"}

	require.NoError(t, coord.Cancel(context.Background(), testScope, "", "w1", "dummy-1"))
	assert.NotContains(t, cache.DummyTxs, "dummy-1")
}
