package reconcile

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencustody/walletsync/internal/types"
)

func walletXpub(t *testing.T, seedByte byte) string {
	t.Helper()
	seed := bytes.Repeat([]byte{seedByte}, 32)
	master, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	require.NoError(t, err)
	neutered, err := master.Neuter()
	require.NoError(t, err)
	return neutered.String()
}

func bsmsRecord(m int, keys ...string) string {
	return "BSMS 1.0\nwsh(sortedmulti(" + strconv.Itoa(m) + "," + strings.Join(keys, ",") + "))\n/0/*,/1/*\n"
}

func descriptorKey(xfp, xpub string) string {
	return fmt.Sprintf("[%s/48h/0h/0h/2h]%s", xfp, xpub)
}

const testPath = "m/48'/0'/0'/2'"

func signerDTO(xfp string) types.SignerDTO {
	return types.SignerDTO{
		Name:           "key " + xfp,
		Xfp:            xfp,
		DerivationPath: testPath,
		Type:           string(types.SignerTypeRemote),
		IsVisible:      true,
	}
}

func noRemote(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected remote call %s %s", r.Method, r.URL.Path)
	})
}

func TestSaveWalletToStoreMaterializes(t *testing.T) {
	rec, _, store := newTestEnv(t, noRemote(t))

	dto := types.WalletDTO{
		ID:                "srv-1",
		LocalID:           "w1",
		Name:              "Family Vault",
		Bsms:              bsmsRecord(2, descriptorKey("aaaaaaaa", walletXpub(t, 1)), descriptorKey("bbbbbbbb", walletXpub(t, 2))),
		CreatedTimeMillis: 1700000000000,
		Signers:           []types.SignerDTO{signerDTO("aaaaaaaa"), signerDTO("bbbbbbbb")},
	}
	require.NoError(t, rec.SaveWalletToStore(context.Background(), testScope, dto))

	w, ok := store.GetWallet("w1")
	require.True(t, ok)
	assert.Equal(t, "Family Vault", w.Name)
	assert.Equal(t, 2, w.M)
	assert.Equal(t, 2, w.N)
	assert.Equal(t, int64(1700000000), w.CreateDate)
	assert.True(t, store.HasSigner("aaaaaaaa", testPath))
	assert.True(t, store.HasSigner("bbbbbbbb", testPath))

	// a later record with a new name renames in place
	dto.Name = "Family Vault v2"
	require.NoError(t, rec.SaveWalletToStore(context.Background(), testScope, dto))
	w, _ = store.GetWallet("w1")
	assert.Equal(t, "Family Vault v2", w.Name)
}

func TestSaveWalletToStoreRequiresDescriptor(t *testing.T) {
	rec, _, _ := newTestEnv(t, noRemote(t))

	err := rec.SaveWalletToStore(context.Background(), testScope, types.WalletDTO{LocalID: "w1"})
	assert.Error(t, err, "an unknown wallet without a descriptor cannot be materialized")

	err = rec.SaveWalletToStore(context.Background(), testScope, types.WalletDTO{ID: "srv-1"})
	assert.Error(t, err, "a record without a local id is unusable")
}

func TestSaveWalletToStoreSweepsReplacedKeys(t *testing.T) {
	rec, _, store := newTestEnv(t, noRemote(t))

	first := types.WalletDTO{
		LocalID:          "w1",
		Name:             "Vault",
		Bsms:             bsmsRecord(2, descriptorKey("aaaaaaaa", walletXpub(t, 1)), descriptorKey("bbbbbbbb", walletXpub(t, 2))),
		RemoveUnusedKeys: true,
		Status:           string(types.WalletStatusActive),
		Signers:          []types.SignerDTO{signerDTO("aaaaaaaa"), signerDTO("bbbbbbbb")},
	}
	require.NoError(t, rec.SaveWalletToStore(context.Background(), testScope, first))

	// the server replaced key A with key C
	second := first
	second.Bsms = bsmsRecord(2, descriptorKey("bbbbbbbb", walletXpub(t, 2)), descriptorKey("cccccccc", walletXpub(t, 3)))
	second.Signers = []types.SignerDTO{signerDTO("bbbbbbbb"), signerDTO("cccccccc")}
	require.NoError(t, rec.SaveWalletToStore(context.Background(), testScope, second))

	assert.False(t, store.HasSigner("aaaaaaaa", testPath), "the orphaned key must be swept")
	assert.True(t, store.HasSigner("bbbbbbbb", testPath))
	assert.True(t, store.HasSigner("cccccccc", testPath))

	w, _ := store.GetWallet("w1")
	require.Len(t, w.Signers, 2)
	_, found := w.FindSigner("cccccccc")
	assert.True(t, found)
}

func TestSaveWalletToStoreKeepsKeysOfReplacedWallet(t *testing.T) {
	rec, _, store := newTestEnv(t, noRemote(t))

	first := types.WalletDTO{
		LocalID:          "w1",
		Bsms:             bsmsRecord(2, descriptorKey("aaaaaaaa", walletXpub(t, 1)), descriptorKey("bbbbbbbb", walletXpub(t, 2))),
		RemoveUnusedKeys: true,
		Status:           string(types.WalletStatusActive),
		Signers:          []types.SignerDTO{signerDTO("aaaaaaaa"), signerDTO("bbbbbbbb")},
	}
	require.NoError(t, rec.SaveWalletToStore(context.Background(), testScope, first))

	second := first
	second.Status = string(types.WalletStatusReplaced)
	second.Bsms = bsmsRecord(2, descriptorKey("bbbbbbbb", walletXpub(t, 2)), descriptorKey("cccccccc", walletXpub(t, 3)))
	second.Signers = []types.SignerDTO{signerDTO("bbbbbbbb"), signerDTO("cccccccc")}
	require.NoError(t, rec.SaveWalletToStore(context.Background(), testScope, second))

	assert.True(t, store.HasSigner("aaaaaaaa", testPath), "replaced wallets keep their keys for the continuity proof")
}

func TestSaveWalletToStoreNeverSweepsMasters(t *testing.T) {
	rec, _, store := newTestEnv(t, noRemote(t))
	require.NoError(t, store.CreateSigner(types.Signer{
		MasterFingerprint: "aaaaaaaa",
		DerivationPath:    testPath,
		Type:              types.SignerTypeMaster,
	}))

	first := types.WalletDTO{
		LocalID:          "w1",
		Bsms:             bsmsRecord(2, descriptorKey("aaaaaaaa", walletXpub(t, 1)), descriptorKey("bbbbbbbb", walletXpub(t, 2))),
		RemoveUnusedKeys: true,
		Status:           string(types.WalletStatusActive),
		Signers:          []types.SignerDTO{signerDTO("aaaaaaaa"), signerDTO("bbbbbbbb")},
	}
	require.NoError(t, rec.SaveWalletToStore(context.Background(), testScope, first))

	second := first
	second.Bsms = bsmsRecord(2, descriptorKey("bbbbbbbb", walletXpub(t, 2)), descriptorKey("cccccccc", walletXpub(t, 3)))
	second.Signers = []types.SignerDTO{signerDTO("bbbbbbbb"), signerDTO("cccccccc")}
	require.NoError(t, rec.SaveWalletToStore(context.Background(), testScope, second))

	assert.True(t, store.HasSigner("aaaaaaaa", testPath), "master key material must survive every sweep")
}
