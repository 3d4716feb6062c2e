package walletstore_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencustody/walletsync/internal/types"
	"github.com/opencustody/walletsync/internal/walletstore"
)

func TestCreateWallet(t *testing.T) {
	store := walletstore.NewStore(types.ChainMain)

	err := store.CreateWallet(types.Wallet{})
	assert.Error(t, err, "wallet without id must be rejected")

	require.NoError(t, store.CreateWallet(types.Wallet{ID: "w1", M: 1, N: 2}))
	assert.Error(t, store.CreateWallet(types.Wallet{ID: "w1"}), "duplicate id must be rejected")
	assert.True(t, store.HasWallet("w1"))
}

func TestGetWalletReturnsCopy(t *testing.T) {
	store := walletstore.NewStore(types.ChainMain)
	require.NoError(t, store.CreateWallet(types.Wallet{
		ID:      "w1",
		Signers: []types.Signer{{MasterFingerprint: "aabbccdd", DerivationPath: "m/48'/0'/0'/2'"}},
	}))

	w, ok := store.GetWallet("w1")
	require.True(t, ok)
	w.Signers[0].MasterFingerprint = "mutated"

	again, ok := store.GetWallet("w1")
	require.True(t, ok)
	assert.Equal(t, "aabbccdd", again.Signers[0].MasterFingerprint)
}

func TestCreateSignerDuplicate(t *testing.T) {
	store := walletstore.NewStore(types.ChainMain)
	sg := types.Signer{
		MasterFingerprint: "aabbccdd",
		DerivationPath:    "m/48'/0'/0'/2'",
		Type:              types.SignerTypeRemote,
	}
	require.NoError(t, store.CreateSigner(sg))

	err := store.CreateSigner(sg)
	assert.ErrorIs(t, err, types.ErrDuplicateKey)

	err = store.CreateSigner(types.Signer{MasterFingerprint: "aabbccdd"})
	assert.Error(t, err, "signer without derivation path must be rejected")
}

func TestUpdateMasterSigner(t *testing.T) {
	store := walletstore.NewStore(types.ChainMain)
	require.NoError(t, store.CreateSigner(types.Signer{
		MasterFingerprint: "aabbccdd",
		DerivationPath:    "m/48'/0'/0'/2'",
		Type:              types.SignerTypeMaster,
	}))

	require.NoError(t, store.UpdateMasterSigner("aabbccdd", "Cold Card", []string{"INHERITANCE"}, true))
	sg, ok := store.GetMasterSigner("aabbccdd")
	require.True(t, ok)
	assert.Equal(t, "Cold Card", sg.Name)
	assert.True(t, sg.HasTag("INHERITANCE"))

	assert.Error(t, store.UpdateMasterSigner("11223344", "x", nil, true))
}

func TestUpdateRemoteSigner(t *testing.T) {
	store := walletstore.NewStore(types.ChainMain)
	require.NoError(t, store.CreateSigner(types.Signer{
		MasterFingerprint: "aabbccdd",
		DerivationPath:    "m/48'/0'/0'/2'",
		Type:              types.SignerTypeRemote,
	}))

	require.NoError(t, store.UpdateRemoteSigner("aabbccdd", "m/48'/0'/0'/2'", "Passport", nil, false))
	sg, ok := store.GetSigner("aabbccdd", "m/48'/0'/0'/2'")
	require.True(t, ok)
	assert.Equal(t, "Passport", sg.Name)
	assert.False(t, sg.Visible)

	assert.Error(t, store.UpdateRemoteSigner("aabbccdd", "m/48'/0'/0'/3'", "x", nil, true))
}

func TestSignerWalletRefs(t *testing.T) {
	store := walletstore.NewStore(types.ChainMain)
	shared := types.Signer{MasterFingerprint: "aabbccdd", DerivationPath: "m/48'/0'/0'/2'"}
	require.NoError(t, store.CreateWallet(types.Wallet{ID: "w1", Signers: []types.Signer{shared}}))
	require.NoError(t, store.CreateWallet(types.Wallet{ID: "w2", Signers: []types.Signer{shared}}))

	refs := store.SignerWalletRefs("aabbccdd", "m/48'/0'/0'/2'")
	assert.Len(t, refs, 2)

	require.NoError(t, store.DeleteWallet("w1"))
	refs = store.SignerWalletRefs("aabbccdd", "m/48'/0'/0'/2'")
	assert.Equal(t, []string{"w2"}, refs)

	assert.Empty(t, store.SignerWalletRefs("11223344", "m/48'/0'/0'/2'"))
}
