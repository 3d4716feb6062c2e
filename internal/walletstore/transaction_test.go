package walletstore_test

import (
	"bytes"
	"crypto/sha256"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencustody/walletsync/internal/types"
	"github.com/opencustody/walletsync/internal/walletstore"
)

// testPsbt builds a one-input packet over a fixed unsigned transaction and
// attaches one partial signature per key, so two calls with different keys
// produce packets for the same txid with disjoint signature sets.
func testPsbt(t *testing.T, seedBytes ...byte) string {
	t.Helper()
	tx := wire.NewMsgTx(2)
	tx.AddTxIn(wire.NewTxIn(&wire.OutPoint{Index: 0}, nil, nil))
	script := append([]byte{0x00, 0x14}, bytes.Repeat([]byte{0x11}, 20)...)
	tx.AddTxOut(wire.NewTxOut(50_000, script))

	packet, err := psbt.NewFromUnsignedTx(tx)
	require.NoError(t, err)

	digest := sha256.Sum256([]byte("walletstore test digest"))
	for _, seedByte := range seedBytes {
		key := testKey(t, seedByte, &chaincfg.MainNetParams)
		priv, err := key.ECPrivKey()
		require.NoError(t, err)
		sig := ecdsa.Sign(priv, digest[:])
		packet.Inputs[0].PartialSigs = append(packet.Inputs[0].PartialSigs, &psbt.PartialSig{
			PubKey:    priv.PubKey().SerializeCompressed(),
			Signature: append(sig.Serialize(), byte(txscript.SigHashAll)),
		})
	}

	b64, err := packet.B64Encode()
	require.NoError(t, err)
	return b64
}

func sigCount(t *testing.T, b64 string) int {
	t.Helper()
	packet, err := psbt.NewFromRawBytes(strings.NewReader(b64), true)
	require.NoError(t, err)
	return len(packet.Inputs[0].PartialSigs)
}

func newTxStore(t *testing.T) *walletstore.Store {
	t.Helper()
	store := walletstore.NewStore(types.ChainMain)
	require.NoError(t, store.CreateWallet(types.Wallet{ID: "w1", M: 2, N: 3}))
	return store
}

func TestImportPsbtUnknownWallet(t *testing.T) {
	store := walletstore.NewStore(types.ChainMain)
	_, err := store.ImportPsbt("missing", testPsbt(t, 1))
	assert.Error(t, err)
}

func TestImportPsbtBadPayload(t *testing.T) {
	store := newTxStore(t)
	_, err := store.ImportPsbt("w1", "not a psbt")
	assert.Error(t, err)
}

func TestImportPsbtMergesSignatures(t *testing.T) {
	store := newTxStore(t)

	first, err := store.ImportPsbt("w1", testPsbt(t, 1))
	require.NoError(t, err)
	assert.Equal(t, types.TxStatusPendingSignatures, first.Status)
	assert.Equal(t, 1, sigCount(t, first.Psbt))

	second, err := store.ImportPsbt("w1", testPsbt(t, 2))
	require.NoError(t, err)
	assert.Equal(t, first.TxID, second.TxID)
	assert.Equal(t, 2, sigCount(t, second.Psbt), "signatures from both packets must survive the merge")

	// re-importing an already merged signature must not duplicate it
	third, err := store.ImportPsbt("w1", testPsbt(t, 1))
	require.NoError(t, err)
	assert.Equal(t, 2, sigCount(t, third.Psbt))
}

func TestUpdateTransaction(t *testing.T) {
	store := newTxStore(t)
	imported, err := store.ImportPsbt("w1", testPsbt(t, 1))
	require.NoError(t, err)

	updated, err := store.UpdateTransaction("w1", imported.TxID, walletstore.TransactionUpdate{
		Hex:       "deadbeef",
		RejectMsg: "fee too low",
		Status:    types.TxStatusNetworkRejected,
	})
	require.NoError(t, err)
	assert.Equal(t, "deadbeef", updated.Hex)
	assert.Equal(t, "fee too low", updated.RejectMsg)
	assert.Equal(t, types.TxStatusNetworkRejected, updated.Status)

	// RejectMsg is always applied, so a follow-up update clears it
	updated, err = store.UpdateTransaction("w1", imported.TxID, walletstore.TransactionUpdate{
		Status: types.TxStatusConfirmed,
	})
	require.NoError(t, err)
	assert.Empty(t, updated.RejectMsg)
	assert.Equal(t, "deadbeef", updated.Hex, "zero Hex must leave the stored value untouched")

	updated, err = store.UpdateTransaction("w1", imported.TxID, walletstore.TransactionUpdate{
		NewTxID: "replacement-txid",
	})
	require.NoError(t, err)
	assert.Equal(t, "replacement-txid", updated.ReplacedByTxID)
}

func TestReplaceTransactionID(t *testing.T) {
	store := newTxStore(t)
	imported, err := store.ImportPsbt("w1", testPsbt(t, 1))
	require.NoError(t, err)

	require.NoError(t, store.ReplaceTransactionID("w1", imported.TxID, "new-txid"))
	_, ok := store.GetTransaction("w1", imported.TxID)
	assert.False(t, ok)
	rekeyed, ok := store.GetTransaction("w1", "new-txid")
	require.True(t, ok)
	assert.Equal(t, "new-txid", rekeyed.TxID)
	assert.Equal(t, imported.Psbt, rekeyed.Psbt)

	assert.Error(t, store.ReplaceTransactionID("w1", "missing", "x"))
}

func TestDeleteWalletDropsTransactions(t *testing.T) {
	store := newTxStore(t)
	imported, err := store.ImportPsbt("w1", testPsbt(t, 1))
	require.NoError(t, err)

	require.NoError(t, store.DeleteWallet("w1"))
	_, ok := store.GetTransaction("w1", imported.TxID)
	assert.False(t, ok)
}

func TestTransactionMemoAndSchedule(t *testing.T) {
	store := newTxStore(t)
	imported, err := store.ImportPsbt("w1", testPsbt(t, 1))
	require.NoError(t, err)

	require.NoError(t, store.UpdateTransactionMemo("w1", imported.TxID, "rent"))
	require.NoError(t, store.UpdateTransactionSchedule("w1", imported.TxID, 1700000000000))

	tx, ok := store.GetTransaction("w1", imported.TxID)
	require.True(t, ok)
	assert.Equal(t, "rent", tx.Memo)
	assert.Equal(t, int64(1700000000000), tx.ScheduleTimeMillis)

	assert.Error(t, store.UpdateTransactionMemo("w1", "missing", "x"))
	assert.Error(t, store.UpdateTransactionSchedule("w1", "missing", 1))
}
