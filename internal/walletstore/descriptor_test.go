package walletstore_test

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencustody/walletsync/internal/types"
	"github.com/opencustody/walletsync/internal/walletstore"
)

func testKey(t *testing.T, seedByte byte, params *chaincfg.Params) *hdkeychain.ExtendedKey {
	t.Helper()
	seed := bytes.Repeat([]byte{seedByte}, 32)
	key, err := hdkeychain.NewMaster(seed, params)
	require.NoError(t, err)
	return key
}

func testXpub(t *testing.T, seedByte byte, params *chaincfg.Params) string {
	t.Helper()
	neutered, err := testKey(t, seedByte, params).Neuter()
	require.NoError(t, err)
	return neutered.String()
}

func bsmsRecord(m int, keys ...string) string {
	return "BSMS 1.0\nwsh(sortedmulti(" + strconv.Itoa(m) + "," + strings.Join(keys, ",") + "))\n/0/*,/1/*\n"
}

func descriptorKey(xfp, xpub string) string {
	return fmt.Sprintf("[%s/48h/0h/0h/2h]%s", xfp, xpub)
}

func TestParseDescriptor(t *testing.T) {
	store := walletstore.NewStore(types.ChainMain)
	xpubA := testXpub(t, 1, &chaincfg.MainNetParams)
	xpubB := testXpub(t, 2, &chaincfg.MainNetParams)

	wallet, err := store.ParseDescriptor(bsmsRecord(2,
		descriptorKey("AABBCCDD", xpubA),
		descriptorKey("11223344", xpubB),
	))
	require.NoError(t, err)

	assert.Equal(t, 2, wallet.M)
	assert.Equal(t, 2, wallet.N)
	require.Len(t, wallet.Signers, 2)
	assert.Equal(t, "aabbccdd", wallet.Signers[0].MasterFingerprint)
	assert.Equal(t, "m/48'/0'/0'/2'", wallet.Signers[0].DerivationPath)
	assert.Equal(t, xpubA, wallet.Signers[0].Xpub)
	assert.Equal(t, types.SignerTypeRemote, wallet.Signers[0].Type)
	assert.True(t, wallet.Signers[0].Visible)
	assert.Equal(t, "11223344", wallet.Signers[1].MasterFingerprint)
}

func TestParseDescriptorRejects(t *testing.T) {
	store := walletstore.NewStore(types.ChainMain)
	xpub := testXpub(t, 1, &chaincfg.MainNetParams)
	xprv := testKey(t, 1, &chaincfg.MainNetParams).String()
	testnetXpub := testXpub(t, 1, &chaincfg.TestNet3Params)

	testCases := []struct {
		name   string
		record string
	}{
		{
			name:   "no descriptor line",
			record: "BSMS 1.0\n\n/0/*,/1/*\n",
		},
		{
			name:   "private key",
			record: bsmsRecord(1, descriptorKey("aabbccdd", xprv)),
		},
		{
			name:   "wrong network",
			record: bsmsRecord(1, descriptorKey("aabbccdd", testnetXpub)),
		},
		{
			name:   "threshold above key count",
			record: bsmsRecord(3, descriptorKey("aabbccdd", xpub)),
		},
		{
			name:   "zero threshold",
			record: bsmsRecord(0, descriptorKey("aabbccdd", xpub)),
		},
		{
			name: "duplicate signer",
			record: bsmsRecord(2,
				descriptorKey("aabbccdd", xpub),
				descriptorKey("aabbccdd", xpub),
			),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := store.ParseDescriptor(tc.record)
			assert.Error(t, err)
		})
	}
}

func TestExportDescriptorRoundTrip(t *testing.T) {
	store := walletstore.NewStore(types.ChainMain)
	xpubA := testXpub(t, 1, &chaincfg.MainNetParams)
	xpubB := testXpub(t, 2, &chaincfg.MainNetParams)

	wallet, err := store.ParseDescriptor(bsmsRecord(2,
		descriptorKey("aabbccdd", xpubA),
		descriptorKey("11223344", xpubB),
	))
	require.NoError(t, err)
	wallet.ID = "w1"
	require.NoError(t, store.CreateWallet(wallet))

	record, err := store.ExportDescriptor("w1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(record, "BSMS 1.0\n"))
	assert.Contains(t, record, "sortedmulti(2,")

	reparsed, err := store.ParseDescriptor(record)
	require.NoError(t, err)
	assert.Equal(t, wallet.M, reparsed.M)
	assert.Equal(t, wallet.N, reparsed.N)
	assert.Equal(t, wallet.Signers, reparsed.Signers)
}

func TestExportDescriptorUnknownWallet(t *testing.T) {
	store := walletstore.NewStore(types.ChainMain)
	_, err := store.ExportDescriptor("missing")
	assert.Error(t, err)
}
