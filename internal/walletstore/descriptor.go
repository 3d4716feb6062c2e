package walletstore

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"

	"github.com/opencustody/walletsync/internal/types"
)

// BSMS 1.0 is the interchange format wallets travel in: a version header,
// one output-descriptor line, the derivation template and a first address.

const bsmsVersion = "BSMS 1.0"

var (
	multiRe = regexp.MustCompile(`(?:sorted)?multi\((\d+),`)
	keyRe   = regexp.MustCompile(`\[([0-9a-fA-F]{8})((?:/[0-9]+[h']?)*)\]([A-Za-z0-9]+)`)
)

// ParseDescriptor turns a BSMS record into a wallet skeleton. The caller
// assigns the wallet id before creating it; signers come back public-only
// (SignerTypeRemote) and are matched against known signers by
// fingerprint+path.
func (s *Store) ParseDescriptor(bsms string) (types.Wallet, error) {
	var descriptor string
	for _, line := range strings.Split(strings.TrimSpace(bsms), "\n") {
		line = strings.TrimSpace(line)
		if strings.Contains(line, "multi(") {
			descriptor = line
			break
		}
	}
	if descriptor == "" {
		return types.Wallet{}, fmt.Errorf("no multisig descriptor found in record")
	}

	mMatch := multiRe.FindStringSubmatch(descriptor)
	if mMatch == nil {
		return types.Wallet{}, fmt.Errorf("fail to parse threshold from descriptor")
	}
	m, err := strconv.Atoi(mMatch[1])
	if err != nil {
		return types.Wallet{}, fmt.Errorf("fail to parse threshold: %w", err)
	}

	keyMatches := keyRe.FindAllStringSubmatch(descriptor, -1)
	if len(keyMatches) == 0 {
		return types.Wallet{}, fmt.Errorf("no keys found in descriptor")
	}
	if m <= 0 || m > len(keyMatches) {
		return types.Wallet{}, fmt.Errorf("invalid policy %d of %d", m, len(keyMatches))
	}

	wallet := types.Wallet{M: m, N: len(keyMatches)}
	seen := make(map[string]bool, len(keyMatches))
	for _, km := range keyMatches {
		xfp := strings.ToLower(km[1])
		path := "m" + strings.ReplaceAll(km[2], "h", "'")
		xpub := km[3]

		key, err := hdkeychain.NewKeyFromString(xpub)
		if err != nil {
			return types.Wallet{}, fmt.Errorf("fail to parse xpub for %s: %w", xfp, err)
		}
		if key.IsPrivate() {
			return types.Wallet{}, fmt.Errorf("descriptor for %s carries a private key", xfp)
		}
		if !key.IsForNet(s.params) {
			return types.Wallet{}, fmt.Errorf("xpub for %s is for the wrong network", xfp)
		}

		signerKey := xfp + "/" + path
		if seen[signerKey] {
			return types.Wallet{}, fmt.Errorf("duplicate signer %s in descriptor", signerKey)
		}
		seen[signerKey] = true

		wallet.Signers = append(wallet.Signers, types.Signer{
			MasterFingerprint: xfp,
			DerivationPath:    path,
			Xpub:              xpub,
			Type:              types.SignerTypeRemote,
			Visible:           true,
		})
	}
	return wallet, nil
}

// ExportDescriptor renders the wallet back into a BSMS record.
func (s *Store) ExportDescriptor(walletID string) (string, error) {
	w, ok := s.GetWallet(walletID)
	if !ok {
		return "", fmt.Errorf("wallet %s does not exist", walletID)
	}
	keys := make([]string, 0, len(w.Signers))
	for _, sg := range w.Signers {
		if sg.Xpub == "" {
			return "", fmt.Errorf("signer %s has no xpub to export", sg.Key())
		}
		path := strings.TrimPrefix(sg.DerivationPath, "m")
		keys = append(keys, fmt.Sprintf("[%s%s]%s/**", sg.MasterFingerprint, path, sg.Xpub))
	}
	descriptor := fmt.Sprintf("wsh(sortedmulti(%d,%s))", w.M, strings.Join(keys, ","))
	return bsmsVersion + "\n" + descriptor + "\n/0/*,/1/*\n", nil
}
