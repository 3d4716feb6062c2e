// Package walletstore is the embedded wallet engine. Wallets, signers and
// transactions live in flat tables keyed by id, fingerprint+path and
// wallet+txid; relationships are id references, so deletion order is a
// query rather than a graph walk.
package walletstore

import (
	"fmt"
	"sync"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/sirupsen/logrus"

	"github.com/opencustody/walletsync/internal/types"
)

type Store struct {
	mu      sync.RWMutex
	logger  *logrus.Logger
	params  *chaincfg.Params
	wallets map[string]types.Wallet
	signers map[string]types.Signer
	txs     map[string]types.Transaction
}

func NewStore(chain types.Chain) *Store {
	return &Store{
		logger:  logrus.WithField("module", "walletstore").Logger,
		params:  chainParams(chain),
		wallets: make(map[string]types.Wallet),
		signers: make(map[string]types.Signer),
		txs:     make(map[string]types.Transaction),
	}
}

func chainParams(chain types.Chain) *chaincfg.Params {
	switch chain {
	case types.ChainTestnet:
		return &chaincfg.TestNet3Params
	case types.ChainSignet:
		return &chaincfg.SigNetParams
	default:
		return &chaincfg.MainNetParams
	}
}

func txKey(walletID, txID string) string {
	return walletID + "/" + txID
}

// --- wallets ---

func (s *Store) HasWallet(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.wallets[id]
	return ok
}

func (s *Store) GetWallet(id string) (types.Wallet, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.wallets[id]
	if !ok {
		return types.Wallet{}, false
	}
	return cloneWallet(w), true
}

func (s *Store) ListWallets() []types.Wallet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Wallet, 0, len(s.wallets))
	for _, w := range s.wallets {
		out = append(out, cloneWallet(w))
	}
	return out
}

func (s *Store) CreateWallet(w types.Wallet) error {
	if w.ID == "" {
		return fmt.Errorf("wallet id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.wallets[w.ID]; ok {
		return fmt.Errorf("wallet %s already exists", w.ID)
	}
	s.wallets[w.ID] = cloneWallet(w)
	return nil
}

// UpdateWallet overwrites name, description and signer roster of an
// existing wallet.
func (s *Store) UpdateWallet(w types.Wallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.wallets[w.ID]; !ok {
		return fmt.Errorf("wallet %s does not exist", w.ID)
	}
	s.wallets[w.ID] = cloneWallet(w)
	return nil
}

// DeleteWallet removes the wallet and every transaction referencing it.
// Signers are shared across wallets and are cleaned up separately via
// SignerWalletRefs.
func (s *Store) DeleteWallet(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.wallets[id]; !ok {
		return fmt.Errorf("wallet %s does not exist", id)
	}
	delete(s.wallets, id)
	for k, tx := range s.txs {
		if tx.WalletID == id {
			delete(s.txs, k)
		}
	}
	return nil
}

// --- signers ---

func (s *Store) HasSigner(xfp, derivationPath string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.signers[xfp+"/"+derivationPath]
	return ok
}

func (s *Store) GetSigner(xfp, derivationPath string) (types.Signer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sg, ok := s.signers[xfp+"/"+derivationPath]
	return sg, ok
}

// GetMasterSigner returns the master signer owning xfp, regardless of
// derivation path.
func (s *Store) GetMasterSigner(xfp string) (types.Signer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sg := range s.signers {
		if sg.MasterFingerprint == xfp && sg.Type == types.SignerTypeMaster {
			return sg, true
		}
	}
	return types.Signer{}, false
}

func (s *Store) CreateSigner(sg types.Signer) error {
	if sg.MasterFingerprint == "" || sg.DerivationPath == "" {
		return fmt.Errorf("signer fingerprint and derivation path are required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.signers[sg.Key()]; ok {
		return types.ErrDuplicateKey
	}
	s.signers[sg.Key()] = sg
	return nil
}

// UpdateMasterSigner updates the metadata of every entry owned by the
// master key xfp.
func (s *Store) UpdateMasterSigner(xfp, name string, tags []string, visible bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	updated := false
	for k, sg := range s.signers {
		if sg.MasterFingerprint == xfp && sg.Type == types.SignerTypeMaster {
			sg.Name = name
			sg.Tags = append([]string(nil), tags...)
			sg.Visible = visible
			s.signers[k] = sg
			updated = true
		}
	}
	if !updated {
		return fmt.Errorf("master signer %s does not exist", xfp)
	}
	return nil
}

func (s *Store) UpdateRemoteSigner(xfp, derivationPath, name string, tags []string, visible bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := xfp + "/" + derivationPath
	sg, ok := s.signers[key]
	if !ok {
		return fmt.Errorf("remote signer %s does not exist", key)
	}
	sg.Name = name
	sg.Tags = append([]string(nil), tags...)
	sg.Visible = visible
	s.signers[key] = sg
	return nil
}

func (s *Store) DeleteSigner(xfp, derivationPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := xfp + "/" + derivationPath
	if _, ok := s.signers[key]; !ok {
		return fmt.Errorf("signer %s does not exist", key)
	}
	delete(s.signers, key)
	return nil
}

func (s *Store) ListSigners() []types.Signer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Signer, 0, len(s.signers))
	for _, sg := range s.signers {
		out = append(out, sg)
	}
	return out
}

// SignerWalletRefs returns the ids of wallets that reference the signer.
// An empty result makes the signer eligible for unused-key cleanup.
func (s *Store) SignerWalletRefs(xfp, derivationPath string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var refs []string
	for id, w := range s.wallets {
		for _, sg := range w.Signers {
			if sg.MasterFingerprint == xfp && sg.DerivationPath == derivationPath {
				refs = append(refs, id)
				break
			}
		}
	}
	return refs
}

func cloneWallet(w types.Wallet) types.Wallet {
	out := w
	out.Signers = append([]types.Signer(nil), w.Signers...)
	return out
}
