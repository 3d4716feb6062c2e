package walletstore

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/psbt"

	"github.com/opencustody/walletsync/internal/types"
)

// GetTransaction returns the stored transaction for (walletID, txID).
func (s *Store) GetTransaction(walletID, txID string) (types.Transaction, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tx, ok := s.txs[txKey(walletID, txID)]
	return tx, ok
}

func (s *Store) ListTransactions(walletID string) []types.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []types.Transaction
	for _, tx := range s.txs {
		if tx.WalletID == walletID {
			out = append(out, tx)
		}
	}
	return out
}

// ImportPsbt decodes a base64 PSBT, unions its partial signatures with any
// transaction already stored under the same txid and persists the merged
// packet. The merged transaction is returned.
func (s *Store) ImportPsbt(walletID, psbtB64 string) (types.Transaction, error) {
	packet, err := decodePsbt(psbtB64)
	if err != nil {
		return types.Transaction{}, fmt.Errorf("fail to parse psbt: %w", err)
	}
	txID := packet.UnsignedTx.TxHash().String()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.wallets[walletID]; !ok {
		return types.Transaction{}, fmt.Errorf("wallet %s does not exist", walletID)
	}

	key := txKey(walletID, txID)
	existing, ok := s.txs[key]
	if ok && existing.Psbt != "" {
		prev, err := decodePsbt(existing.Psbt)
		if err == nil {
			mergePartialSigs(packet, prev)
		}
	}
	merged, err := packet.B64Encode()
	if err != nil {
		return types.Transaction{}, fmt.Errorf("fail to serialize merged psbt: %w", err)
	}

	tx := existing
	tx.WalletID = walletID
	tx.TxID = txID
	tx.Psbt = merged
	if tx.Status == "" {
		tx.Status = types.TxStatusPendingSignatures
	}
	s.txs[key] = tx
	return tx, nil
}

// TransactionUpdate overwrites server-owned metadata on a stored
// transaction; zero fields are left untouched except RejectMsg, which is
// always applied.
type TransactionUpdate struct {
	NewTxID   string
	Hex       string
	RejectMsg string
	Status    types.TransactionStatus
}

func (s *Store) UpdateTransaction(walletID, txID string, upd TransactionUpdate) (types.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := txKey(walletID, txID)
	tx, ok := s.txs[key]
	if !ok {
		tx = types.Transaction{WalletID: walletID, TxID: txID, Status: types.TxStatusPendingSignatures}
	}
	if upd.Hex != "" {
		tx.Hex = upd.Hex
	}
	tx.RejectMsg = upd.RejectMsg
	if upd.Status != "" {
		tx.Status = upd.Status
	}
	if upd.NewTxID != "" && upd.NewTxID != txID {
		tx.ReplacedByTxID = upd.NewTxID
	}
	s.txs[key] = tx
	return tx, nil
}

func (s *Store) UpdateTransactionMemo(walletID, txID, memo string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := txKey(walletID, txID)
	tx, ok := s.txs[key]
	if !ok {
		return fmt.Errorf("transaction %s does not exist", key)
	}
	tx.Memo = memo
	s.txs[key] = tx
	return nil
}

func (s *Store) UpdateTransactionSchedule(walletID, txID string, broadcastTimeMillis int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := txKey(walletID, txID)
	tx, ok := s.txs[key]
	if !ok {
		return fmt.Errorf("transaction %s does not exist", key)
	}
	tx.ScheduleTimeMillis = broadcastTimeMillis
	s.txs[key] = tx
	return nil
}

// ReplaceTransactionID rekeys a transaction after replace-by-fee.
func (s *Store) ReplaceTransactionID(walletID, oldTxID, newTxID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	oldKey := txKey(walletID, oldTxID)
	tx, ok := s.txs[oldKey]
	if !ok {
		return fmt.Errorf("transaction %s does not exist", oldKey)
	}
	delete(s.txs, oldKey)
	tx.TxID = newTxID
	s.txs[txKey(walletID, newTxID)] = tx
	return nil
}

func (s *Store) DeleteTransaction(walletID, txID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := txKey(walletID, txID)
	if _, ok := s.txs[key]; !ok {
		return fmt.Errorf("transaction %s does not exist", key)
	}
	delete(s.txs, key)
	return nil
}

func decodePsbt(b64 string) (*psbt.Packet, error) {
	return psbt.NewFromRawBytes(strings.NewReader(b64), true)
}

// mergePartialSigs copies into dst every partial signature present in src
// but missing from dst, input by input.
func mergePartialSigs(dst, src *psbt.Packet) {
	if len(dst.Inputs) != len(src.Inputs) {
		return
	}
	for i := range src.Inputs {
		seen := make(map[string]bool, len(dst.Inputs[i].PartialSigs))
		for _, sig := range dst.Inputs[i].PartialSigs {
			seen[hex.EncodeToString(sig.PubKey)] = true
		}
		for _, sig := range src.Inputs[i].PartialSigs {
			if !seen[hex.EncodeToString(sig.PubKey)] {
				dst.Inputs[i].PartialSigs = append(dst.Inputs[i].PartialSigs, sig)
			}
		}
	}
}
