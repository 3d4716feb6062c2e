package types

// TransactionStatus mirrors the server-side status of a wallet
// transaction.
type TransactionStatus string

const (
	TxStatusPendingSignatures   TransactionStatus = "PENDING_SIGNATURES"
	TxStatusReadyToBroadcast    TransactionStatus = "READY_TO_BROADCAST"
	TxStatusPendingConfirmation TransactionStatus = "PENDING_CONFIRMATION"
	TxStatusConfirmed           TransactionStatus = "CONFIRMED"
	TxStatusNetworkRejected     TransactionStatus = "NETWORK_REJECTED"
	TxStatusCanceled            TransactionStatus = "CANCELED"
)

// Terminal reports whether the remote status is authoritative: once a
// transaction is on (or rejected by) the network, the remote PSBT wins
// regardless of local content.
func (s TransactionStatus) Terminal() bool {
	switch s {
	case TxStatusPendingConfirmation, TxStatusConfirmed, TxStatusNetworkRejected:
		return true
	}
	return false
}

// Transaction is the embedded wallet store's record of a PSBT under
// construction or awaiting confirmation.
type Transaction struct {
	WalletID       string
	TxID           string
	Psbt           string
	Hex            string
	Status         TransactionStatus
	Memo           string
	RejectMsg      string
	ReplacedByTxID string
	ScheduleTimeMillis int64
}

// TransactionDTO is the remote wire form of a server transaction.
type TransactionDTO struct {
	ID                  string `json:"id"`
	TransactionID       string `json:"transaction_id"`
	WalletLocalID       string `json:"wallet_local_id"`
	Status              string `json:"status"`
	Psbt                string `json:"psbt"`
	Hex                 string `json:"hex"`
	Note                string `json:"note"`
	RejectMsg           string `json:"reject_msg"`
	ReplacedTxID        string `json:"replaced_transaction_id"`
	Type                string `json:"type"`
	BroadcastTimeMillis int64  `json:"broadcast_time_millis"`
	SignedInMillis      int64  `json:"sign_time_millis"`
	SpendingLimitMessage string `json:"spending_limit_message"`
}

// StatusOrDefault coerces the wire status, defaulting to pending
// signatures.
func (d *TransactionDTO) StatusOrDefault() TransactionStatus {
	s := TransactionStatus(d.Status)
	switch s {
	case TxStatusPendingSignatures, TxStatusReadyToBroadcast,
		TxStatusPendingConfirmation, TxStatusConfirmed,
		TxStatusNetworkRejected, TxStatusCanceled:
		return s
	}
	return TxStatusPendingSignatures
}

// ExtendedTransaction pairs the local (wallet store) transaction with the
// remote server record after a reconcile pass.
type ExtendedTransaction struct {
	Transaction Transaction
	Server      *TransactionDTO
}
