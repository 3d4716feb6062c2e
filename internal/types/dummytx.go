package types

import "encoding/json"

// TargetAction names a threshold-gated mutation. The verification tier a
// user passed (password, federated login, signed challenge) is always
// scoped to one of these.
type TargetAction string

const (
	ActionUpdateKeyPolicy       TargetAction = "UPDATE_SERVER_KEY"
	ActionUpdateGroupKeyPolicy  TargetAction = "UPDATE_GROUP_SERVER_KEY"
	ActionEmergencyLockdown     TargetAction = "EMERGENCY_LOCKDOWN"
	ActionUpdateInheritancePlan TargetAction = "UPDATE_INHERITANCE_PLAN"
	ActionUpdateSecurityQuestions TargetAction = "UPDATE_SECURITY_QUESTIONS"
	ActionChangeEmail           TargetAction = "CHANGE_EMAIL"
	ActionEditGroupMembers      TargetAction = "EDIT_GROUP_MEMBERS"
	ActionDeleteWallet          TargetAction = "DELETE_WALLET"
	ActionRecoverKey            TargetAction = "RECOVER_KEY"
	ActionReplaceWallet         TargetAction = "REPLACE_WALLET"
)

// DummyTransactionStatus reuses the transaction status vocabulary: a dummy
// transaction is pending until enough co-signers have signed.
type DummyTransactionStatus = TransactionStatus

// DummyTransaction is a proposed mutation awaiting M-of-N authorization.
type DummyTransaction struct {
	ID                 string
	WalletLocalID      string
	GroupID            string
	Action             TargetAction
	Status             DummyTransactionStatus
	RequiredSignatures int
	PendingSignatures  int
	RequestBody        string
	Payload            string
	RequesterUserID    string
	IsDraft            bool
}

// DummyTransactionDTO is the remote wire form.
type DummyTransactionDTO struct {
	ID                 string          `json:"id"`
	WalletLocalID      string          `json:"wallet_local_id"`
	Type               string          `json:"type"`
	Status             string          `json:"status"`
	RequiredSignatures int             `json:"required_signatures"`
	PendingSignatures  int             `json:"pending_signatures"`
	RequestBody        string          `json:"request_body"`
	Payload            json.RawMessage `json:"payload"`
	RequesterUserID    string          `json:"requester_user_id"`
	IsDraft            bool            `json:"is_draft"`
}

// ToDummyTransaction coerces the wire form.
func (d DummyTransactionDTO) ToDummyTransaction(groupID string) DummyTransaction {
	status := TransactionStatus(d.Status)
	if status == "" {
		status = TxStatusPendingSignatures
	}
	return DummyTransaction{
		ID:                 d.ID,
		WalletLocalID:      d.WalletLocalID,
		GroupID:            groupID,
		Action:             TargetAction(d.Type),
		Status:             status,
		RequiredSignatures: d.RequiredSignatures,
		PendingSignatures:  d.PendingSignatures,
		RequestBody:        d.RequestBody,
		Payload:            string(d.Payload),
		RequesterUserID:    d.RequesterUserID,
		IsDraft:            d.IsDraft,
	}
}

// DummyTransactionUpdate is the result of submitting collected signatures.
type DummyTransactionUpdate struct {
	Status            DummyTransactionStatus
	PendingSignatures int
}

// UserDataEnvelope is the signed "user data" body of a proposal: the
// intended action body plus a single-use nonce fetched immediately before
// construction.
type UserDataEnvelope struct {
	Nonce string          `json:"nonce"`
	Body  json.RawMessage `json:"body"`
}

// LockdownPeriod is one of the lockdown durations the service offers.
type LockdownPeriod struct {
	ID             string `json:"id"`
	DisplayName    string `json:"display_name"`
	DurationMillis int64  `json:"duration_millis"`
}

// CalculateRequiredSignatures is the server's answer to "what does this
// action need before it commits".
type CalculateRequiredSignatures struct {
	Type           string `json:"type"`
	RequiredSignatures    int    `json:"required_signatures"`
	RequiredAnswers       int    `json:"required_answers"`
	RequiredConfirmationCodes int `json:"required_confirmation_codes"`
}
