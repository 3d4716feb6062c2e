package types

// MembershipStep enumerates the wallet-construction steps an assisted
// wallet walks through; one signer fulfils each key step.
type MembershipStep string

const (
	StepAddKey1       MembershipStep = "ADD_KEY_1"
	StepAddKey2       MembershipStep = "ADD_KEY_2"
	StepAddKey3       MembershipStep = "ADD_KEY_3"
	StepAddServerKey  MembershipStep = "ADD_SERVER_KEY"
	StepSetupWallet   MembershipStep = "SETUP_WALLET"
	StepInheritance   MembershipStep = "SETUP_INHERITANCE"
)

// VerifyType records how a fulfilled step was verified.
type VerifyType string

const (
	VerifyTypeNone        VerifyType = "NONE"
	VerifyTypeAppVerified VerifyType = "APP_VERIFIED"
	VerifyTypeSelfVerified VerifyType = "SELF_VERIFIED"
)

// MembershipStepInfo is the per-step progress record. Keyed by
// (Step, GroupID) within a scope.
type MembershipStepInfo struct {
	Step           MembershipStep
	GroupID        string
	MasterSignerID string
	KeyIDInServer  string
	VerifyType     VerifyType
	PlanSlug       string
	ExtraData      string
}

// RequestAddKey is a pending "ask an external device to add a key" ticket.
// Identity key is (Step, TagSet, GroupID); the row is deleted once the
// request is fulfilled, cancelled or superseded.
type RequestAddKey struct {
	RequestID string
	Step      MembershipStep
	TagSet    string
	GroupID   string
}

// RequestAddKeyDTO is the remote wire form of an add-key request.
type RequestAddKeyDTO struct {
	ID     string     `json:"id"`
	Status string     `json:"status"`
	Key    *SignerDTO `json:"key"`
	Tags   []string   `json:"tags"`
}

// request-add-key remote statuses
const (
	RequestAddKeyStatusPending   = "PENDING"
	RequestAddKeyStatusCompleted = "COMPLETED"
)

// DraftWallet is the group wallet configuration under construction, echoed
// by the service before the wallet is finalized.
type DraftWallet struct {
	GroupID          string       `json:"group_id"`
	Policy           WalletPolicy `json:"-"`
	Signers          []SignerDTO  `json:"signers"`
	IsMasterSecurityQuestionSet bool `json:"is_master_security_question_set"`
}
