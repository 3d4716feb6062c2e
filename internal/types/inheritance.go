package types

// InheritanceStatus is the lifecycle state of an inheritance plan.
type InheritanceStatus string

const (
	InheritanceStatusPendingCreation InheritanceStatus = "PENDING_CREATION"
	InheritanceStatusPendingApproval InheritanceStatus = "PENDING_APPROVAL"
	InheritanceStatusActive          InheritanceStatus = "ACTIVE"
	InheritanceStatusClaimed         InheritanceStatus = "CLAIMED"
)

// Inheritance is the plan attached to an assisted wallet.
type Inheritance struct {
	WalletID         string
	WalletLocalID    string
	Status           InheritanceStatus
	ActivationTimeMillis int64
	Note             string
	NotifyToday      bool
	BufferPeriodID   string
	OwnerID          string
	PendingRequests  []string
}

// InheritanceDTO is the remote wire form of a plan.
type InheritanceDTO struct {
	WalletID             string   `json:"wallet_id"`
	WalletLocalID        string   `json:"wallet_local_id"`
	Status               string   `json:"status"`
	ActivationTimeMillis int64    `json:"activation_time_millis"`
	Note                 string   `json:"note"`
	NotifyToday          bool     `json:"notification_today"`
	BufferPeriodID       string   `json:"buffer_period_id"`
	OwnerID              string   `json:"owner_id"`
	PendingRequests      []string `json:"pending_requests"`
}

// ToInheritance coerces the wire form.
func (d InheritanceDTO) ToInheritance() Inheritance {
	return Inheritance{
		WalletID:             d.WalletID,
		WalletLocalID:        d.WalletLocalID,
		Status:               InheritanceStatus(d.Status),
		ActivationTimeMillis: d.ActivationTimeMillis,
		Note:                 d.Note,
		NotifyToday:          d.NotifyToday,
		BufferPeriodID:       d.BufferPeriodID,
		OwnerID:              d.OwnerID,
		PendingRequests:      d.PendingRequests,
	}
}

// SecurityQuestion is one of the account's recovery questions.
type SecurityQuestion struct {
	ID       string `json:"id"`
	Question string `json:"question"`
	IsAnswered bool `json:"is_answer"`
}

// QuestionAnswer is a user answer submitted for verification.
type QuestionAnswer struct {
	QuestionID string `json:"question_id"`
	Answer     string `json:"answer"`
	Change     bool   `json:"change,omitempty"`
}
