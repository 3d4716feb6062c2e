package types

// GroupStatus is the lifecycle state of a byzantine (group) wallet.
type GroupStatus string

const (
	GroupStatusPendingWallet GroupStatus = "PENDING_WALLET"
	GroupStatusActive        GroupStatus = "ACTIVE"
	GroupStatusDeleted       GroupStatus = "DELETED"
)

// GroupMember is one member of a group wallet's roster.
type GroupMember struct {
	MembershipID string `json:"membership_id"`
	UserID       string `json:"user_id"`
	EmailOrUsername string `json:"email_or_username"`
	Role         string `json:"role"`
	Status       string `json:"status"`
}

// Group is the LocalCache row for a remote group.
type Group struct {
	ID        string
	Status    GroupStatus
	Members   []GroupMember
	Policy    WalletPolicy
	CreatedTimeMillis int64
	IsLocked  bool
}

// GroupDTO is the remote wire form of a group.
type GroupDTO struct {
	ID                string          `json:"id"`
	Status            string          `json:"status"`
	Members           []GroupMember   `json:"members"`
	WalletConfig      *GroupConfigDTO `json:"wallet_config"`
	CreatedTimeMillis int64           `json:"created_time_millis"`
	IsLocked          bool            `json:"is_locked"`
}

// GroupConfigDTO is the wire form of a group's wallet policy.
type GroupConfigDTO struct {
	M                 int  `json:"m"`
	N                 int  `json:"n"`
	RequiredServerKey bool `json:"required_server_key"`
	AllowInheritance  bool `json:"allow_inheritance"`
}

// ToGroup coerces the DTO into a cache row.
func (d GroupDTO) ToGroup() Group {
	status := GroupStatus(d.Status)
	switch status {
	case GroupStatusPendingWallet, GroupStatusActive, GroupStatusDeleted:
	default:
		status = GroupStatusPendingWallet
	}
	g := Group{
		ID:                d.ID,
		Status:            status,
		Members:           d.Members,
		CreatedTimeMillis: d.CreatedTimeMillis,
		IsLocked:          d.IsLocked,
	}
	if d.WalletConfig != nil {
		g.Policy = WalletPolicy{
			M:                 d.WalletConfig.M,
			N:                 d.WalletConfig.N,
			RequiresServerKey: d.WalletConfig.RequiredServerKey,
			AllowsInheritance: d.WalletConfig.AllowInheritance,
		}
	}
	return g
}
