package types

// WalletStatus is the lifecycle state the coordination service tracks for
// an assisted wallet.
type WalletStatus string

const (
	WalletStatusActive   WalletStatus = "ACTIVE"
	WalletStatusReplaced WalletStatus = "REPLACED"
	WalletStatusDeleted  WalletStatus = "DELETED"
)

// Wallet is the embedded wallet store's view of a multisig wallet.
type Wallet struct {
	ID          string
	Name        string
	Description string
	M           int
	N           int
	Signers     []Signer
	CreateDate  int64 // unix seconds
}

// FindSigner returns the signer with the given master fingerprint, if any.
func (w *Wallet) FindSigner(xfp string) (Signer, bool) {
	for _, s := range w.Signers {
		if s.MasterFingerprint == xfp {
			return s, true
		}
	}
	return Signer{}, false
}

// WalletPolicy is the remote-owned policy block of an assisted wallet.
type WalletPolicy struct {
	M                 int
	N                 int
	RequiresServerKey bool
	AllowsInheritance bool
}

// KeyPolicy models the server key's spending policy for a wallet.
type KeyPolicy struct {
	AutoBroadcastTransaction bool
	SigningDelaySeconds      int64
	SpendingLimit            *SpendingPolicy
}

// SpendingPolicy caps how much the server key will co-sign per interval.
type SpendingPolicy struct {
	Limit        float64
	CurrencyUnit string
	TimeUnit     string
}

// AssistedWallet is the LocalCache row mirroring a remote wallet for
// listing. Last four fields are locally owned and must survive merges.
type AssistedWallet struct {
	LocalID            string
	GroupID            string
	PlanSlug           string
	Name               string
	Status             WalletStatus
	PendingReplaceXfps []string
	Ext                string

	// locally owned, unknown to the server
	IsSetupInheritance    bool
	RegisterColdcardCount int
	RegisterAirgapCount   int
	ReplaceSignerTypes    []string
}

// WalletDTO is the remote wire form of an assisted wallet.
type WalletDTO struct {
	ID                 string        `json:"id"`
	LocalID            string        `json:"local_id"`
	Name               string        `json:"name"`
	Description        string        `json:"description"`
	Bsms               string        `json:"bsms"`
	Status             string        `json:"status"`
	Slug               string        `json:"slug"`
	GroupID            string        `json:"group_id"`
	RemoveUnusedKeys   bool          `json:"remove_unused_keys"`
	CreatedTimeMillis  int64         `json:"created_time_millis"`
	PendingReplaceXfps []string      `json:"pending_replace_xfps"`
	ServerKey          *ServerKeyDTO `json:"server_key"`
	Signers            []SignerDTO   `json:"signers"`
}

// ToBrief coerces the DTO into a cache row, leaving locally owned fields at
// their zero values; the merge pass fills them from the existing row.
func (d WalletDTO) ToBrief() AssistedWallet {
	status := WalletStatus(d.Status)
	switch status {
	case WalletStatusActive, WalletStatusReplaced, WalletStatusDeleted:
	default:
		status = WalletStatusActive
	}
	return AssistedWallet{
		LocalID:            d.LocalID,
		GroupID:            d.GroupID,
		PlanSlug:           d.Slug,
		Name:               d.Name,
		Status:             status,
		PendingReplaceXfps: d.PendingReplaceXfps,
	}
}

// ServerKeyDTO describes the co-signing key the service holds for a
// wallet.
type ServerKeyDTO struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Xfp            string          `json:"xfp"`
	DerivationPath string          `json:"derivation_path"`
	Xpub           string          `json:"xpub"`
	Policies       *KeyPoliciesDTO `json:"policies"`
}

// KeyPoliciesDTO is the wire form of the server key policy.
type KeyPoliciesDTO struct {
	AutoBroadcastTransaction bool              `json:"auto_broadcast_transaction"`
	SigningDelaySeconds      int64             `json:"signing_delay_seconds"`
	SpendingLimit            *SpendingLimitDTO `json:"spending_limit"`
}

// SpendingLimitDTO is the wire form of a spending cap.
type SpendingLimitDTO struct {
	Limit    float64 `json:"limit"`
	Currency string  `json:"currency"`
	Interval string  `json:"interval"`
}

// ToKeyPolicy coerces the DTO, defaulting missing policy blocks.
func (d *KeyPoliciesDTO) ToKeyPolicy() KeyPolicy {
	if d == nil {
		return KeyPolicy{}
	}
	kp := KeyPolicy{
		AutoBroadcastTransaction: d.AutoBroadcastTransaction,
		SigningDelaySeconds:      d.SigningDelaySeconds,
	}
	if d.SpendingLimit != nil {
		kp.SpendingLimit = &SpendingPolicy{
			Limit:        d.SpendingLimit.Limit,
			CurrencyUnit: d.SpendingLimit.Currency,
			TimeUnit:     d.SpendingLimit.Interval,
		}
	}
	return kp
}

// WalletSyncResult is what a full server-wallet sync pass hands back to the
// caller.
type WalletSyncResult struct {
	KeyPolicies  map[string]KeyPolicy
	AssistedXfps []string
	NeedReload   bool
}
