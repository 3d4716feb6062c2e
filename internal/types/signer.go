package types

// SignerType discriminates how a signer's key material is held.
type SignerType string

const (
	// SignerTypeMaster is a local signer whose master key lives in the
	// embedded wallet store.
	SignerTypeMaster SignerType = "MASTER"
	// SignerTypeRemote is a public-only signer (hardware or airgapped
	// device); the store holds xpub and metadata only.
	SignerTypeRemote SignerType = "REMOTE"
	// SignerTypeServer is the co-signing key held by the coordination
	// service.
	SignerTypeServer SignerType = "SERVER"
)

// Signer is a wallet co-signer descriptor. Uniqueness key within a wallet:
// (MasterFingerprint, DerivationPath).
type Signer struct {
	Name              string
	MasterFingerprint string
	DerivationPath    string
	Xpub              string
	PublicKey         string
	Type              SignerType
	Tags              []string
	Visible           bool
}

// Key returns the signer identity key inside a wallet.
func (s Signer) Key() string {
	return s.MasterFingerprint + "/" + s.DerivationPath
}

// HasTag reports whether the signer carries the given tag.
func (s Signer) HasTag(tag string) bool {
	for _, t := range s.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// SignerDTO is the wire form of a signer as the coordination service
// reports it. All fields are optional on the wire and coerced to defaults
// at the boundary.
type SignerDTO struct {
	Name           string   `json:"name"`
	Xfp            string   `json:"xfp" validate:"required,xfp"`
	DerivationPath string   `json:"derivation_path" validate:"omitempty,derivation_path"`
	Xpub           string   `json:"xpub"`
	Pubkey         string   `json:"pubkey"`
	Type           string   `json:"type"`
	Tags           []string `json:"tags"`
	IsVisible      bool     `json:"is_visible"`
}

// ToSigner coerces the DTO into a domain signer.
func (d SignerDTO) ToSigner() Signer {
	st := SignerType(d.Type)
	switch st {
	case SignerTypeMaster, SignerTypeRemote, SignerTypeServer:
	default:
		st = SignerTypeRemote
	}
	return Signer{
		Name:              d.Name,
		MasterFingerprint: d.Xfp,
		DerivationPath:    d.DerivationPath,
		Xpub:              d.Xpub,
		PublicKey:         d.Pubkey,
		Type:              st,
		Tags:              d.Tags,
		Visible:           d.IsVisible,
	}
}

// SignerTagInheritance marks a key enrolled in an inheritance plan.
const SignerTagInheritance = "INHERITANCE"
