package types

// Chain selects which Bitcoin network a record belongs to. Local cache rows
// and wallet-store entries are always scoped by (ChatID, Chain) so testnet
// and mainnet data for multiple accounts never bleed into each other.
type Chain string

const (
	ChainMain    Chain = "MAIN"
	ChainTestnet Chain = "TESTNET"
	ChainSignet  Chain = "SIGNET"
)

// Scope is the read-only per-call identity every engine operation receives.
// It is sourced from the process settings at startup and rebuilt on network
// switch; core algorithms never reach for ambient globals.
type Scope struct {
	ChatID string
	Chain  Chain
}
