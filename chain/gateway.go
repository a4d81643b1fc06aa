package chain

import (
	"context"

	"saffaucet/wallet"
)

// Coin is one denominated balance entry.
type Coin struct {
	Denom  string `json:"denom"`
	Amount string `json:"amount"`
}

// BroadcastResult is the node's acceptance record for a submitted transfer.
type BroadcastResult struct {
	TxHash    string `json:"tx_hash"`
	Height    uint64 `json:"height"`
	GasUsed   uint64 `json:"gas_used"`
	GasWanted uint64 `json:"gas_wanted"`
}

// Gateway is the capability surface the dispatcher drives. Implementations
// must return *errors.FaucetError values so callers can classify failures
// without matching message text.
type Gateway interface {
	// GetSequence returns the funding account's current sequence counter.
	GetSequence(ctx context.Context, address string) (uint64, error)

	// Broadcast submits a signed transfer and returns the node's acceptance.
	Broadcast(ctx context.Context, signed *wallet.SignedTransfer) (*BroadcastResult, error)

	// GetBalances returns all balances held by address.
	GetBalances(ctx context.Context, address string) ([]Coin, error)

	// GetChainID returns the node's chain identifier.
	GetChainID(ctx context.Context) (string, error)
}

// Dialer opens a fresh Gateway session. The dispatcher dials once per
// attempt; sessions must not cache sequence values.
type Dialer func(endpoint string) Gateway
