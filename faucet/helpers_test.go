package faucet

import (
	"context"
	"sync"

	"saffaucet/chain"
	"saffaucet/config"
	"saffaucet/wallet"
)

// fastTuning keeps the state machine's real timings out of test runtime.
func fastTuning() *config.DispatchTuning {
	return &config.DispatchTuning{
		PollIntervalMs:     1,
		StabilityThreshold: 5,
		SettleDelayMs:      1,
		StabilizeTimeoutMs: 300,
		ConfirmTimeoutMs:   30,
		MaxAttempts:        5,
		SequenceBackoffMs:  1,
		TransportBackoffMs: 1,
	}
}

// scriptedGateway serves sequence reads from a script (the last entry
// repeats) and broadcast results from a second script.
type scriptedGateway struct {
	mu sync.Mutex

	seqScript []uint64
	seqReads  int

	broadcastErrs []error
	broadcasts    int

	chainID  string
	balances map[string][]chain.Coin
}

func newScriptedGateway(seqScript []uint64, broadcastErrs []error) *scriptedGateway {
	return &scriptedGateway{
		seqScript:     seqScript,
		broadcastErrs: broadcastErrs,
		chainID:       "safro-testnet-1",
		balances:      map[string][]chain.Coin{},
	}
}

func (g *scriptedGateway) GetSequence(_ context.Context, _ string) (uint64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	idx := g.seqReads
	if idx >= len(g.seqScript) {
		idx = len(g.seqScript) - 1
	}
	g.seqReads++
	return g.seqScript[idx], nil
}

func (g *scriptedGateway) Broadcast(_ context.Context, _ *wallet.SignedTransfer) (*chain.BroadcastResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	idx := g.broadcasts
	g.broadcasts++
	if idx < len(g.broadcastErrs) && g.broadcastErrs[idx] != nil {
		return nil, g.broadcastErrs[idx]
	}
	return &chain.BroadcastResult{
		TxHash:    "TXHASH",
		Height:    1024,
		GasUsed:   61234,
		GasWanted: 80000,
	}, nil
}

func (g *scriptedGateway) GetBalances(_ context.Context, address string) ([]chain.Coin, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.balances[address], nil
}

func (g *scriptedGateway) GetChainID(_ context.Context) (string, error) {
	return g.chainID, nil
}

func (g *scriptedGateway) broadcastCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.broadcasts
}

// dialCounter wraps a gateway as a chain.Dialer and counts sessions.
type dialCounter struct {
	mu      sync.Mutex
	gateway chain.Gateway
	dials   int
}

func (d *dialCounter) dial(_ string) chain.Gateway {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	return d.gateway
}

func (d *dialCounter) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}
