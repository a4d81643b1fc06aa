package faucet

import (
	"context"
	"strings"
	"testing"

	"saffaucet/config"
	ferrors "saffaucet/errors"
)

func testFaucetConfig() *config.FaucetConfig {
	return &config.FaucetConfig{
		FundingKey:    strings.Repeat("ab", 32),
		RPCEndpoint:   "http://localhost:1317",
		Denom:         "usaf",
		Amount:        "250000000",
		AddressPrefix: "addr_safro",
		Memo:          "testnet faucet",
		ExplorerURL:   "https://explorer.safro.test/tx/",
		DailyLimit:    3,
	}
}

func TestDispatchExhaustsAttemptsOnPersistentSequenceConflict(t *testing.T) {
	conflict := ferrors.NewSequenceConflictError("account sequence mismatch: expected 4, got 3")
	gateway := newScriptedGateway([]uint64{3}, []error{conflict, conflict, conflict, conflict, conflict})
	dialer := &dialCounter{gateway: gateway}
	dispatcher := NewDispatcher(dialer.dial, fastTuning())

	_, err := dispatcher.Dispatch(context.Background(), testFaucetConfig(), "addr_safro1recipient")
	if err == nil {
		t.Fatal("Expected terminal failure")
	}
	if ferrors.CodeOf(err) != ferrors.ErrCodeDispatchFailed {
		t.Errorf("Expected dispatch_failed, got %s", ferrors.CodeOf(err))
	}
	if !strings.Contains(err.Error(), "sequence mismatch") {
		t.Errorf("Terminal failure should reference the last error, got: %v", err)
	}
	if dialer.count() != 5 {
		t.Errorf("Expected exactly 5 attempts, got %d", dialer.count())
	}
	if gateway.broadcastCount() != 5 {
		t.Errorf("Expected exactly 5 broadcasts, got %d", gateway.broadcastCount())
	}
}

func TestDispatchSucceedsOnThirdAttempt(t *testing.T) {
	conflict := ferrors.NewSequenceConflictError("account sequence mismatch: expected 4, got 3")
	gateway := newScriptedGateway([]uint64{3}, []error{conflict, conflict, nil})
	dialer := &dialCounter{gateway: gateway}
	dispatcher := NewDispatcher(dialer.dial, fastTuning())

	success, err := dispatcher.Dispatch(context.Background(), testFaucetConfig(), "addr_safro1recipient")
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if success.TxHash != "TXHASH" {
		t.Errorf("Expected third attempt's tx hash, got %s", success.TxHash)
	}
	if gateway.broadcastCount() != 3 {
		t.Errorf("Expected 3 broadcasts, got %d", gateway.broadcastCount())
	}
	if success.ExplorerTxURL != "https://explorer.safro.test/tx/TXHASH" {
		t.Errorf("Unexpected explorer URL: %s", success.ExplorerTxURL)
	}
	if success.ChainID != "safro-testnet-1" {
		t.Errorf("Expected enriched chain id, got %q", success.ChainID)
	}
	if success.ReceiverAddress != "addr_safro1recipient" {
		t.Errorf("Unexpected receiver: %s", success.ReceiverAddress)
	}
}

func TestDispatchRetriesWhenFinalCheckSeesMovedSequence(t *testing.T) {
	// Attempt 1 stabilizes on 5, but the final pre-broadcast read sees 9:
	// no broadcast may happen on that attempt.
	script := []uint64{5, 5, 5, 5, 5, 5, 9, 9, 9, 9, 9, 9, 9, 9}
	gateway := newScriptedGateway(script, nil)
	dialer := &dialCounter{gateway: gateway}
	dispatcher := NewDispatcher(dialer.dial, fastTuning())

	success, err := dispatcher.Dispatch(context.Background(), testFaucetConfig(), "addr_safro1recipient")
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if dialer.count() != 2 {
		t.Errorf("Expected 2 attempts, got %d", dialer.count())
	}
	if gateway.broadcastCount() != 1 {
		t.Errorf("Expected a single broadcast on the second attempt, got %d", gateway.broadcastCount())
	}
	if success.TxHash == "" {
		t.Error("Expected a transaction hash")
	}
}

func TestDispatchRejectsMalformedAmountWithoutDialing(t *testing.T) {
	gateway := newScriptedGateway([]uint64{3}, nil)
	dialer := &dialCounter{gateway: gateway}
	dispatcher := NewDispatcher(dialer.dial, fastTuning())

	cfg := testFaucetConfig()
	cfg.Amount = "2.5tokens"

	_, err := dispatcher.Dispatch(context.Background(), cfg, "addr_safro1recipient")
	if err == nil {
		t.Fatal("Expected config error")
	}
	if ferrors.CodeOf(err) != ferrors.ErrCodeConfigInvalid {
		t.Errorf("Expected config_invalid, got %s", ferrors.CodeOf(err))
	}
	if dialer.count() != 0 {
		t.Errorf("No gateway session should be opened, got %d", dialer.count())
	}
}
