package faucet

import (
	"context"
	"fmt"
	"time"

	"github.com/holiman/uint256"

	"saffaucet/chain"
	"saffaucet/config"
	ferrors "saffaucet/errors"
	"saffaucet/logx"
	"saffaucet/monitoring"
	"saffaucet/wallet"
)

// Dispatcher drives one transfer from the funding account to a recipient:
// stabilize, final check, sign and broadcast, advisory confirmation, with a
// bounded retry loop around the whole attempt. Every attempt dials a fresh
// gateway session; no sequence value survives between attempts.
type Dispatcher struct {
	dial   chain.Dialer
	tuning *config.DispatchTuning
}

func NewDispatcher(dial chain.Dialer, tuning *config.DispatchTuning) *Dispatcher {
	if tuning == nil {
		tuning = config.DefaultDispatchTuning()
	}
	return &Dispatcher{dial: dial, tuning: tuning}
}

// Dispatch moves the configured amount to recipient. It returns a Success
// with full transaction metadata, or the last attempt's error once all
// attempts are exhausted.
func (d *Dispatcher) Dispatch(ctx context.Context, cfg *config.FaucetConfig, recipient string) (*Success, error) {
	amount, err := uint256.FromDecimal(cfg.Amount)
	if err != nil {
		return nil, ferrors.NewConfigError(fmt.Sprintf("payout amount %q is not a decimal integer: %v", cfg.Amount, err))
	}

	seed, err := cfg.FundingSeed()
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= d.tuning.MaxAttempts; attempt++ {
		monitoring.RecordDispatchAttempt()

		// Fresh session and signing context per attempt; cached client
		// state is a known source of stale-sequence broadcasts.
		gateway := d.dial(cfg.RPCEndpoint)
		funding, err := wallet.NewWallet(seed, cfg.AddressPrefix)
		if err != nil {
			return nil, ferrors.NewConfigError(fmt.Sprintf("funding key rejected: %v", err))
		}

		success, err := d.attempt(ctx, gateway, funding, cfg, amount, recipient)
		if err == nil {
			if attempt > 1 {
				logx.Info("dispatcher", "broadcast succeeded on attempt ", attempt, " tx ", success.TxHash)
			}
			return success, nil
		}
		lastErr = err

		backoff := d.tuning.TransportBackoff()
		if ferrors.IsSequenceConflict(err) {
			monitoring.RecordSequenceConflict()
			backoff = d.tuning.SequenceBackoff()
		}
		logx.Warn("dispatcher", "attempt ", attempt, "/", d.tuning.MaxAttempts, " failed: ", err)

		if attempt < d.tuning.MaxAttempts {
			if err := sleepCtx(ctx, backoff); err != nil {
				break
			}
		}
	}

	return nil, ferrors.NewDispatchFailedError(fmt.Sprintf("all %d attempts exhausted, last error: %v", d.tuning.MaxAttempts, lastErr))
}

func (d *Dispatcher) attempt(ctx context.Context, gateway chain.Gateway, funding *wallet.Wallet, cfg *config.FaucetConfig, amount *uint256.Int, recipient string) (*Success, error) {
	stableSeq, err := NewStabilizer(gateway, d.tuning).Stabilize(ctx, funding.Address())
	if err != nil {
		return nil, err
	}

	// Final check: one more read after a settle delay. A moved sequence
	// means another transfer confirmed under us; retry without broadcasting.
	if err := sleepCtx(ctx, d.tuning.SettleDelay()); err != nil {
		return nil, ferrors.NewTransportError(err.Error())
	}
	finalSeq, err := gateway.GetSequence(ctx, funding.Address())
	if err != nil {
		return nil, err
	}
	if finalSeq != stableSeq {
		return nil, ferrors.NewSequenceConflictError(fmt.Sprintf("sequence moved from %d to %d before broadcast", stableSeq, finalSeq))
	}

	tx := &wallet.TransferTx{
		Sender:    funding.Address(),
		Recipient: recipient,
		Amount:    amount,
		Denom:     cfg.Denom,
		Memo:      cfg.Memo,
		Sequence:  stableSeq,
		Timestamp: uint64(time.Now().UnixMilli()),
	}
	signed, err := funding.SignTransfer(tx)
	if err != nil {
		return nil, ferrors.NewTransportError(fmt.Sprintf("signing failed: %v", err))
	}

	result, err := gateway.Broadcast(ctx, signed)
	if err != nil {
		return nil, err
	}

	// Past this point the transfer is accepted; nothing below may turn the
	// outcome back into a failure, so confirmation and enrichment run on a
	// detached context immune to caller cancellation.
	postCtx, cancel := context.WithTimeout(context.Background(), d.tuning.ConfirmTimeout())
	defer cancel()

	d.confirmSequenceAdvance(postCtx, gateway, funding.Address(), stableSeq)

	success := &Success{
		TxHash:          result.TxHash,
		Height:          result.Height,
		GasUsed:         result.GasUsed,
		GasWanted:       result.GasWanted,
		Amount:          amount.String(),
		Denom:           cfg.Denom,
		Memo:            cfg.Memo,
		SenderAddress:   funding.Address(),
		ReceiverAddress: recipient,
		ExplorerTxURL:   cfg.ExplorerURL + result.TxHash,
	}
	d.enrich(postCtx, gateway, cfg.Denom, success)
	return success, nil
}

// confirmSequenceAdvance waits for the chain to show the consumed sequence.
// Purely advisory: it reduces contention for whatever dispatch runs next,
// and a timeout never converts the success into a failure.
func (d *Dispatcher) confirmSequenceAdvance(ctx context.Context, gateway chain.Gateway, account string, stableSeq uint64) {
	for {
		seq, err := gateway.GetSequence(ctx, account)
		if err == nil && seq >= stableSeq+1 {
			return
		}
		if err := sleepCtx(ctx, d.tuning.PollInterval()); err != nil {
			logx.Warn("dispatcher", "sequence advance not observed for ", account, " past ", stableSeq)
			return
		}
	}
}

// enrich adds chain id and both parties' balances. Failures degrade to
// empty fields; the dispatch already succeeded.
func (d *Dispatcher) enrich(ctx context.Context, gateway chain.Gateway, denom string, success *Success) {
	if chainID, err := gateway.GetChainID(ctx); err == nil {
		success.ChainID = chainID
	}
	success.SenderBalance = balanceOf(ctx, gateway, success.SenderAddress, denom)
	success.ReceiverBalance = balanceOf(ctx, gateway, success.ReceiverAddress, denom)
}

func balanceOf(ctx context.Context, gateway chain.Gateway, address, denom string) string {
	balances, err := gateway.GetBalances(ctx, address)
	if err != nil {
		return ""
	}
	for _, coin := range balances {
		if coin.Denom == denom {
			return coin.Amount
		}
	}
	return "0"
}
