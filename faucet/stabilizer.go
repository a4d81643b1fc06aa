package faucet

import (
	"context"
	"time"

	"saffaucet/chain"
	"saffaucet/config"
	"saffaucet/logx"
	"saffaucet/monitoring"
)

// sequenceObservation is one poll result; transient within a single
// stabilization cycle, never persisted.
type sequenceObservation struct {
	value      uint64
	observedAt time.Time
}

// Stabilizer polls an account's sequence until it quiesces, to avoid signing
// against a nonce another in-flight submission is about to consume. It is a
// best-effort synchronization primitive, not a lock: fully independent
// invocations can still race, and the chain's own sequence check is the
// final arbiter.
type Stabilizer struct {
	gateway chain.Gateway
	tuning  *config.DispatchTuning
}

func NewStabilizer(gateway chain.Gateway, tuning *config.DispatchTuning) *Stabilizer {
	return &Stabilizer{gateway: gateway, tuning: tuning}
}

// Stabilize returns a sequence value that held steady for the configured
// number of consecutive polls plus one confirmation read after a settle
// delay. If the max wait elapses first, the last observed value is returned
// as a best-effort fallback; the subsequent broadcast surfaces any staleness
// as a sequence conflict, which the dispatcher's retry loop handles.
func (s *Stabilizer) Stabilize(ctx context.Context, account string) (uint64, error) {
	started := time.Now()
	deadline := started.Add(s.tuning.StabilizeTimeout())
	defer func() {
		monitoring.ObserveStabilizeDuration(time.Since(started).Seconds())
	}()

	var last sequenceObservation
	observed := false
	stableCount := 0
	var lastErr error

	for {
		value, err := s.gateway.GetSequence(ctx, account)
		if err != nil {
			lastErr = err
		} else {
			if observed && value == last.value {
				stableCount++
			} else {
				last = sequenceObservation{value: value, observedAt: time.Now()}
				observed = true
				stableCount = 1
			}

			if stableCount >= s.tuning.StabilityThreshold {
				confirmed, restart, err := s.confirm(ctx, account, last.value)
				if err == nil && confirmed {
					return last.value, nil
				}
				if err != nil {
					lastErr = err
				}
				if restart > 0 {
					// A transaction confirmed in the gap between the
					// threshold hit and the return; count from scratch.
					last = sequenceObservation{value: restart, observedAt: time.Now()}
					stableCount = 1
				}
			}
		}

		if time.Now().After(deadline) {
			if observed {
				logx.Warn("stabilizer", "sequence did not stabilize within ", s.tuning.StabilizeTimeout(), ", using last seen ", last.value)
				return last.value, nil
			}
			return 0, lastErr
		}

		if err := sleepCtx(ctx, s.tuning.PollInterval()); err != nil {
			if observed {
				return last.value, nil
			}
			return 0, err
		}
	}
}

// confirm performs the single post-threshold read after a short settle
// delay. It returns (true, 0, nil) when the value held, or (false, newValue,
// nil) when the sequence moved and counting must restart.
func (s *Stabilizer) confirm(ctx context.Context, account string, expected uint64) (bool, uint64, error) {
	if err := sleepCtx(ctx, s.tuning.SettleDelay()); err != nil {
		return false, 0, err
	}
	value, err := s.gateway.GetSequence(ctx, account)
	if err != nil {
		return false, 0, err
	}
	if value == expected {
		return true, 0, nil
	}
	return false, value, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
