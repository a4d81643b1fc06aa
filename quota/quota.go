// Package quota gates dispatch with two independent sliding-window counters,
// one per requester IP and one per recipient address. The two counts are
// point-in-time reads with no transactional isolation against the eventual
// audit write, so two racing requests can both pass at limit-1. That small
// over-admission window is accepted; the quota is a best-effort cap, not a
// hard one.
package quota

import (
	"context"
	"time"
)

// Key fields the audit store can count by.
const (
	KeyIP      = "ip"
	KeyAddress = "recipient_address"
)

// DefaultWindow is the trailing period successful dispatches are counted
// over.
const DefaultWindow = 24 * time.Hour

type Kind string

const (
	Allow       Kind = "allow"
	DenyIP      Kind = "ip"
	DenyAddress Kind = "address"
	DenyBoth    Kind = "both"
)

// Counter is the windowed-count view the engine needs from the audit store.
type Counter interface {
	CountSuccessfulSince(ctx context.Context, keyField, keyValue string, since time.Time) (int, error)
}

// Decision carries the verdict plus the counts that produced it.
type Decision struct {
	Kind         Kind
	IPCount      int
	AddressCount int
	Limit        int
}

func (d Decision) Allowed() bool {
	return d.Kind == Allow
}

// Engine applies the configured daily limit to both keys. It performs no
// writes; recording the attempt is the caller's responsibility.
type Engine struct {
	counter Counter
	window  time.Duration
}

func NewEngine(counter Counter) *Engine {
	return &Engine{counter: counter, window: DefaultWindow}
}

// NewEngineWithWindow is used by tests and non-daily deployments.
func NewEngineWithWindow(counter Counter, window time.Duration) *Engine {
	return &Engine{counter: counter, window: window}
}

// Decide evaluates both counters against limit. First matching row of the
// decision table wins: both over, ip over, address over, allow.
func (e *Engine) Decide(ctx context.Context, ip, address string, limit int) (Decision, error) {
	since := time.Now().Add(-e.window)

	ipCount, err := e.counter.CountSuccessfulSince(ctx, KeyIP, ip, since)
	if err != nil {
		return Decision{}, err
	}
	addrCount, err := e.counter.CountSuccessfulSince(ctx, KeyAddress, address, since)
	if err != nil {
		return Decision{}, err
	}

	decision := Decision{IPCount: ipCount, AddressCount: addrCount, Limit: limit}
	switch {
	case ipCount >= limit && addrCount >= limit:
		decision.Kind = DenyBoth
	case ipCount >= limit:
		decision.Kind = DenyIP
	case addrCount >= limit:
		decision.Kind = DenyAddress
	default:
		decision.Kind = Allow
	}
	return decision, nil
}
