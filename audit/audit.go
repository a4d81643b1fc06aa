package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"saffaucet/logx"
	"saffaucet/monitoring"
)

// Record is the append-only trail entry for one inbound faucet request.
// Exactly one record exists per request regardless of outcome; records are
// never mutated after creation.
type Record struct {
	ID               string    `json:"id"`
	IP               string    `json:"ip"`
	Region           string    `json:"region,omitempty"`
	UserAgent        string    `json:"user_agent,omitempty"`
	RecipientAddress string    `json:"recipient_address"`
	Success          bool      `json:"success"`
	TxHash           string    `json:"tx_hash,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}

// Store persists audit records and answers windowed success counts. The
// keyField argument is one of quota.KeyIP / quota.KeyAddress.
type Store interface {
	Append(ctx context.Context, record *Record) error
	CountSuccessfulSince(ctx context.Context, keyField, keyValue string, since time.Time) (int, error)
	Close() error
}

// Recorder wraps a Store with the best-effort write contract: a failed
// append is logged and counted, never surfaced to the requester.
type Recorder struct {
	store Store
}

func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store}
}

// Record persists one audit record, filling in ID and timestamp when the
// caller left them zero. It never returns an error; the outcome already
// determined for the requester must not change because the trail write
// failed.
func (r *Recorder) Record(ctx context.Context, record *Record) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}

	if err := r.store.Append(ctx, record); err != nil {
		monitoring.RecordAuditWriteFailure()
		logx.Error("audit", "failed to append audit record ", record.ID, ": ", err)
	}
}
