package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type failingStore struct {
	appends int
}

func (s *failingStore) Append(_ context.Context, _ *Record) error {
	s.appends++
	return errors.New("disk full")
}

func (s *failingStore) CountSuccessfulSince(_ context.Context, _, _ string, _ time.Time) (int, error) {
	return 0, errors.New("disk full")
}

func (s *failingStore) Close() error { return nil }

func TestRecorderSwallowsAppendFailures(t *testing.T) {
	store := &failingStore{}
	recorder := NewRecorder(store)

	record := &Record{IP: "203.0.113.7", RecipientAddress: "addr_safro1aaa"}
	recorder.Record(context.Background(), record)

	assert.Equal(t, 1, store.appends, "append must still be attempted")
}

func TestRecorderFillsIdentityFields(t *testing.T) {
	store := &failingStore{}
	recorder := NewRecorder(store)

	record := &Record{IP: "203.0.113.7"}
	recorder.Record(context.Background(), record)

	assert.NotEmpty(t, record.ID)
	assert.False(t, record.Timestamp.IsZero())
	assert.Equal(t, time.UTC, record.Timestamp.Location())
}

func TestRecorderPreservesCallerTimestamp(t *testing.T) {
	store := &failingStore{}
	recorder := NewRecorder(store)

	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	record := &Record{ID: "fixed", Timestamp: ts}
	recorder.Record(context.Background(), record)

	assert.Equal(t, "fixed", record.ID)
	assert.Equal(t, ts, record.Timestamp)
}
