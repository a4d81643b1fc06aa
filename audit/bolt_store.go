package audit

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"saffaucet/jsonx"
	"saffaucet/quota"
)

var auditBucket = []byte("audit_records")

// BoltStore is the embedded audit backend for single-node deployments.
// Records are keyed by nanosecond timestamp + record ID so a windowed count
// is a single seek plus forward scan.
type BoltStore struct {
	db *bolt.DB
}

var _ Store = (*BoltStore)(nil)

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(auditBucket)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to ensure audit bucket: %w", err)
	}

	return &BoltStore{db: db}, nil
}

func recordKey(ts time.Time, id string) []byte {
	key := make([]byte, 8, 8+len(id))
	binary.BigEndian.PutUint64(key, uint64(ts.UnixNano()))
	return append(key, id...)
}

func sinceKey(since time.Time) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(since.UnixNano()))
	return key
}

func (s *BoltStore) Append(_ context.Context, record *Record) error {
	value, err := jsonx.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal audit record: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(auditBucket).Put(recordKey(record.Timestamp, record.ID), value)
	})
}

func (s *BoltStore) CountSuccessfulSince(_ context.Context, keyField, keyValue string, since time.Time) (int, error) {
	count := 0
	err := s.db.View(func(tx *bolt.Tx) error {
		cursor := tx.Bucket(auditBucket).Cursor()
		for k, v := cursor.Seek(sinceKey(since)); k != nil; k, v = cursor.Next() {
			var record Record
			if err := jsonx.Unmarshal(v, &record); err != nil {
				return fmt.Errorf("corrupt audit record at %x: %w", k, err)
			}
			if !record.Success {
				continue
			}
			switch keyField {
			case quota.KeyIP:
				if record.IP == keyValue {
					count++
				}
			case quota.KeyAddress:
				if record.RecipientAddress == keyValue {
					count++
				}
			default:
				return fmt.Errorf("unsupported count key field: %s", keyField)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
