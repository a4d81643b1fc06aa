package audit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"saffaucet/jsonx"
)

const (
	recordKeyPrefix = "audit:rec:"
	indexKeyPrefix  = "audit:idx:"

	// Index entries only need to outlive the 24h quota window; keep a
	// margin for clock drift between faucet instances.
	redisRetention = 48 * time.Hour
)

// RedisStore keeps audit records as JSON values plus per-key sorted sets
// scored by unix nanoseconds, so a windowed count is a single ZCOUNT.
type RedisStore struct {
	client *redis.Client
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(address string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr: address,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

func indexKey(keyField, keyValue string) string {
	return indexKeyPrefix + keyField + ":" + keyValue
}

func (s *RedisStore) Append(ctx context.Context, record *Record) error {
	value, err := jsonx.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal audit record: %w", err)
	}

	score := float64(record.Timestamp.UnixNano())
	cutoff := strconv.FormatInt(record.Timestamp.Add(-redisRetention).UnixNano(), 10)

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, recordKeyPrefix+record.ID, value, redisRetention)
	if record.Success {
		for _, field := range []struct{ name, value string }{
			{"ip", record.IP},
			{"recipient_address", record.RecipientAddress},
		} {
			key := indexKey(field.name, field.value)
			pipe.ZAdd(ctx, key, redis.Z{Score: score, Member: record.ID})
			pipe.ZRemRangeByScore(ctx, key, "-inf", cutoff)
			pipe.Expire(ctx, key, redisRetention)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to write audit record: %w", err)
	}
	return nil
}

func (s *RedisStore) CountSuccessfulSince(ctx context.Context, keyField, keyValue string, since time.Time) (int, error) {
	min := strconv.FormatInt(since.UnixNano(), 10)
	count, err := s.client.ZCount(ctx, indexKey(keyField, keyValue), min, "+inf").Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count audit records: %w", err)
	}
	return int(count), nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
