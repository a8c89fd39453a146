package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/efreitasn/papertrade/internal/domain"
)

// RedisStore is a SnapshotStore backed by Redis: one JSON value per
// session under prefix:portfolio:<id>, plus a set of known session IDs for
// listing. Records have no TTL; a paper portfolio survives until deleted.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedis creates a RedisStore using the given client and key prefix.
func NewRedis(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) portfolioKey(sessionID string) string {
	return fmt.Sprintf("%s:portfolio:%s", s.prefix, sessionID)
}

func (s *RedisStore) seqKey(sessionID string) string {
	return fmt.Sprintf("%s:seq:%s", s.prefix, sessionID)
}

func (s *RedisStore) indexKey() string {
	return fmt.Sprintf("%s:sessions", s.prefix)
}

// saveScript writes the record only when the incoming seq is at least the
// stored one, so an out-of-order save can never clobber newer state.
// KEYS[1] is the record key, KEYS[2] the seq key; ARGV[1] the JSON record,
// ARGV[2] the seq.
var saveScript = redis.NewScript(`
local cur = tonumber(redis.call('GET', KEYS[2]))
if cur and cur > tonumber(ARGV[2]) then
	return 0
end
redis.call('SET', KEYS[1], ARGV[1])
redis.call('SET', KEYS[2], ARGV[2])
return 1
`)

// Save writes the session's record and registers its ID in the index set.
// A save carrying a seq older than the stored record is ignored.
func (s *RedisStore) Save(ctx context.Context, snap *PortfolioSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal portfolio snapshot: %w", err)
	}
	keys := []string{s.portfolioKey(snap.SessionID), s.seqKey(snap.SessionID)}
	if err := saveScript.Run(ctx, s.client, keys, data, snap.Seq).Err(); err != nil {
		return err
	}
	return s.client.SAdd(ctx, s.indexKey(), snap.SessionID).Err()
}

// Load reads the session's record.
func (s *RedisStore) Load(ctx context.Context, sessionID string) (*PortfolioSnapshot, error) {
	data, err := s.client.Get(ctx, s.portfolioKey(sessionID)).Bytes()
	if err == redis.Nil {
		return nil, domain.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, err
	}
	return unmarshalSnapshot(data)
}

// List reads every persisted session record. IDs present in the index but
// missing their record (deleted out-of-band) are pruned from the index.
func (s *RedisStore) List(ctx context.Context) ([]*PortfolioSnapshot, error) {
	ids, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, err
	}

	var out []*PortfolioSnapshot
	for _, id := range ids {
		snap, err := s.Load(ctx, id)
		if err == domain.ErrSnapshotNotFound {
			s.client.SRem(ctx, s.indexKey(), id)
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, nil
}

// Delete removes the session's record, its seq marker and its index entry.
func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.portfolioKey(sessionID), s.seqKey(sessionID)).Err(); err != nil {
		return err
	}
	return s.client.SRem(ctx, s.indexKey(), sessionID).Err()
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
