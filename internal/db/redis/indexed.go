package redis

import (
	"context"
	"sort"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/docsig/internal/db"
)

// saveIndexedScript moves Member from the old index set to the new one and writes
// the value and meta hash. The index set keys are derived from ARGV, so on a cluster
// the key prefix must carry a hash tag.
//
// KEYS: value key, meta key.
// ARGV: value, member, index field, index prefix, new index value, field/value pairs...
const saveIndexedScript = `
local old = redis.call('HGET', KEYS[2], ARGV[3])
if old and old ~= '' and old ~= ARGV[5] then
  redis.call('SREM', ARGV[4] .. old, ARGV[2])
end
redis.call('SET', KEYS[1], ARGV[1])
if #ARGV > 5 then
  redis.call('HSET', KEYS[2], unpack(ARGV, 6))
end
if ARGV[5] ~= '' then
  redis.call('SADD', ARGV[4] .. ARGV[5], ARGV[2])
end
return 1
`

// deleteIndexedScript removes the value, the meta hash and the index entry.
// Returns the number of deleted keys.
//
// KEYS: value key, meta key.
// ARGV: member, index field, index prefix.
const deleteIndexedScript = `
local old = redis.call('HGET', KEYS[2], ARGV[2])
if old and old ~= '' then
  redis.call('SREM', ARGV[3] .. old, ARGV[1])
end
return redis.call('DEL', KEYS[1], KEYS[2])
`

// SaveIndexed writes the record and updates its index entry atomically.
func (s *Store) SaveIndexed(ctx context.Context, rec db.IndexedRecord) error {
	names := make([]string, 0, len(rec.Meta))
	for k := range rec.Meta {
		names = append(names, k)
	}
	sort.Strings(names)

	args := []string{
		rueidis.BinaryString(rec.Value),
		rec.Member,
		rec.IndexField,
		rec.IndexPrefix,
		rec.Meta[rec.IndexField],
	}
	for _, k := range names {
		args = append(args, k, rec.Meta[k])
	}

	cmd := s.b().Eval().Script(saveIndexedScript).Numkeys(2).
		Key(rec.Key, rec.MetaKey).Arg(args...).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpSaveIndexed, Err: err}
	}
	return nil
}

// DeleteIndexed removes the record and its index entry atomically.
func (s *Store) DeleteIndexed(ctx context.Context, rec db.IndexedRecord) (bool, error) {
	cmd := s.b().Eval().Script(deleteIndexedScript).Numkeys(2).
		Key(rec.Key, rec.MetaKey).Arg(rec.Member, rec.IndexField, rec.IndexPrefix).Build()
	n, err := s.do(ctx, cmd).AsInt64()
	if err != nil {
		return false, &db.Error{Op: db.OpDeleteIndexed, Err: err}
	}
	return n > 0, nil
}
