package storage

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/vending-machine/internal/port"
)

const (
	defaultKeyPrefix = "vending:"
	versionKey       = "version"
)

// KEYS[1] is the version key, KEYS[2..] the state keys.
// ARGV[1] is the expected version, ARGV[2..] the values in KEYS order.
var commitStateScript = redis.NewScript(`
local current = redis.call('GET', KEYS[1]) or '0'
if current ~= ARGV[1] then
	return 0
end

for i = 2, #KEYS do
	redis.call('SET', KEYS[i], ARGV[i])
end
redis.call('INCR', KEYS[1])

return 1
`)

type RedisAdapter struct {
	client *redis.Client
	prefix string
}

func NewRedisAdapter(client *redis.Client, prefix string) *RedisAdapter {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisAdapter{client: client, prefix: prefix}
}

func (r *RedisAdapter) Load(ctx context.Context, keys []string) (port.Snapshot, error) {
	redisKeys := make([]string, 0, len(keys)+1)
	redisKeys = append(redisKeys, r.prefix+versionKey)
	for _, k := range keys {
		redisKeys = append(redisKeys, r.prefix+k)
	}

	// MGET is a single command, so version and values come from the same point in time.
	raw, err := r.client.MGet(ctx, redisKeys...).Result()
	if err != nil {
		return port.Snapshot{}, fmt.Errorf("mget state: %w", err)
	}

	snap := port.Snapshot{Values: make(map[string][]byte, len(keys))}
	if v, ok := raw[0].(string); ok {
		snap.Version, err = strconv.ParseUint(v, 10, 64)
		if err != nil {
			return port.Snapshot{}, fmt.Errorf("parse version %q: %w", v, err)
		}
	}
	for i, k := range keys {
		if v, ok := raw[i+1].(string); ok {
			snap.Values[k] = []byte(v)
		}
	}
	return snap, nil
}

func (r *RedisAdapter) Commit(ctx context.Context, version uint64, values map[string][]byte) error {
	names := make([]string, 0, len(values))
	for k := range values {
		names = append(names, k)
	}
	sort.Strings(names)

	keys := make([]string, 0, len(names)+1)
	args := make([]any, 0, len(names)+1)
	keys = append(keys, r.prefix+versionKey)
	args = append(args, strconv.FormatUint(version, 10))
	for _, k := range names {
		keys = append(keys, r.prefix+k)
		args = append(args, values[k])
	}

	result, err := commitStateScript.Run(ctx, r.client, keys, args...).Int()
	if err != nil {
		return fmt.Errorf("commit state: %w", err)
	}
	if result != 1 {
		return port.ErrVersionConflict
	}
	return nil
}
