package store

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/ducka/go-flow/utils"
	"github.com/redis/go-redis/v9"
)

type RedisStore[TState any] struct {
	client     redis.UniversalClient
	marshaller utils.Marshaller
	prefix     string
}

type RedisOption func(o *redisOptions)

type redisOptions struct {
	marshaller utils.Marshaller
	prefix     string
}

// WithKeyPrefix namespaces every key written to redis.
func WithKeyPrefix(prefix string) RedisOption {
	return func(o *redisOptions) {
		o.prefix = prefix
	}
}

func WithMarshaller(marshaller utils.Marshaller) RedisOption {
	return func(o *redisOptions) {
		o.marshaller = marshaller
	}
}

func NewRedisStore[TState any](client redis.UniversalClient, opts ...RedisOption) *RedisStore[TState] {
	if client == nil {
		panic("client should not be nil")
	}

	options := redisOptions{marshaller: utils.NewJsonMarshaller()}
	for _, opt := range opts {
		opt(&options)
	}

	return &RedisStore[TState]{
		client:     client,
		marshaller: options.marshaller,
		prefix:     options.prefix,
	}
}

func (r *RedisStore[TState]) Get(ctx context.Context, keys ...string) ([]StateEntry[TState], error) {
	if len(keys) == 0 {
		return []StateEntry[TState]{}, nil
	}

	pipe := r.client.Pipeline()

	cmds := make([]*redis.SliceCmd, 0, len(keys))

	for _, key := range keys {
		cmd := pipe.HMGet(ctx, r.prefix+key, "value", "timestamp")

		cmds = append(cmds, cmd)
	}

	_, err := pipe.Exec(ctx)

	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	results := make([]StateEntry[TState], 0, len(cmds))

	for i, cmd := range cmds {
		values, err := cmd.Result()

		if err != nil {
			return nil, err
		}

		// Missing keys come back as nil fields
		if values[0] == nil {
			continue
		}

		var state stateEnvelope[TState]

		if str, ok := values[0].(string); ok && str != "" {
			if err := r.marshaller.Deserialize([]byte(str), &state); err != nil {
				return nil, err
			}
		}

		var timestamp *int64

		if str, ok := values[1].(string); ok && str != "" {
			ts, err := strconv.ParseInt(str, 10, 64)

			if err != nil {
				return nil, err
			}

			timestamp = &ts
		}

		results = append(results, StateEntry[TState]{
			Key:       keys[i],
			State:     state.V,
			Timestamp: timestamp,
		})
	}

	return results, nil
}

const (
	setStateLuaScript = `
local key = KEYS[1]
local value = ARGV[1]
local expectedTimestamp = ARGV[2]
local expire = tonumber(ARGV[3])  -- Expiration in milliseconds
local currentTimestamp = redis.call('HGET', key, 'timestamp')
local nextTimestamp = ARGV[4]

-- A changed timestamp means another process has modified the state concurrently
if not currentTimestamp or currentTimestamp == expectedTimestamp then
	if value == "nil" then
		redis.call('DEL', key)
	else
		redis.call('HSET', key, 'value', value, 'timestamp', nextTimestamp)
		if expire > 0 then
			redis.call('PEXPIRE', key, expire)
		else
			redis.call('PERSIST', key)
		end
	end
	return "ok"
else
	return "conflict"
end
`
)

func (r *RedisStore[TState]) Set(ctx context.Context, entries ...StateEntry[TState]) error {
	if len(entries) == 0 {
		return nil
	}

	pipe := r.client.Pipeline()
	cmds := make([]*redis.Cmd, 0, len(entries))

	for _, entry := range entries {
		stateJson := "nil"

		if entry.State != nil {
			serialized, err := r.marshaller.Serialize(&stateEnvelope[TState]{V: entry.State})
			if err != nil {
				return err
			}
			stateJson = string(serialized)
		}

		currentTimestamp := "-1"
		if entry.Timestamp != nil {
			currentTimestamp = strconv.FormatInt(*entry.Timestamp, 10)
		}

		expiration := utils.ValueOrFallback(entry.Expiry, -time.Millisecond).Milliseconds()

		nextTimestamp := time.Now().UnixNano()

		cmd := pipe.Eval(ctx, setStateLuaScript, []string{r.prefix + entry.Key}, stateJson, currentTimestamp, expiration, nextTimestamp)

		cmds = append(cmds, cmd)
	}

	_, err := pipe.Exec(ctx)

	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}

	conflicts := make([]string, 0)

	for i, cmd := range cmds {
		resp, err := cmd.Text()

		if err != nil {
			return err
		}

		if resp == "conflict" {
			conflicts = append(conflicts, entries[i].Key)
		}
	}

	return conflictOrNil(conflicts)
}

type stateEnvelope[TState any] struct {
	V *TState
}
