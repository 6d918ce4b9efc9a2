package livestats

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"callcenter-api/internal/store"

	"github.com/redis/go-redis/v9"
)

const DefaultBoardKey = "livestats:board"

// Hash fields. The per-type counters use the call type itself (in, out,
// missed) as the field name.
const (
	fieldSeq       = "seq"
	fieldAll       = "all"
	fieldConnected = "connected"
	fieldFirst     = "first"
	fieldLast      = "last"
)

var applyScript = redis.NewScript(`
-- KEYS[1] = board hash
-- ARGV[1] = call type field, empty for an unknown type
-- ARGV[2] = "1" when the call connected
-- ARGV[3] = call time, RFC3339
redis.call('HINCRBY', KEYS[1], 'seq', 1)
redis.call('HINCRBY', KEYS[1], 'all', 1)
if ARGV[1] ~= '' then
  redis.call('HINCRBY', KEYS[1], ARGV[1], 1)
end
if ARGV[2] == '1' then
  redis.call('HINCRBY', KEYS[1], 'connected', 1)
end
redis.call('HSETNX', KEYS[1], 'first', ARGV[3])
redis.call('HSET', KEYS[1], 'last', ARGV[3])
return redis.call('HGETALL', KEYS[1])
`)

var resetScript = redis.NewScript(`
-- KEYS[1] = board hash
local seq = redis.call('HINCRBY', KEYS[1], 'seq', 1)
redis.call('DEL', KEYS[1])
redis.call('HSET', KEYS[1], 'seq', seq)
return redis.call('HGETALL', KEYS[1])
`)

// RedisBoard keeps the counters in one Redis hash shared by every API
// instance. Updates run as Lua scripts, so seq and the counts move together.
type RedisBoard struct {
	rdb *redis.Client
	key string
}

func NewRedisBoard(rdb *redis.Client, key string) *RedisBoard {
	if key == "" {
		key = DefaultBoardKey
	}
	return &RedisBoard{rdb: rdb, key: key}
}

func (b *RedisBoard) Apply(ctx context.Context, e Event) (Snapshot, error) {
	if b == nil || b.rdb == nil {
		return Snapshot{}, errors.New("livestats: redis not configured")
	}
	field := ""
	if store.ValidCallType(e.Type) {
		field = e.Type
	}
	connected := "0"
	if e.Connected {
		connected = "1"
	}
	at := e.At
	if at.IsZero() {
		at = time.Now()
	}
	res, err := applyScript.Run(ctx, b.rdb, []string{b.key}, field, connected, at.UTC().Format(time.RFC3339Nano)).StringSlice()
	if err != nil {
		return Snapshot{}, fmt.Errorf("apply live event: %w", err)
	}
	return snapshotFromPairs(res)
}

func (b *RedisBoard) Current(ctx context.Context) (Snapshot, error) {
	if b == nil || b.rdb == nil {
		return Snapshot{}, errors.New("livestats: redis not configured")
	}
	fields, err := b.rdb.HGetAll(ctx, b.key).Result()
	if err != nil {
		return Snapshot{}, fmt.Errorf("read live board: %w", err)
	}
	return snapshotFromFields(fields)
}

// Reset zeroes the counts. Seq keeps counting so receivers still see the
// reset as the newest snapshot.
func (b *RedisBoard) Reset(ctx context.Context) (Snapshot, error) {
	if b == nil || b.rdb == nil {
		return Snapshot{}, errors.New("livestats: redis not configured")
	}
	res, err := resetScript.Run(ctx, b.rdb, []string{b.key}).StringSlice()
	if err != nil {
		return Snapshot{}, fmt.Errorf("reset live board: %w", err)
	}
	return snapshotFromPairs(res)
}

// snapshotFromPairs decodes a flat HGETALL reply.
func snapshotFromPairs(pairs []string) (Snapshot, error) {
	if len(pairs)%2 != 0 {
		return Snapshot{}, fmt.Errorf("live board: odd reply length %d", len(pairs))
	}
	fields := make(map[string]string, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		fields[pairs[i]] = pairs[i+1]
	}
	return snapshotFromFields(fields)
}

func snapshotFromFields(fields map[string]string) (Snapshot, error) {
	var s Snapshot
	var err error
	if v, ok := fields[fieldSeq]; ok {
		if s.Seq, err = strconv.ParseUint(v, 10, 64); err != nil {
			return Snapshot{}, fmt.Errorf("live board seq: %w", err)
		}
	}
	ints := []struct {
		field string
		dst   *int
	}{
		{fieldAll, &s.AllCalls},
		{fieldConnected, &s.Connected},
		{store.CallIn, &s.In},
		{store.CallOut, &s.Out},
		{store.CallMissed, &s.Missed},
	}
	for _, f := range ints {
		v, ok := fields[f.field]
		if !ok {
			continue
		}
		if *f.dst, err = strconv.Atoi(v); err != nil {
			return Snapshot{}, fmt.Errorf("live board %s: %w", f.field, err)
		}
	}
	if s.FirstCall, err = parseBoardTime(fields, fieldFirst); err != nil {
		return Snapshot{}, err
	}
	if s.LastCall, err = parseBoardTime(fields, fieldLast); err != nil {
		return Snapshot{}, err
	}
	s.derive()
	return s, nil
}

func parseBoardTime(fields map[string]string, field string) (*time.Time, error) {
	v, ok := fields[field]
	if !ok || v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return nil, fmt.Errorf("live board %s: %w", field, err)
	}
	return &t, nil
}
