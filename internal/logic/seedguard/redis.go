package seedguard

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"mix-router-sol/internal/types"
)

const seedPrefix = "mix:seed"

// 每种状态的 TTL
const (
	reservedTTL  = time.Hour
	completedTTL = 7 * 24 * time.Hour
	failedTTL    = 24 * time.Hour
)

func ttlOf(status SeedStatus) time.Duration {
	switch status {
	case SeedReserved:
		return reservedTTL
	case SeedCompleted:
		return completedTTL
	default:
		return failedTTL
	}
}

// RedisSeedStore 以程序 ID 为命名空间记录种子状态
type RedisSeedStore struct {
	rdb       *redis.Client
	programID types.Pubkey
}

func NewRedisSeedStore(rdb *redis.Client, programID types.Pubkey) *RedisSeedStore {
	return &RedisSeedStore{rdb: rdb, programID: programID}
}

func (r *RedisSeedStore) key(seed uint64) string {
	return fmt.Sprintf("%s:%s:%d", seedPrefix, r.programID, seed)
}

func (r *RedisSeedStore) Status(ctx context.Context, seed uint64) (SeedStatus, error) {
	val, err := r.rdb.Get(ctx, r.key(seed)).Int()
	switch {
	case err == redis.Nil:
		return SeedUnknown, nil
	case err != nil:
		return SeedUnknown, fmt.Errorf("redis get error: %w", err)
	case val == int(SeedReserved):
		return SeedReserved, nil
	case val == int(SeedCompleted):
		return SeedCompleted, nil
	case val == int(SeedFailed):
		return SeedFailed, nil
	default:
		return SeedUnknown, nil
	}
}

// reserveScript 在一次调用内完成比较并设置：键不存在或已失败时占用
var reserveScript = redis.NewScript(`
local v = redis.call('GET', KEYS[1])
if (not v) or v == ARGV[2] then
	redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
	return 1
end
return 0
`)

func (r *RedisSeedStore) Reserve(ctx context.Context, seed uint64) (bool, error) {
	n, err := reserveScript.Run(ctx, r.rdb, []string{r.key(seed)},
		int(SeedReserved), int(SeedFailed), reservedTTL.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("redis reserve error: %w", err)
	}
	return n == 1, nil
}

func (r *RedisSeedStore) Mark(ctx context.Context, seed uint64, status SeedStatus) error {
	return r.rdb.Set(ctx, r.key(seed), int(status), ttlOf(status)).Err()
}
