package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// QuotaCounter 策展人每日投稿计数
type QuotaCounter interface {
	// Incr 自增并返回当日计数，key 过期时间设到 UTC 次日零点
	Incr(ctx context.Context, curatorID string) (int64, error)
	// Decr 退还一次计数，配对 Incr 之后调用
	Decr(ctx context.Context, curatorID string) error
	Peek(ctx context.Context, curatorID string) (int64, error)
}

type redisQuota struct {
	rdb *redis.Client
	now func() time.Time
}

func NewQuotaCounter(rdb *redis.Client) QuotaCounter {
	return &redisQuota{rdb: rdb, now: time.Now}
}

func quotaKey(curatorID string, now time.Time) string {
	return fmt.Sprintf("quota:curate:%s:%s", curatorID, now.UTC().Format("2006-01-02"))
}

func (q *redisQuota) Incr(ctx context.Context, curatorID string) (int64, error) {
	now := q.now()
	key := quotaKey(curatorID, now)
	midnight := now.UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)

	pipe := q.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireAt(ctx, key, midnight)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

func (q *redisQuota) Decr(ctx context.Context, curatorID string) error {
	return q.rdb.Decr(ctx, quotaKey(curatorID, q.now())).Err()
}

func (q *redisQuota) Peek(ctx context.Context, curatorID string) (int64, error) {
	val, err := q.rdb.Get(ctx, quotaKey(curatorID, q.now())).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return val, err
}
