package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"BProject/logger"
	errs "BProject/tools/errs"

	"github.com/redis/go-redis/v9"
)

// RedisQueue 用一个 Redis List 承载事件：LPUSH 入队、BRPOP 出队，FIFO。
type RedisQueue struct {
	rdb *redis.Client
	key string
}

func NewRedisQueue(rdb *redis.Client) *RedisQueue {
	return &RedisQueue{rdb: rdb, key: QueueName}
}

func (q *RedisQueue) Enqueue(ctx context.Context, ev *BlogCreatedEvent) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return errs.WrapMsg(err, "marshal event", "blog_id", ev.BlogID)
	}
	if err := q.rdb.LPush(ctx, q.key, b).Err(); err != nil {
		return errs.WrapMsg(err, "lpush event", "key", q.key)
	}
	return nil
}

// Dequeue 阻塞最多 timeout；队列空返回 (nil,nil,nil)。
// 反序列化/校验失败的消息记日志后丢弃（已经弹出，没法归还），同样按“空”返回。
func (q *RedisQueue) Dequeue(ctx context.Context, timeout time.Duration) (*BlogCreatedEvent, AckFunc, error) {
	vals, err := q.rdb.BRPop(ctx, timeout, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, errs.WrapMsg(err, "brpop", "key", q.key)
	}
	// BRPOP 返回 [key, value]
	if len(vals) != 2 {
		return nil, nil, nil
	}

	var ev BlogCreatedEvent
	if err := json.Unmarshal([]byte(vals[1]), &ev); err != nil {
		logger.Errorf("[RedisQueue] drop malformed event: %v payload=%.256s", err, vals[1])
		return nil, nil, nil
	}
	if err := ev.Validate(); err != nil {
		logger.Errorf("[RedisQueue] drop invalid event: %v blog_id=%s", err, ev.BlogID)
		return nil, nil, nil
	}
	return &ev, nopAck, nil
}

func (q *RedisQueue) Close() error { return nil }
