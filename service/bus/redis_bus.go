package bus

import (
	"context"
	"sync"
	"time"

	"BProject/logger"
	notifymodel "BProject/module/notify/model"
	"BProject/tools/safe"
	errs "BProject/tools/errs"

	"github.com/redis/go-redis/v9"
)

const (
	subBackoffBase = 500 * time.Millisecond
	subBackoffMax  = 30 * time.Second
)

// RedisBus Redis PUBLISH/SUBSCRIBE 版广播总线。
// 发布走共享 client；订阅必须用单独的连接 —— SUBSCRIBE 之后那条连接
// 进入订阅态，不能再发普通命令，所以两者绝不复用。
type RedisBus struct {
	pub *redis.Client // 共享的命令连接
	sub *redis.Client // 订阅专用连接（每实例一条）

	closeOnce sync.Once
	closed    chan struct{}
}

func NewRedisBus(pub, sub *redis.Client) *RedisBus {
	return &RedisBus{
		pub:    pub,
		sub:    sub,
		closed: make(chan struct{}),
	}
}

func (b *RedisBus) Publish(ctx context.Context, m *notifymodel.Marker) error {
	data, err := EncodeMarker(m)
	if err != nil {
		return err
	}
	if err := b.pub.Publish(ctx, ChannelMarkers, data).Err(); err != nil {
		return errs.WrapMsg(err, "publish marker", "version", m.Version)
	}
	return nil
}

// Subscribe 启动后台订阅循环。断连按次数退避重连（上限 30s）并重新订阅；
// 总线自身不重放，断连窗口内丢的消息靠客户端的历史拉取对账补回。
func (b *RedisBus) Subscribe(ctx context.Context, h Handler) error {
	safe.SafeGo("redis-bus-subscriber", func() {
		attempt := 0
		for {
			select {
			case <-ctx.Done():
				return
			case <-b.closed:
				return
			default:
			}

			pubsub := b.sub.Subscribe(ctx, ChannelMarkers)
			// 确认订阅建立；失败进退避
			if _, err := pubsub.Receive(ctx); err != nil {
				_ = pubsub.Close()
				attempt++
				wait := backoff(attempt)
				logger.Errorf("[RedisBus] subscribe failed (attempt %d): %v, retry in %s", attempt, err, wait)
				if !sleepCtx(ctx, wait) {
					return
				}
				continue
			}
			logger.Infof("[RedisBus] subscribed channel=%s", ChannelMarkers)
			attempt = 0

			b.receiveLoop(ctx, pubsub, h)
			_ = pubsub.Close()

			attempt++
			wait := backoff(attempt)
			logger.Warnf("[RedisBus] connection lost, resubscribe in %s", wait)
			if !sleepCtx(ctx, wait) {
				return
			}
		}
	})
	return nil
}

func (b *RedisBus) receiveLoop(ctx context.Context, pubsub *redis.PubSub, h Handler) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-b.closed:
			return
		default:
		}

		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			return // 连接层错误：交给外层重连
		}

		m, err := DecodeMarker([]byte(msg.Payload))
		if err != nil {
			// 坏消息只记日志丢弃：别的实例的客户端还等着服务
			logger.Errorf("[RedisBus] drop bad payload: %v payload=%.256s", err, msg.Payload)
			continue
		}
		h(m)
	}
}

func (b *RedisBus) Close() error {
	b.closeOnce.Do(func() { close(b.closed) })
	return b.sub.Close()
}

func backoff(attempt int) time.Duration {
	wait := time.Duration(attempt) * subBackoffBase
	if wait > subBackoffMax {
		wait = subBackoffMax
	}
	return wait
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
