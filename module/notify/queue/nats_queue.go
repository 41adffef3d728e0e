package queue

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"BProject/logger"
	errs "BProject/tools/errs"

	"github.com/nats-io/nats.go"
)

const (
	natsStream  = "NOTIFY"
	natsSubject = "notify.blog_created"
	natsDurable = "notify-worker"
)

// NatsQueue JetStream 版队列后端：pull 消费者的 Fetch(1, MaxWait) 天然就是
// 有界阻塞出队；显式 Ack 放在事件处理完成之后，worker 中途崩溃会触发重投。
type NatsQueue struct {
	nc  *nats.Conn
	js  nats.JetStreamContext
	sub *nats.Subscription
}

func NewNatsQueue(servers []string, name string) (*NatsQueue, error) {
	if len(servers) == 0 {
		return nil, errs.New("nats servers missing")
	}
	opts := []nats.Option{
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(500 * time.Millisecond),
		nats.ReconnectJitter(100*time.Millisecond, 500*time.Millisecond),
		nats.Timeout(3 * time.Second),
	}
	nc, err := nats.Connect(strings.Join(servers, ","), opts...)
	if err != nil {
		return nil, errs.WrapMsg(err, "connect nats")
	}
	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, errs.WrapMsg(err, "init jetstream")
	}

	// 幂等建流：已存在就复用
	if _, err := js.StreamInfo(natsStream); err != nil {
		_, err = js.AddStream(&nats.StreamConfig{
			Name:      natsStream,
			Subjects:  []string{natsSubject},
			Retention: nats.WorkQueuePolicy,
		})
		if err != nil {
			nc.Close()
			return nil, errs.WrapMsg(err, "ensure stream", "stream", natsStream)
		}
	}

	sub, err := js.PullSubscribe(natsSubject, natsDurable,
		nats.AckExplicit(),
		nats.AckWait(30*time.Second),
		nats.PullMaxWaiting(8),
	)
	if err != nil {
		nc.Close()
		return nil, errs.WrapMsg(err, "pull subscribe", "subject", natsSubject)
	}

	return &NatsQueue{nc: nc, js: js, sub: sub}, nil
}

func (q *NatsQueue) Enqueue(ctx context.Context, ev *BlogCreatedEvent) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return errs.WrapMsg(err, "marshal event", "blog_id", ev.BlogID)
	}
	if _, err := q.js.Publish(natsSubject, b, nats.Context(ctx)); err != nil {
		return errs.WrapMsg(err, "js publish", "subject", natsSubject)
	}
	return nil
}

func (q *NatsQueue) Dequeue(ctx context.Context, timeout time.Duration) (*BlogCreatedEvent, AckFunc, error) {
	msgs, err := q.sub.Fetch(1, nats.MaxWait(timeout))
	if errors.Is(err, nats.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, errs.WrapMsg(err, "fetch", "subject", natsSubject)
	}
	if len(msgs) == 0 {
		return nil, nil, nil
	}
	m := msgs[0]

	var ev BlogCreatedEvent
	if err := json.Unmarshal(m.Data, &ev); err != nil {
		logger.Errorf("[NatsQueue] drop malformed event: %v payload=%.256s", err, m.Data)
		_ = m.Ack() // 毒消息别留在流里反复重投
		return nil, nil, nil
	}
	if err := ev.Validate(); err != nil {
		logger.Errorf("[NatsQueue] drop invalid event: %v blog_id=%s", err, ev.BlogID)
		_ = m.Ack()
		return nil, nil, nil
	}
	return &ev, func() { _ = m.Ack() }, nil
}

func (q *NatsQueue) Close() error {
	if q.sub != nil {
		_ = q.sub.Drain()
	}
	if q.nc != nil {
		return q.nc.Drain()
	}
	return nil
}
