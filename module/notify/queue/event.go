package queue

import (
	"context"
	"time"

	"BProject/tools/errs"
)

// QueueName 固定队列名：博客服务写入、worker 消费。
const QueueName = "notify:blog_created"

// BlogCreatedEvent 入队的工作项。瞬态数据：处理成功后不保留。
// 字段显式建 schema，入队/出队两侧都校验，坏数据拒绝而不是硬转。
type BlogCreatedEvent struct {
	BlogID    string    `json:"blogId"`
	Title     string    `json:"title"`
	AuthorID  string    `json:"authorId"`
	CreatedAt time.Time `json:"createdAt"`
}

var (
	ErrNoBlogID    = errs.NewCodeError(errs.ArgsError, "event blog id missing")
	ErrNoAuthorID  = errs.NewCodeError(errs.ArgsError, "event author id missing")
	ErrNoCreatedAt = errs.NewCodeError(errs.ArgsError, "event created_at missing")
)

func (e *BlogCreatedEvent) Validate() error {
	if e.BlogID == "" {
		return ErrNoBlogID.Wrap()
	}
	if e.AuthorID == "" {
		return ErrNoAuthorID.WrapMsg("blog_id", e.BlogID)
	}
	if e.CreatedAt.IsZero() {
		return ErrNoCreatedAt.WrapMsg("blog_id", e.BlogID)
	}
	return nil
}

// AckFunc 在事件处理完成后调用。Redis 后端是空操作（BRPOP 已是破坏性出队）；
// JetStream 后端在这里才 Ack，worker 在提交 marker 前崩溃时消息会被重投。
type AckFunc func()

// Queue 持久化 FIFO。Dequeue 是有界阻塞：超时返回 (nil, nil, nil)，
// 后端不可用返回错误，由 worker 记日志后按轮询节奏重试，绝不让 worker 崩掉。
type Queue interface {
	Enqueue(ctx context.Context, ev *BlogCreatedEvent) error
	Dequeue(ctx context.Context, timeout time.Duration) (*BlogCreatedEvent, AckFunc, error)
	Close() error
}

func nopAck() {}
