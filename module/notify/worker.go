package notify

import (
	"context"
	"sync/atomic"
	"time"

	"BProject/logger"
	blogmodel "BProject/module/blog/model"
	notifymodel "BProject/module/notify/model"
	"BProject/module/notify/queue"
	"BProject/tools/safe"
)

// 小接口按需声明，MarkerStore / Bus 直接满足；单测用假实现。
type BlogGetter interface {
	GetBlogByID(ctx context.Context, blogID string) (*blogmodel.Blog, error)
}

type MarkerCreator interface {
	CreateMarker(ctx context.Context, blog *blogmodel.Blog) (*notifymodel.Marker, error)
}

type MarkerPublisher interface {
	Publish(ctx context.Context, m *notifymodel.Marker) error
}

const (
	defaultDequeueTimeout = time.Second
	errPollInterval       = time.Second
)

// Worker 每实例一条常驻循环：出队 → 回查博客 → 落 marker → 广播。
// 实例间不协调，多实例同时在跑，所以下游必须容忍重复投递。
// 单个事件处理失败只记日志，循环继续；事件不回队（每次出队至多处理一次）。
type Worker struct {
	queue   queue.Queue
	blogs   BlogGetter
	markers MarkerCreator
	bus     MarkerPublisher

	dequeueTimeout time.Duration
	stopped        atomic.Bool
	done           chan struct{}
}

func NewWorker(q queue.Queue, blogs BlogGetter, markers MarkerCreator, bus MarkerPublisher) *Worker {
	safe.MustNotNil(q, "queue")
	safe.MustNotNil(blogs, "blogs")
	safe.MustNotNil(markers, "markers")
	safe.MustNotNil(bus, "bus")
	return &Worker{
		queue:          q,
		blogs:          blogs,
		markers:        markers,
		bus:            bus,
		dequeueTimeout: defaultDequeueTimeout,
		done:           make(chan struct{}),
	}
}

// Start 拉起循环。停止是协作式的：Stop 置标记，循环在两次迭代之间检查，
// 在途事件会处理完而不是被掐断。
func (w *Worker) Start(ctx context.Context) {
	safe.SafeGo("notify-worker", func() {
		defer close(w.done)
		w.run(ctx)
	})
}

// Stop 请求停止并等循环退出。
func (w *Worker) Stop() {
	w.stopped.Store(true)
	<-w.done
}

func (w *Worker) run(ctx context.Context) {
	logger.Infof("[Worker] started, dequeue timeout=%s", w.dequeueTimeout)
	for !w.stopped.Load() {
		select {
		case <-ctx.Done():
			return
		default:
		}

		ev, ack, err := w.queue.Dequeue(ctx, w.dequeueTimeout)
		if err != nil {
			// 队列后端不可用降级为“没活干”，按轮询节奏重试，不退出
			logger.Errorf("[Worker] dequeue failed: %v", err)
			w.sleep(ctx, errPollInterval)
			continue
		}
		if ev == nil {
			continue // 超时空转：出队自己有界，无需额外睡眠
		}

		w.process(ctx, ev)
		if ack != nil {
			ack()
		}
	}
	logger.Infof("[Worker] stopped")
}

// process 单个事件至多处理一次；任何一步失败都只记日志放行下一个。
func (w *Worker) process(ctx context.Context, ev *queue.BlogCreatedEvent) {
	blog, err := w.blogs.GetBlogByID(ctx, ev.BlogID)
	if err != nil {
		logger.Errorf("[Worker] lookup blog %s failed: %v", ev.BlogID, err)
		return
	}
	if blog == nil {
		// 生产方保证过博客存在，查不到说明删除竞态或数据损坏，不重试
		logger.Errorf("[Worker] blog %s not found, event dropped", ev.BlogID)
		return
	}

	m, err := w.markers.CreateMarker(ctx, blog)
	if err != nil {
		logger.Errorf("[Worker] create marker for blog %s failed: %v", ev.BlogID, err)
		return
	}

	if err := w.bus.Publish(ctx, m); err != nil {
		// marker 已落库：推送丢了也能靠客户端拉取补回
		logger.Errorf("[Worker] publish marker v%d failed: %v", m.Version, err)
		return
	}
	logger.Infof("[Worker] marker v%d published for blog %s", m.Version, blog.BlogID)
}

func (w *Worker) sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
