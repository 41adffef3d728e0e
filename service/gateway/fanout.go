package gateway

import (
	"sync"

	"BProject/logger"
	notifymodel "BProject/module/notify/model"
	"BProject/tools/ids"
)

// Listener 一条在线订阅。cursor 是注册时带的增量过滤水位（0 = 全收）。
// 总线在多实例并发发布下本来就可能乱序到达：乱序但没见过的 version 照常投递，
// 排序交给客户端按 markerVersion 合并；只有完全相同的 version
// （总线重连对账和实时推送赛跑）去重。seen 只保留最近一个窗口，
// 更老的重复同样靠客户端合并兜底。
type Listener struct {
	ID     string
	cursor int64

	mu      sync.Mutex
	seen    map[int64]struct{}
	maxSeen int64

	ch   chan *notifymodel.Marker
	done chan struct{}
}

// C 订阅方消费的只读通道。
func (l *Listener) C() <-chan *notifymodel.Marker { return l.ch }

// Done Remove 之后会被 close；订阅方 select 它退出消费循环。
func (l *Listener) Done() <-chan struct{} { return l.done }

type fanoutJob struct {
	listeners []*Listener
	marker    *notifymodel.Marker
}

// Fanout 单进程内的多播：总线订阅端收到一条 marker，投给本实例
// 所有在线 listener。不缓冲不重放：注册晚于某次投递的 listener 看不到那次投递。
type Fanout struct {
	mu        sync.RWMutex
	listeners map[string]*Listener
	jobs      chan fanoutJob
}

func NewFanout(workers, queue int) *Fanout {
	if workers <= 0 {
		workers = 2
	}
	if queue <= 0 {
		queue = 1024
	}
	f := &Fanout{
		listeners: make(map[string]*Listener),
		jobs:      make(chan fanoutJob, queue),
	}
	for i := 0; i < workers; i++ {
		go func() {
			for job := range f.jobs {
				for _, l := range job.listeners {
					l.send(job.marker)
				}
			}
		}()
	}
	return f
}

// Add 注册一条 listener；cursor<0 视为 0。
func (f *Fanout) Add(cursor int64, buf int) *Listener {
	if cursor < 0 {
		cursor = 0
	}
	if buf <= 0 {
		buf = 64
	}
	l := &Listener{
		ID:     ids.GenerateString(),
		cursor: cursor,
		seen:   make(map[int64]struct{}),
		ch:     make(chan *notifymodel.Marker, buf),
		done:   make(chan struct{}),
	}
	f.mu.Lock()
	f.listeners[l.ID] = l
	f.mu.Unlock()
	return l
}

func (f *Fanout) Remove(id string) {
	f.mu.Lock()
	l, ok := f.listeners[id]
	if ok {
		delete(f.listeners, id)
	}
	f.mu.Unlock()
	// 不 close 数据通道：扇出 worker 可能还在非阻塞投递；只关 done 信号
	if ok {
		close(l.done)
	}
}

// Publish 投给当前所有 listener；之后注册的收不到这条。
func (f *Fanout) Publish(m *notifymodel.Marker) {
	if m == nil {
		return
	}
	f.mu.RLock()
	if len(f.listeners) == 0 {
		f.mu.RUnlock()
		return
	}
	snapshot := make([]*Listener, 0, len(f.listeners))
	for _, l := range f.listeners {
		snapshot = append(snapshot, l)
	}
	f.mu.RUnlock()

	select {
	case f.jobs <- fanoutJob{listeners: snapshot, marker: m}:
	default:
		// 扇出队列打满：丢这一轮，客户端靠拉取对账补
		logger.Warnf("[Fanout] job queue full, dropped marker v%d", m.Version)
	}
}

func (f *Fanout) Size() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.listeners)
}

// seenWindow 去重集保留的 version 个数上限。
const seenWindow = 1024

func (l *Listener) send(m *notifymodel.Marker) {
	if m.Version <= l.cursor {
		return // 注册水位之下的不投
	}
	out := *m
	out.Cursor = m.Version

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.seen[m.Version]; ok {
		return // 同版本重复到达
	}
	select {
	case l.ch <- &out:
		// 投递成功才登记：通道打满被跳过的 version 之后还能补投
		l.seen[m.Version] = struct{}{}
		if m.Version > l.maxSeen {
			l.maxSeen = m.Version
		}
		if len(l.seen) > seenWindow {
			for v := range l.seen {
				if v <= l.maxSeen-seenWindow {
					delete(l.seen, v)
				}
			}
		}
	default:
		// Slow client: can be counted/disconnected; here we choose to skip
		logger.Debug("[Fanout] slow listener, marker skipped")
	}
}
