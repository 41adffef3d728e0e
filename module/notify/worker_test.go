package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	blogmodel "BProject/module/blog/model"
	notifymodel "BProject/module/notify/model"
	"BProject/module/notify/queue"
	"BProject/tools/errs"
)

type fakeQueue struct {
	mu     sync.Mutex
	events []*queue.BlogCreatedEvent
	acked  int
}

func (q *fakeQueue) Enqueue(_ context.Context, ev *queue.BlogCreatedEvent) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.events = append(q.events, ev)
	return nil
}

func (q *fakeQueue) Dequeue(_ context.Context, _ time.Duration) (*queue.BlogCreatedEvent, queue.AckFunc, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.events) == 0 {
		// 模拟有界阻塞超时
		time.Sleep(5 * time.Millisecond)
		return nil, nil, nil
	}
	ev := q.events[0]
	q.events = q.events[1:]
	return ev, func() {
		q.mu.Lock()
		q.acked++
		q.mu.Unlock()
	}, nil
}

func (q *fakeQueue) Close() error { return nil }

func (q *fakeQueue) ackCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.acked
}

type fakeStore struct {
	mu      sync.Mutex
	blogs   map[string]*blogmodel.Blog
	next    int64
	created []int64
	fail    bool
}

func (s *fakeStore) GetBlogByID(_ context.Context, blogID string) (*blogmodel.Blog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blogs[blogID], nil
}

func (s *fakeStore) CreateMarker(_ context.Context, blog *blogmodel.Blog) (*notifymodel.Marker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return nil, errs.New("store down")
	}
	s.next++
	s.created = append(s.created, s.next)
	return &notifymodel.Marker{
		Version:   s.next,
		CreatedAt: time.Now(),
		Blog: notifymodel.BlogRef{
			ID:        blog.BlogID,
			Title:     blog.Title,
			CreatedAt: blog.CreateTime,
			Author:    notifymodel.AuthorRef{ID: blog.AuthorID, Username: "tester"},
		},
	}, nil
}

func (s *fakeStore) createdVersions() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int64, len(s.created))
	copy(out, s.created)
	return out
}

type fakeBus struct {
	mu        sync.Mutex
	published []*notifymodel.Marker
}

func (b *fakeBus) Publish(_ context.Context, m *notifymodel.Marker) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, m)
	return nil
}

func (b *fakeBus) publishedCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.published)
}

func event(blogID string) *queue.BlogCreatedEvent {
	return &queue.BlogCreatedEvent{
		BlogID:    blogID,
		Title:     "t",
		AuthorID:  "u1",
		CreatedAt: time.Now(),
	}
}

func blogDoc(blogID string) *blogmodel.Blog {
	return &blogmodel.Blog{
		BlogID:     blogID,
		Title:      "t",
		AuthorID:   "u1",
		CreateTime: time.Now(),
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestWorkerProcessesEvents(t *testing.T) {
	q := &fakeQueue{}
	store := &fakeStore{blogs: map[string]*blogmodel.Blog{
		"b1": blogDoc("b1"),
		"b2": blogDoc("b2"),
	}}
	b := &fakeBus{}

	_ = q.Enqueue(context.Background(), event("b1"))
	_ = q.Enqueue(context.Background(), event("b2"))

	w := NewWorker(q, store, store, b)
	w.Start(context.Background())

	waitFor(t, func() bool { return b.publishedCount() == 2 })
	w.Stop()

	versions := store.createdVersions()
	if len(versions) != 2 || versions[0] != 1 || versions[1] != 2 {
		t.Fatalf("expected versions [1 2], got %v", versions)
	}
	if q.ackCount() != 2 {
		t.Fatalf("expected 2 acks, got %d", q.ackCount())
	}
}

func TestWorkerDropsEventForMissingBlog(t *testing.T) {
	q := &fakeQueue{}
	store := &fakeStore{blogs: map[string]*blogmodel.Blog{
		"b2": blogDoc("b2"),
	}}
	b := &fakeBus{}

	// b1 不存在：事件被丢弃，不消耗版本号，循环继续处理 b2
	_ = q.Enqueue(context.Background(), event("b1"))
	_ = q.Enqueue(context.Background(), event("b2"))

	w := NewWorker(q, store, store, b)
	w.Start(context.Background())

	waitFor(t, func() bool { return b.publishedCount() == 1 })
	w.Stop()

	versions := store.createdVersions()
	if len(versions) != 1 || versions[0] != 1 {
		t.Fatalf("expected only version 1 consumed, got %v", versions)
	}
	if q.ackCount() != 2 {
		t.Fatalf("dropped event should still be acked, got %d acks", q.ackCount())
	}
}

func TestWorkerSurvivesStoreFailure(t *testing.T) {
	q := &fakeQueue{}
	store := &fakeStore{blogs: map[string]*blogmodel.Blog{"b1": blogDoc("b1")}, fail: true}
	b := &fakeBus{}

	_ = q.Enqueue(context.Background(), event("b1"))

	w := NewWorker(q, store, store, b)
	w.Start(context.Background())

	// 失败只记日志，worker 不退出；恢复后继续处理
	waitFor(t, func() bool { return q.ackCount() == 1 })

	store.mu.Lock()
	store.fail = false
	store.mu.Unlock()
	_ = q.Enqueue(context.Background(), event("b1"))

	waitFor(t, func() bool { return b.publishedCount() == 1 })
	w.Stop()
}

func TestWorkerStop(t *testing.T) {
	q := &fakeQueue{}
	store := &fakeStore{blogs: map[string]*blogmodel.Blog{}}
	b := &fakeBus{}

	w := NewWorker(q, store, store, b)
	w.Start(context.Background())

	done := make(chan struct{})
	go func() {
		w.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop in time")
	}
}
