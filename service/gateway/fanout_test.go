package gateway

import (
	"testing"
	"time"

	notifymodel "BProject/module/notify/model"
)

func mk(version int64) *notifymodel.Marker {
	return &notifymodel.Marker{Version: version}
}

func recv(t *testing.T, l *Listener, timeout time.Duration) *notifymodel.Marker {
	t.Helper()
	select {
	case m := <-l.C():
		return m
	case <-time.After(timeout):
		return nil
	}
}

func TestFanoutCursorFilter(t *testing.T) {
	f := NewFanout(1, 16)
	l := f.Add(2, 8)
	defer f.Remove(l.ID)

	f.Publish(mk(1))
	f.Publish(mk(2))
	f.Publish(mk(3))

	m := recv(t, l, time.Second)
	if m == nil {
		t.Fatal("expected marker v3, got nothing")
	}
	if m.Version != 3 {
		t.Fatalf("expected v3, got v%d", m.Version)
	}
	if m.Cursor != 3 {
		t.Fatalf("expected cursor=3 on feed payload, got %d", m.Cursor)
	}
	if extra := recv(t, l, 100*time.Millisecond); extra != nil {
		t.Fatalf("unexpected extra marker v%d", extra.Version)
	}
}

func TestFanoutDuplicateDelivery(t *testing.T) {
	f := NewFanout(1, 16)
	l := f.Add(0, 8)
	defer f.Remove(l.ID)

	// 总线重连对账和实时推送赛跑时，同一个 marker 可能到两次
	f.Publish(mk(7))
	f.Publish(mk(7))

	if m := recv(t, l, time.Second); m == nil || m.Version != 7 {
		t.Fatalf("expected v7 once, got %v", m)
	}
	if extra := recv(t, l, 100*time.Millisecond); extra != nil {
		t.Fatalf("duplicate v%d delivered twice", extra.Version)
	}
}

func TestFanoutOutOfOrderDelivery(t *testing.T) {
	f := NewFanout(1, 16)
	l := f.Add(0, 8)
	defer f.Remove(l.ID)

	// 多实例并发发布时总线天然乱序；两条都要到，排序交给客户端合并
	f.Publish(mk(2))
	f.Publish(mk(1))

	if m := recv(t, l, time.Second); m == nil || m.Version != 2 {
		t.Fatalf("expected v2 first, got %v", m)
	}
	if m := recv(t, l, time.Second); m == nil || m.Version != 1 {
		t.Fatalf("out-of-order v1 must still be delivered, got %v", m)
	}
}

func TestFanoutSlowListenerRetry(t *testing.T) {
	f := NewFanout(1, 16)
	l := f.Add(0, 1)
	defer f.Remove(l.ID)

	// 通道容量 1：v2 第一次被跳过，但不能被记成已投
	l.send(mk(1))
	l.send(mk(2))

	if m := recv(t, l, time.Second); m == nil || m.Version != 1 {
		t.Fatalf("expected v1, got %v", m)
	}
	l.send(mk(2))
	if m := recv(t, l, time.Second); m == nil || m.Version != 2 {
		t.Fatalf("skipped v2 must be deliverable on retry, got %v", m)
	}
}

func TestFanoutNoReplayForLateListener(t *testing.T) {
	f := NewFanout(1, 16)
	early := f.Add(0, 8)
	defer f.Remove(early.ID)

	f.Publish(mk(1))

	// 晚注册的 listener 看不到注册前的那次投递
	late := f.Add(0, 8)
	defer f.Remove(late.ID)

	f.Publish(mk(2))

	if m := recv(t, early, time.Second); m == nil || m.Version != 1 {
		t.Fatalf("early listener expected v1, got %v", m)
	}
	if m := recv(t, early, time.Second); m == nil || m.Version != 2 {
		t.Fatalf("early listener expected v2, got %v", m)
	}
	if m := recv(t, late, time.Second); m == nil || m.Version != 2 {
		t.Fatalf("late listener expected v2 only, got %v", m)
	}
	if extra := recv(t, late, 100*time.Millisecond); extra != nil {
		t.Fatalf("late listener received replayed v%d", extra.Version)
	}
}

func TestFanoutRemove(t *testing.T) {
	f := NewFanout(1, 16)
	l := f.Add(0, 8)

	if f.Size() != 1 {
		t.Fatalf("expected 1 listener, got %d", f.Size())
	}
	f.Remove(l.ID)
	if f.Size() != 0 {
		t.Fatalf("expected 0 listeners, got %d", f.Size())
	}

	select {
	case <-l.Done():
	case <-time.After(time.Second):
		t.Fatal("Done() not closed after Remove")
	}

	// 再次 Remove 幂等
	f.Remove(l.ID)
}
