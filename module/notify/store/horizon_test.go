package store

import (
	"testing"
	"time"

	usermodel "BProject/module/user/model"
)

// 注册水位：比注册早 2s 的博客不可见，注册后 1ms 的可见；
// 过滤条件是严格大于 horizon（注册时间 - 1s）。
func TestHorizonTime(t *testing.T) {
	reg := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	u := &usermodel.User{UserID: "u1", CreateTime: reg}

	h := horizonTime(u)
	if !h.Equal(reg.Add(-time.Second)) {
		t.Fatalf("expected horizon = registration - 1s, got %v", h)
	}

	// $gt 语义：创建时间必须严格晚于 horizon 才可见
	tooOld := reg.Add(-2 * time.Second)
	if tooOld.After(h) {
		t.Fatal("blog created 2s before registration must be filtered out")
	}
	justAfter := reg.Add(time.Millisecond)
	if !justAfter.After(h) {
		t.Fatal("blog created 1ms after registration must be visible")
	}
	// 恰好落在水位上的不可见（严格大于）
	onBoundary := reg.Add(-time.Second)
	if onBoundary.After(h) {
		t.Fatal("blog created exactly on the horizon must be filtered out")
	}
}
