package bus

import (
	"strings"
	"testing"
	"time"

	notifymodel "BProject/module/notify/model"
)

func validMarker() *notifymodel.Marker {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &notifymodel.Marker{
		Version:   7,
		CreatedAt: now,
		Blog: notifymodel.BlogRef{
			ID:        "blog-1",
			Title:     "Intro",
			Content:   "hello",
			CreatedAt: now.Add(-time.Second),
			Author: notifymodel.AuthorRef{
				ID:       "user-1",
				Username: "alice",
			},
		},
	}
}

func TestEncodeDecodeRoundtrip(t *testing.T) {
	src := validMarker()
	data, err := EncodeMarker(src)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	// 线格式里时间是 ISO-8601 字符串
	if !strings.Contains(string(data), "createdAt") {
		t.Fatalf("wire payload missing createdAt: %s", data)
	}

	got, err := DecodeMarker(data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if got.Version != src.Version {
		t.Fatalf("version mismatch: %d != %d", got.Version, src.Version)
	}
	if got.Cursor != src.Version {
		t.Fatalf("feed cursor should equal version, got %d", got.Cursor)
	}
	if !got.CreatedAt.Equal(src.CreatedAt) {
		t.Fatalf("createdAt not reconstructed: %v != %v", got.CreatedAt, src.CreatedAt)
	}
	if !got.Blog.CreatedAt.Equal(src.Blog.CreatedAt) {
		t.Fatalf("blog createdAt not reconstructed: %v != %v", got.Blog.CreatedAt, src.Blog.CreatedAt)
	}
	if got.Blog.Author.Username != "alice" {
		t.Fatalf("author lost in roundtrip: %+v", got.Blog)
	}
}

func TestEncodeRejectsInvalid(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(m *notifymodel.Marker)
	}{
		{"non-positive version", func(m *notifymodel.Marker) { m.Version = 0 }},
		{"missing blog id", func(m *notifymodel.Marker) { m.Blog.ID = "" }},
		{"missing author", func(m *notifymodel.Marker) { m.Blog.Author.ID = "" }},
		{"zero timestamp", func(m *notifymodel.Marker) { m.CreatedAt = time.Time{} }},
	}
	for _, tc := range cases {
		m := validMarker()
		tc.mutate(m)
		if _, err := EncodeMarker(m); err == nil {
			t.Errorf("%s: expected encode error, got nil", tc.name)
		}
	}
}

func TestDecodeRejectsBadPayload(t *testing.T) {
	if _, err := DecodeMarker([]byte("not json")); err == nil {
		t.Fatal("expected error for malformed json")
	}
	// 结构合法但契约不满足：version 缺失
	if _, err := DecodeMarker([]byte(`{"blog":{"id":"b1"}}`)); err == nil {
		t.Fatal("expected error for payload without version")
	}
	// 时间戳不是合法 ISO-8601
	bad := `{"markerVersion":1,"createdAt":"yesterday","blog":{"id":"b1","createdAt":"2024-01-01T00:00:00Z","author":{"id":"u1","username":"a"}}}`
	if _, err := DecodeMarker([]byte(bad)); err == nil {
		t.Fatal("expected error for invalid timestamp")
	}
}

func TestDecodeWeakTyping(t *testing.T) {
	// 宽松解码：数字字符串照样还原成 int64
	payload := `{"markerVersion":"42","createdAt":"2024-05-01T10:00:00Z","blog":{"id":"b1","title":"t","content":"c","createdAt":"2024-05-01T09:59:59Z","author":{"id":"u1","username":"a"}}}`
	m, err := DecodeMarker([]byte(payload))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if m.Version != 42 {
		t.Fatalf("expected version 42, got %d", m.Version)
	}
}
