package decode

import (
	"testing"
	"time"
)

type sample struct {
	ID        string    `json:"id"`
	Count     int64     `json:"count"`
	CreatedAt time.Time `json:"createdAt"`
}

func TestDecodeJSONTimeHook(t *testing.T) {
	data := []byte(`{"id":"a1","count":3,"createdAt":"2024-05-01T10:00:00.500Z"}`)
	got, err := DecodeJSON[sample](data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if got.ID != "a1" || got.Count != 3 {
		t.Fatalf("fields lost: %+v", got)
	}
	want := time.Date(2024, 5, 1, 10, 0, 0, 500_000_000, time.UTC)
	if !got.CreatedAt.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got.CreatedAt)
	}
}

func TestDecodeJSONWeakInt(t *testing.T) {
	// 宽松解码：count 传字符串照样还原成 int64
	got, err := DecodeJSON[sample]([]byte(`{"id":"a1","count":"42","createdAt":"2024-05-01T10:00:00Z"}`))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if got.Count != 42 {
		t.Fatalf("expected count 42, got %d", got.Count)
	}
}

func TestDecodeJSONBadTime(t *testing.T) {
	_, err := DecodeJSON[sample]([]byte(`{"id":"a1","count":1,"createdAt":"yesterday"}`))
	if err == nil {
		t.Fatal("expected error for invalid timestamp")
	}
}

func TestDecodeMapNil(t *testing.T) {
	if _, err := DecodeMap[sample](nil); err == nil {
		t.Fatal("expected error for nil map")
	}
}
