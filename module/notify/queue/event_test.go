package queue

import (
	"encoding/json"
	"testing"
	"time"
)

func TestEventValidate(t *testing.T) {
	now := time.Now()
	cases := []struct {
		name string
		ev   BlogCreatedEvent
		ok   bool
	}{
		{"valid", BlogCreatedEvent{BlogID: "b1", Title: "t", AuthorID: "u1", CreatedAt: now}, true},
		{"missing blog id", BlogCreatedEvent{AuthorID: "u1", CreatedAt: now}, false},
		{"missing author id", BlogCreatedEvent{BlogID: "b1", CreatedAt: now}, false},
		{"missing created_at", BlogCreatedEvent{BlogID: "b1", AuthorID: "u1"}, false},
	}
	for _, tc := range cases {
		err := tc.ev.Validate()
		if tc.ok && err != nil {
			t.Errorf("%s: unexpected error %v", tc.name, err)
		}
		if !tc.ok && err == nil {
			t.Errorf("%s: expected error, got nil", tc.name)
		}
	}
}

func TestEventJSONStable(t *testing.T) {
	ev := BlogCreatedEvent{
		BlogID:    "b1",
		Title:     "Intro",
		AuthorID:  "u1",
		CreatedAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
	b, err := json.Marshal(&ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got BlogCreatedEvent
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.BlogID != ev.BlogID || got.AuthorID != ev.AuthorID {
		t.Fatalf("ids lost in roundtrip: %+v", got)
	}
	if !got.CreatedAt.Equal(ev.CreatedAt) {
		t.Fatalf("created_at lost in roundtrip: %v", got.CreatedAt)
	}
	if err := got.Validate(); err != nil {
		t.Fatalf("roundtripped event invalid: %v", err)
	}
}
