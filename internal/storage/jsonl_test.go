package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"soondex/internal/model"
)

func TestJsonlRoundTripsEvents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "events.jsonl")
	s := NewJsonlStorage(path)

	events := []model.Event{
		{Seq: 1, Pool: "p", Name: model.EventTokensStaked, Timestamp: 10, Actor: "a", Decoded: map[string]uint64{"amount": 5}},
		{Seq: 2, Pool: "p", Name: model.EventRewardsClaimed, Timestamp: 11, Actor: "a", Decoded: map[string]uint64{"amount": 1}},
	}
	if err := s.PutEventBatch(context.Background(), events[:1]); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.PutEventBatch(context.Background(), events[1:]); err != nil {
		t.Fatalf("put: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	recs, err := ReadEventRecords(f)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(recs) != 2 || recs[0].Seq != 1 || recs[1].Name != model.EventRewardsClaimed {
		t.Fatalf("records = %+v", recs)
	}
	var payload map[string]uint64
	if err := json.Unmarshal(recs[0].Decoded, &payload); err != nil || payload["amount"] != 5 {
		t.Fatalf("payload = %s (%v)", recs[0].Decoded, err)
	}
}

func TestBufferAndMulti(t *testing.T) {
	var a, b Buffer
	sink := Multi{&a, &b, Discard{}}
	if err := sink.PutEventBatch(context.Background(), []model.Event{{Seq: 1}}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if len(a.Events()) != 1 || len(b.Drain()) != 1 || len(b.Events()) != 0 {
		t.Fatalf("fan-out mismatch")
	}
}
