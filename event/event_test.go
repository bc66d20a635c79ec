package event

import "testing"

func TestQueueFIFO(t *testing.T) {
	q := NewQueue()
	q.Push(Event{Kind: KindCollect, ItemID: 1})
	q.Push(Event{Kind: KindCollect, ItemID: 2})
	q.Warn("unknown body %d", 7)

	got := q.Drain()
	if len(got) != 3 {
		t.Fatalf("drained %d events, want 3", len(got))
	}
	if got[0].ItemID != 1 || got[1].ItemID != 2 {
		t.Errorf("order not preserved: %+v", got)
	}
	if got[2].Kind != KindWarning || got[2].Text != "unknown body 7" {
		t.Errorf("warning = %+v", got[2])
	}
	if q.Len() != 0 {
		t.Errorf("queue not empty after drain: %d", q.Len())
	}
}

func TestDrainReusesBuffers(t *testing.T) {
	q := NewQueue()
	q.Push(Event{Kind: KindBounce})
	first := q.Drain()
	if len(first) != 1 {
		t.Fatalf("first drain = %d", len(first))
	}

	q.Push(Event{Kind: KindGameWon})
	second := q.Drain()
	if len(second) != 1 || second[0].Kind != KindGameWon {
		t.Errorf("second drain = %+v", second)
	}
	if len(q.Drain()) != 0 {
		t.Error("expected empty third drain")
	}
}

func TestKindString(t *testing.T) {
	if KindLevelComplete.String() != "level_complete" {
		t.Errorf("got %q", KindLevelComplete.String())
	}
	if Kind(200).String() != "kind(200)" {
		t.Errorf("got %q", Kind(200).String())
	}
}
