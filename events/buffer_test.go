package events

import "testing"

func TestBuffer_OverflowDiscardsOldest(t *testing.T) {
	b := NewBuffer(map[Class]int{Class1: 2})

	b.Add(Event{Index: 1, Class: Class1})
	b.Add(Event{Index: 2, Class: Class1})
	if b.Overflow() {
		t.Fatal("overflow latched before capacity was exceeded")
	}

	b.Add(Event{Index: 3, Class: Class1})
	if !b.Overflow() {
		t.Fatal("expected overflow after exceeding capacity")
	}
	if b.Count(Class1) != 2 {
		t.Fatalf("expected 2 buffered events, got %d", b.Count(Class1))
	}

	got := b.Select(Class1, 10)
	if len(got) != 2 || got[0].Index != 2 || got[1].Index != 3 {
		t.Fatalf("expected oldest-discarded FIFO [2,3], got %+v", got)
	}
}

func TestBuffer_SelectDoesNotRemove(t *testing.T) {
	b := NewBuffer(map[Class]int{Class1: 10})
	b.Add(Event{Index: 1, Class: Class1})
	b.Add(Event{Index: 2, Class: Class1})

	first := b.Select(Class1, 10)
	if len(first) != 2 {
		t.Fatalf("expected 2 events selected, got %d", len(first))
	}

	second := b.Select(Class1, 10)
	if len(second) != 2 {
		t.Fatalf("select should be idempotent without a matching Remove, got %d", len(second))
	}

	b.Remove(first)
	if b.Count(Class1) != 0 {
		t.Fatalf("expected 0 events after Remove, got %d", b.Count(Class1))
	}
}

func TestBuffer_SelectAllRespectsClassOrderAndMax(t *testing.T) {
	b := NewBuffer(map[Class]int{Class1: 10, Class2: 10})
	b.Add(Event{Index: 1, Class: Class2})
	b.Add(Event{Index: 2, Class: Class1})
	b.Add(Event{Index: 3, Class: Class1})

	got := b.SelectAll([]Class{Class1, Class2}, 2)
	if len(got) != 2 {
		t.Fatalf("expected max 2 events, got %d", len(got))
	}
	if got[0].Class != Class1 || got[1].Class != Class1 {
		t.Fatalf("expected class 1 events exhausted before class 2, got %+v", got)
	}
}

func TestBuffer_ClearResetsOverflowAndCounts(t *testing.T) {
	b := NewBuffer(map[Class]int{Class1: 1})
	b.Add(Event{Index: 1, Class: Class1})
	b.Add(Event{Index: 2, Class: Class1})
	if !b.Overflow() {
		t.Fatal("expected overflow before Clear")
	}

	b.Clear()
	if b.Overflow() || b.Pending() {
		t.Fatalf("Clear should reset overflow and pending state")
	}
}

func TestBuffer_DisabledClassDiscardsSilently(t *testing.T) {
	b := NewBuffer(map[Class]int{Class1: 10})
	b.Add(Event{Index: 1, Class: Class3})
	if b.Count(Class3) != 0 || b.Pending() {
		t.Fatalf("events for a zero-capacity class must not be buffered")
	}
}
