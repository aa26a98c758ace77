package monitor

import (
	"errors"
	"testing"
)

func TestRegistry_ListenReceivesEmittedEvents(t *testing.T) {
	r := NewRegistry()
	var got []Event
	r.Listen(func(e Event) { got = append(got, e) })

	r.Init()
	r.NoIndex()
	r.NotValidIndex()
	r.Rebuilding()
	r.Rebuilt(42)
	r.RecoveryCleanup(nil)

	wantKinds := []Kind{KindInit, KindNoIndex, KindNotValidIndex, KindRebuilding, KindRebuilt, KindRecoveryCleanup}
	if len(got) != len(wantKinds) {
		t.Fatalf("got %d events, want %d", len(got), len(wantKinds))
	}
	for i, k := range wantKinds {
		if got[i].Kind != k {
			t.Fatalf("event %d kind = %v, want %v", i, got[i].Kind, k)
		}
	}
	if got[4].Count != 42 {
		t.Fatalf("Rebuilt event Count = %d, want 42", got[4].Count)
	}
}

func TestRegistry_RebuiltWithSummaryCarriesPayload(t *testing.T) {
	r := NewRegistry()
	var got Event
	r.Listen(func(e Event) { got = e })

	payload := []byte{1, 2, 3}
	r.RebuiltWithSummary(7, payload)

	if got.Kind != KindRebuilt || got.Count != 7 {
		t.Fatalf("got = %+v, want Kind=KindRebuilt Count=7", got)
	}
	if string(got.Payload) != string(payload) {
		t.Fatalf("Payload = %v, want %v", got.Payload, payload)
	}
}

func TestRegistry_RecoveryCleanupCarriesError(t *testing.T) {
	r := NewRegistry()
	var got Event
	r.Listen(func(e Event) { got = e })

	boom := errors.New("cleanup failed")
	r.RecoveryCleanup(boom)

	if got.Kind != KindRecoveryCleanup || got.Err != boom {
		t.Fatalf("got = %+v, want Kind=KindRecoveryCleanup Err=%v", got, boom)
	}
}

func TestRegistry_MultipleListenersAllFire(t *testing.T) {
	r := NewRegistry()
	var a, b int
	r.Listen(func(Event) { a++ })
	r.Listen(func(Event) { b++ })

	r.Init()
	r.Init()

	if a != 2 || b != 2 {
		t.Fatalf("a=%d b=%d, want both 2", a, b)
	}
}

func TestKind_StringCoversAllKinds(t *testing.T) {
	kinds := []Kind{KindInit, KindNoIndex, KindNotValidIndex, KindRebuilding, KindRebuilt, KindRecoveryCleanup, Kind(99)}
	for _, k := range kinds {
		if k.String() == "" {
			t.Fatalf("Kind(%d).String() returned empty", k)
		}
	}
}
