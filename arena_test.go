package timerq

import "testing"

func TestTimerArena_AllocResolve(t *testing.T) {
	t.Parallel()

	var a timerArena

	t1 := &timer{id: 1}
	t2 := &timer{id: 2}
	h1 := a.alloc(t1)
	h2 := a.alloc(t2)

	if got := a.resolve(h1); got != t1 {
		t.Fatalf("resolve(h1) = %v, want %v", got, t1)
	}
	if got := a.resolve(h2); got != t2 {
		t.Fatalf("resolve(h2) = %v, want %v", got, t2)
	}
	if got := a.live(); got != 2 {
		t.Fatalf("live() = %d, want 2", got)
	}
}

func TestTimerArena_ReleaseInvalidatesHandle(t *testing.T) {
	t.Parallel()

	var a timerArena

	h := a.alloc(&timer{id: 1})
	if !a.release(h) {
		t.Fatalf("release() = false, want true")
	}
	if a.release(h) {
		t.Fatalf("second release() = true, want false")
	}
	if got := a.resolve(h); got != nil {
		t.Fatalf("resolve() after release = %v, want nil", got)
	}
	if got := a.live(); got != 0 {
		t.Fatalf("live() = %d, want 0", got)
	}
}

func TestTimerArena_SlotReuseBumpsGeneration(t *testing.T) {
	t.Parallel()

	var a timerArena

	stale := a.alloc(&timer{id: 1})
	a.release(stale)

	fresh := a.alloc(&timer{id: 2})
	if fresh.slot != stale.slot {
		t.Fatalf("freed slot was not reused: got %d, want %d", fresh.slot, stale.slot)
	}
	if got := a.resolve(stale); got != nil {
		t.Fatalf("stale handle resolved to %v after slot reuse", got)
	}
	if got := a.resolve(fresh); got == nil || got.id != 2 {
		t.Fatalf("fresh handle resolved to %v", got)
	}
}

func TestTimerArena_ResolveOutOfRange(t *testing.T) {
	t.Parallel()

	var a timerArena

	if got := a.resolve(handle{slot: 0}); got != nil {
		t.Fatalf("resolve() on empty arena = %v, want nil", got)
	}
	if got := a.resolve(handle{slot: -1}); got != nil {
		t.Fatalf("resolve() with negative slot = %v, want nil", got)
	}
}
