//go:build !integration

package conversation

import (
	"sync"
	"testing"
)

func TestRegistry_ArmDisarm(t *testing.T) {
	r := NewRegistry()

	if r.IsArmed(42) {
		t.Fatal("fresh registry should not report user as armed")
	}
	g1 := r.Arm(42)
	if !r.IsArmed(42) || !r.IsCurrent(42, g1) {
		t.Fatal("expected user 42 armed under first generation")
	}

	g2 := r.Arm(42)
	if g2 <= g1 {
		t.Fatalf("generation must grow: %d -> %d", g1, g2)
	}
	if r.IsCurrent(42, g1) {
		t.Fatal("superseded generation still reported current")
	}
	if r.DisarmIf(42, g1) {
		t.Fatal("stale generation must not clear the flag")
	}
	if !r.IsArmed(42) {
		t.Fatal("stale DisarmIf cleared the live session")
	}

	if gen, ok := r.Armed(42); !ok || gen != g2 {
		t.Fatalf("Armed = %d, %v; want %d, true", gen, ok, g2)
	}

	if !r.DisarmIf(42, g2) {
		t.Fatal("current generation should clear the flag")
	}
	if _, ok := r.Armed(42); ok {
		t.Fatal("Armed reports a cleared session")
	}
	if r.DisarmIf(42, g2) {
		t.Fatal("second DisarmIf must report it did nothing")
	}
	if r.Generation(42) != g2 {
		t.Fatalf("generation should survive disarm, got %d", r.Generation(42))
	}
}

func TestRegistry_DisarmIsIdempotent(t *testing.T) {
	r := NewRegistry()
	r.Arm(7)

	r.Disarm(42) // never armed
	r.Disarm(42)
	if !r.IsArmed(7) {
		t.Fatal("disarming user 42 affected user 7")
	}

	r.Disarm(7)
	r.Disarm(7)
	if r.IsArmed(7) {
		t.Fatal("user 7 still armed")
	}
}

func TestRegistry_ConcurrentArm(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	gens := make(chan uint64, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			gens <- r.Arm(1)
		}()
	}
	wg.Wait()
	close(gens)

	seen := map[uint64]bool{}
	for g := range gens {
		if seen[g] {
			t.Fatalf("generation %d handed out twice", g)
		}
		seen[g] = true
	}
	if r.Generation(1) != 100 {
		t.Fatalf("expected generation 100, got %d", r.Generation(1))
	}
}
