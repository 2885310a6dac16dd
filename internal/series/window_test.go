package series

import (
	"testing"
	"time"
)

func TestPages(t *testing.T) {
	syms := []string{"A", "B", "C", "D", "E"}

	pages := Pages(syms, 2)
	if len(pages) != 3 {
		t.Fatalf("pages = %d, want 3", len(pages))
	}
	if len(pages[2]) != 1 || pages[2][0] != "E" {
		t.Errorf("last page = %v", pages[2])
	}

	// Non-positive size keeps everything on one page.
	if pages = Pages(syms, 0); len(pages) != 1 || len(pages[0]) != 5 {
		t.Errorf("perPage 0: %v", pages)
	}
}

func TestRotatorSelectClamps(t *testing.T) {
	var changes []int
	r := NewRotator(3, 0, func(p int) { changes = append(changes, p) })

	r.Select(10)
	if r.Active() != 2 {
		t.Errorf("Active = %d, want clamped to 2", r.Active())
	}
	r.Select(-5)
	if r.Active() != 0 {
		t.Errorf("Active = %d, want clamped to 0", r.Active())
	}
	if len(changes) != 2 {
		t.Errorf("changes = %v, want two notifications", changes)
	}

	// Selecting the current page fires nothing.
	r.Select(0)
	if len(changes) != 2 {
		t.Errorf("no-op select notified: %v", changes)
	}
}

func TestRotatorSetPagesKeepsActiveInRange(t *testing.T) {
	r := NewRotator(5, 0, nil)
	r.Select(4)
	r.SetPages(2)
	if r.Active() != 1 {
		t.Errorf("Active = %d, want 1 after shrink", r.Active())
	}
	r.SetPages(0)
	if r.Active() != 0 {
		t.Errorf("Active = %d, want 0 with no pages", r.Active())
	}
}

func TestRotatorRotates(t *testing.T) {
	changed := make(chan int, 10)
	r := NewRotator(2, 5*time.Millisecond, func(p int) { changed <- p })
	r.Start()
	defer r.Stop()

	select {
	case p := <-changed:
		if p != 1 {
			t.Errorf("first rotation landed on %d, want 1", p)
		}
	case <-time.After(time.Second):
		t.Fatal("rotation never fired")
	}
}

func TestRotatorStopIdempotent(t *testing.T) {
	r := NewRotator(2, time.Millisecond, nil)
	r.Start()
	r.Stop()
	r.Stop()

	// Single page never rotates.
	r2 := NewRotator(1, time.Millisecond, func(int) { t.Error("single page rotated") })
	r2.Start()
	time.Sleep(10 * time.Millisecond)
	r2.Stop()
}
