package order

import (
	"regexp"
	"testing"
	"time"
)

func TestNewOrderNoShape(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	pattern := regexp.MustCompile(`^BB-2026-[0-9A-F]{6}$`)

	for i := 0; i < 50; i++ {
		no := newOrderNo(now)
		if !pattern.MatchString(no) {
			t.Fatalf("unexpected order number %q", no)
		}
	}
}

func TestNewOrderNoVaries(t *testing.T) {
	now := time.Now()
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		seen[newOrderNo(now)] = true
	}
	if len(seen) < 2 {
		t.Fatal("order numbers should vary between calls")
	}
}
