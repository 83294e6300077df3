package util

import (
	"testing"
	"time"
)

func TestSkipThrottler(t *testing.T) {
	t.Parallel()
	tt := NewSkipThrottler(time.Hour)
	if !tt.Ok() {
		t.Fatalf("first call should pass")
	}
	for i := range 3 {
		if tt.Ok() {
			t.Fatalf("%d", i)
		}
	}

	tt = NewSkipThrottler(0)
	for i := range 3 {
		if !tt.Ok() {
			t.Fatalf("%d", i)
		}
	}
}
