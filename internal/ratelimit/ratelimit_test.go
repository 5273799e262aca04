package ratelimit

import "testing"

func TestAllowWithinBurst(t *testing.T) {
	l := New(1, 3)
	for i := 0; i < 3; i++ {
		if !l.Allow("1.2.3.4") {
			t.Fatalf("request %d within burst rejected", i)
		}
	}
	if l.Allow("1.2.3.4") {
		t.Fatalf("request beyond burst allowed")
	}
}

func TestKeysAreIndependent(t *testing.T) {
	l := New(1, 1)
	if !l.Allow("a") {
		t.Fatalf("first request for a rejected")
	}
	if !l.Allow("b") {
		t.Fatalf("first request for b rejected")
	}
}

func TestDisabled(t *testing.T) {
	l := New(0, 0)
	for i := 0; i < 100; i++ {
		if !l.Allow("x") {
			t.Fatalf("disabled limiter rejected request")
		}
	}
	var nilLimiter *Limiter
	if !nilLimiter.Allow("x") {
		t.Fatalf("nil limiter rejected request")
	}
}
