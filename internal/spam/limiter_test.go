package spam

import "testing"

func TestLimiter_AllowsWithinLimit(t *testing.T) {
	l := New(2, 100, 60_000, 300_000)
	if err := l.Allow("alice", 1000); err != nil {
		t.Fatalf("first admit: %v", err)
	}
	if err := l.Allow("alice", 1001); err != nil {
		t.Fatalf("second admit: %v", err)
	}
}

func TestLimiter_BansOnExceedingPerSenderLimit(t *testing.T) {
	l := New(2, 100, 60_000, 300_000)
	l.Allow("alice", 1000)
	l.Allow("alice", 1001)
	if err := l.Allow("alice", 1002); err == nil {
		t.Fatalf("expected rejection on exceeding per-sender limit")
	}
	if !l.IsBanned("alice", 1002) {
		t.Errorf("expected alice banned after exceeding limit")
	}
}

func TestLimiter_BanIsolatedPerSender(t *testing.T) {
	l := New(1, 100, 60_000, 300_000)
	l.Allow("alice", 1000)
	if err := l.Allow("alice", 1001); err == nil {
		t.Fatalf("expected alice banned")
	}
	if err := l.Allow("bob", 1001); err != nil {
		t.Errorf("bob should be unaffected by alice's ban: %v", err)
	}
}

func TestLimiter_BanExpires(t *testing.T) {
	l := New(1, 100, 60_000, 300_000)
	l.Allow("alice", 1000)
	l.Allow("alice", 1001) // triggers ban until 1001+300000

	if err := l.Allow("alice", 301_001); err != nil {
		t.Errorf("expected ban expired by now, got %v", err)
	}
}

func TestLimiter_GlobalLimit(t *testing.T) {
	l := New(1000, 2, 60_000, 300_000)
	l.Allow("a", 1000)
	l.Allow("b", 1001)
	if err := l.Allow("c", 1002); err == nil {
		t.Fatalf("expected global limit rejection")
	}
}

func TestLimiter_Cleanup_RemovesStaleEntries(t *testing.T) {
	l := New(2, 100, 60_000, 300_000)
	l.Allow("alice", 1000)
	removed := l.Cleanup(1000 + 60_000 + 1)
	if removed != 1 {
		t.Errorf("expected 1 removed, got %d", removed)
	}
}
