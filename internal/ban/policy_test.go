package ban

import (
	"testing"
	"time"
)

func TestStrike_BelowLimitAccumulates(t *testing.T) {
	p := Policy{Limit: 2, Window: 4 * time.Hour}

	count, banned := p.Strike(0)
	if banned || count != 1 {
		t.Errorf("Strike(0) = (%d, %v), want (1, false)", count, banned)
	}
	count, banned = p.Strike(1)
	if banned || count != 2 {
		t.Errorf("Strike(1) = (%d, %v), want (2, false)", count, banned)
	}
}

func TestStrike_ExceedingLimitBansAndResets(t *testing.T) {
	p := Policy{Limit: 2, Window: 4 * time.Hour}

	count, banned := p.Strike(2)
	if !banned {
		t.Fatal("Strike(2) with limit=2 should ban")
	}
	if count != 0 {
		t.Errorf("strike count after ban = %d, want 0", count)
	}
}

func TestStrike_ZeroLimitBansImmediately(t *testing.T) {
	p := Policy{Limit: 0, Window: time.Hour}

	count, banned := p.Strike(0)
	if !banned || count != 0 {
		t.Errorf("Strike(0) with limit=0 = (%d, %v), want (0, true)", count, banned)
	}
}

func TestExpired(t *testing.T) {
	p := Policy{Limit: 2, Window: 4 * time.Hour}
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		elapsed time.Duration
		want    bool
	}{
		{0, false},
		{time.Hour, false},
		{4*time.Hour - time.Second, false},
		{4 * time.Hour, true},
		{5 * time.Hour, true},
	}
	for _, tc := range cases {
		if got := p.Expired(start, start.Add(tc.elapsed)); got != tc.want {
			t.Errorf("Expired after %s = %v, want %v", tc.elapsed, got, tc.want)
		}
	}
}
