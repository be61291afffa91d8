package model

import "testing"

func TestStatusRank(t *testing.T) {
	if StatusPending.Rank() != 0 || StatusDelivered.Rank() != 1 || StatusSeen.Rank() != 2 {
		t.Fatal("rank order broken")
	}
	if Status("bogus").Rank() != -1 {
		t.Fatal("unknown status should rank -1")
	}
}

func TestStatusCanAdvanceTo(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusDelivered, true},
		{StatusPending, StatusSeen, true},
		{StatusDelivered, StatusSeen, true},
		{StatusDelivered, StatusPending, false},
		{StatusSeen, StatusDelivered, false},
		{StatusSeen, StatusSeen, false},
		{StatusPending, StatusPending, false},
		{StatusPending, Status("bogus"), false},
	}
	for _, c := range cases {
		if got := c.from.CanAdvanceTo(c.to); got != c.want {
			t.Fatalf("%s -> %s = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}
