//go:build !integration

package usecase_test

import (
	"testing"

	"sheets-access-control/internal/usecase"
)

func newTable() *usecase.TierTable {
	return usecase.NewTierTable([]usecase.Tier{
		{Number: 2, Price: 199900, Resources: []string{"sheetB", "sheetA"}},
		{Number: 1, Price: 99900, Resources: []string{"sheetA"}},
	})
}

func TestTierTable_Resolve(t *testing.T) {
	table := newTable()

	cases := []struct {
		amount int64
		tier   int
		ok     bool
	}{
		{99900, 1, true},
		{199900, 2, true},
		{99901, 0, false},
		{12345, 0, false},
		{0, 0, false},
		{-99900, 0, false},
	}
	for _, c := range cases {
		tier, ok := table.Resolve(c.amount)
		if tier != c.tier || ok != c.ok {
			t.Errorf("Resolve(%d) = (%d, %v), want (%d, %v)", c.amount, tier, ok, c.tier, c.ok)
		}
	}
}

func TestTierTable_ResourcesAreMonotonic(t *testing.T) {
	table := newTable()

	tier1 := table.Resources(1)
	tier2 := table.Resources(2)

	if len(tier1) != 1 || tier1[0] != "sheetA" {
		t.Fatalf("tier 1 resources = %v, want [sheetA]", tier1)
	}
	// Tier 2 is a superset of tier 1, lower tiers first, duplicates collapsed.
	if len(tier2) != 2 || tier2[0] != "sheetA" || tier2[1] != "sheetB" {
		t.Fatalf("tier 2 resources = %v, want [sheetA sheetB]", tier2)
	}
	for _, r := range tier1 {
		found := false
		for _, r2 := range tier2 {
			if r == r2 {
				found = true
			}
		}
		if !found {
			t.Errorf("tier 2 is missing tier 1 resource %s", r)
		}
	}
}

func TestTierTable_UnknownTierIsEmpty(t *testing.T) {
	table := usecase.NewTierTable(nil)
	if got := table.Resources(1); len(got) != 0 {
		t.Errorf("expected no resources, got %v", got)
	}
	if _, ok := table.Resolve(99900); ok {
		t.Error("empty table must resolve nothing")
	}
}
