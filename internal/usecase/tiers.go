package usecase

import "sort"

// Tier binds one price point to the resources that price unlocks on its own.
// Effective entitlement for tier n is the union of resources of tiers 1..n,
// so a higher tier is always a superset of every lower one.
type Tier struct {
	Number    int
	Price     int64
	Resources []string
}

// TierTable resolves payment amounts to tiers and tiers to resource sets.
// Resolution is an exact match on price, no tolerance or rounding.
type TierTable struct {
	tiers []Tier // sorted by Number ascending
}

func NewTierTable(tiers []Tier) *TierTable {
	sorted := make([]Tier, len(tiers))
	copy(sorted, tiers)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Number < sorted[j].Number })
	return &TierTable{tiers: sorted}
}

// Resolve maps an amount to its tier. The second return is false when no
// configured price matches exactly.
func (t *TierTable) Resolve(amount int64) (int, bool) {
	for _, tier := range t.tiers {
		if tier.Price == amount {
			return tier.Number, true
		}
	}
	return 0, false
}

// Resources returns the ordered, de-duplicated union of resources for tiers
// 1..n. Order follows tier order, then configuration order within a tier.
func (t *TierTable) Resources(n int) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, tier := range t.tiers {
		if tier.Number > n {
			break
		}
		for _, r := range tier.Resources {
			if _, dup := seen[r]; dup {
				continue
			}
			seen[r] = struct{}{}
			out = append(out, r)
		}
	}
	return out
}
