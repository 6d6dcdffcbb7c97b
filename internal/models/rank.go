package models

import "sort"

// Ranked is a child whose position in its collection is stored explicitly.
type Ranked interface {
	Rank() int
	SetRank(rank int)
}

// ReindexRankOrder rewrites ranks to 1..N. Items keep their relative order by
// current rank (ties by slice position) and unranked items follow in slice
// order. The slice itself is not reordered.
func ReindexRankOrder[T Ranked](items []T) {
	idx := make([]int, len(items))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ra, rb := items[idx[a]].Rank(), items[idx[b]].Rank()
		switch {
		case ra <= 0:
			return false
		case rb <= 0:
			return true
		default:
			return ra < rb
		}
	})
	for pos, i := range idx {
		items[i].SetRank(pos + 1)
	}
}

// FillRankOrder assigns max+1, max+2... to items without a rank and leaves
// existing ranks alone.
func FillRankOrder[T Ranked](items []T) {
	maxRank := 0
	for _, it := range items {
		if it.Rank() > maxRank {
			maxRank = it.Rank()
		}
	}
	for _, it := range items {
		if it.Rank() <= 0 {
			maxRank++
			it.SetRank(maxRank)
		}
	}
}

// ReindexRanks normalizes every ranked collection of the calendar.
func (c *Calendar) ReindexRanks() {
	ReindexRankOrder(c.GearUseFeatures)
	ReindexRankOrder(c.GearPhysicalFeatures)
	ReindexRankOrder(c.Images)
}

// FillRanks fills missing ranks of every ranked collection.
func (c *Calendar) FillRanks() {
	FillRankOrder(c.GearUseFeatures)
	FillRankOrder(c.GearPhysicalFeatures)
	FillRankOrder(c.Images)
}
