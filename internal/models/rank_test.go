package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ranks[T Ranked](items []T) []int {
	out := make([]int, len(items))
	for i, it := range items {
		out[i] = it.Rank()
	}
	return out
}

func TestReindexRankOrder(t *testing.T) {
	tests := []struct {
		name string
		in   []int
		want []int
	}{
		{"already contiguous", []int{1, 2, 3}, []int{1, 2, 3}},
		{"gaps", []int{2, 5, 9}, []int{1, 2, 3}},
		{"out of slice order", []int{5, 2}, []int{2, 1}},
		{"unranked appended in order", []int{0, 3, 0}, []int{2, 1, 3}},
		{"ties keep slice order", []int{2, 2, 1}, []int{2, 3, 1}},
		{"empty", []int{}, []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := make([]*Image, len(tt.in))
			for i, r := range tt.in {
				items[i] = &Image{RankOrder: r}
			}
			ReindexRankOrder(items)
			assert.Equal(t, tt.want, ranks(items))
		})
	}
}

func TestFillRankOrder(t *testing.T) {
	items := []*GearUseFeatures{{RankOrder: 0}, {RankOrder: 4}, {RankOrder: 0}}
	FillRankOrder(items)
	assert.Equal(t, []int{5, 4, 6}, ranks(items))
}

func TestCalendar_ReindexRanks(t *testing.T) {
	c := &Calendar{
		GearUseFeatures:      []*GearUseFeatures{{RankOrder: 3}, {RankOrder: 7}},
		GearPhysicalFeatures: []*GearPhysicalFeatures{{}},
		Images:               []*Image{{RankOrder: 10}},
	}
	c.ReindexRanks()
	assert.Equal(t, []int{1, 2}, ranks(c.GearUseFeatures))
	assert.Equal(t, []int{1}, ranks(c.GearPhysicalFeatures))
	assert.Equal(t, []int{1}, ranks(c.Images))
}
