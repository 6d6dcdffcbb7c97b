package models

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalendar_Walk(t *testing.T) {
	c := sampleCalendar()

	var order []EntityType
	c.Walk(func(et EntityType, _ *Entity) { order = append(order, et) })

	assert.Equal(t, []EntityType{
		TypeActivityCalendar,
		TypeVesselUseFeatures,
		TypeGearUseFeatures,
		TypeFishingArea,
		TypeGearPhysicalFeatures,
		TypeImageAttachment,
	}, order)
	assert.Equal(t, 1, c.CountByType()[TypeFishingArea])
}

func TestCalendar_ClearLocalIDs(t *testing.T) {
	c := sampleCalendar()
	c.GearUseFeatures[0].FishingAreas = append(c.GearUseFeatures[0].FishingAreas,
		&FishingArea{Entity: Entity{ID: 55, UpdateDate: "u"}, LocationID: 200})
	require.True(t, c.HasLocalIDs())

	c.ClearLocalIDs()

	assert.False(t, c.HasLocalIDs())
	assert.Zero(t, c.ID)
	assert.Empty(t, c.UpdateDate)
	assert.Equal(t, int64(55), c.GearUseFeatures[0].FishingAreas[1].ID, "server ids are kept")
	assert.Equal(t, Timestamp("u"), c.GearUseFeatures[0].FishingAreas[1].UpdateDate)
}

func TestCalendar_ResetIdentity(t *testing.T) {
	c := sampleCalendar()
	c.GearUseFeatures[0].ID = 77
	c.ResetIdentity()

	c.Walk(func(_ EntityType, e *Entity) {
		assert.Equal(t, Entity{}, *e)
	})
	assert.Empty(t, c.CreationDate)
}

func TestCalendar_Clone(t *testing.T) {
	src := sampleCalendar()

	dst, err := src.Clone()
	require.NoError(t, err)

	if diff := cmp.Diff(src, dst); diff != "" {
		t.Fatalf("clone differs (-src +dst):\n%s", diff)
	}

	dst.ID = 0
	dst.GearUseFeatures[0].Metier.ID = 99
	dst.GearUseFeatures[0].FishingAreas[0].LocationID = 1
	dst.Images = append(dst.Images, &Image{Title: "extra"})

	assert.Equal(t, int64(-5), src.ID)
	assert.Equal(t, int64(7), src.GearUseFeatures[0].Metier.ID)
	assert.Equal(t, int64(100), src.GearUseFeatures[0].FishingAreas[0].LocationID)
	assert.Len(t, src.Images, 1)

	var nilCal *Calendar
	out, err := nilCal.Clone()
	require.NoError(t, err)
	assert.Nil(t, out)
}
