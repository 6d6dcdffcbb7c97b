package models

import (
	"fmt"

	"github.com/tiendc/go-deepcopy"
)

// Walk calls fn for every node of the calendar, the root first. Fishing areas
// are visited right after their gear use features.
func (c *Calendar) Walk(fn func(t EntityType, e *Entity)) {
	fn(TypeActivityCalendar, &c.Entity)
	for _, v := range c.VesselUseFeatures {
		fn(TypeVesselUseFeatures, &v.Entity)
	}
	for _, g := range c.GearUseFeatures {
		fn(TypeGearUseFeatures, &g.Entity)
		for _, fa := range g.FishingAreas {
			fn(TypeFishingArea, &fa.Entity)
		}
	}
	for _, g := range c.GearPhysicalFeatures {
		fn(TypeGearPhysicalFeatures, &g.Entity)
	}
	for _, img := range c.Images {
		fn(TypeImageAttachment, &img.Entity)
	}
}

// CountByType returns how many nodes of each type the graph holds.
func (c *Calendar) CountByType() map[EntityType]int {
	out := make(map[EntityType]int)
	c.Walk(func(t EntityType, _ *Entity) { out[t]++ })
	return out
}

// HasLocalIDs reports whether any node still carries a negative id.
func (c *Calendar) HasLocalIDs() bool {
	found := false
	c.Walk(func(_ EntityType, e *Entity) {
		if e.IsLocal() {
			found = true
		}
	})
	return found
}

// ClearLocalIDs drops every negative id (and its update date) so the graph
// can be sent to the server as new rows. Server ids are kept.
func (c *Calendar) ClearLocalIDs() {
	c.Walk(func(_ EntityType, e *Entity) {
		if e.IsLocal() {
			e.ClearIdentity()
		}
	})
}

// ResetIdentity drops every id and update date of the graph.
func (c *Calendar) ResetIdentity() {
	c.Walk(func(_ EntityType, e *Entity) { e.ClearIdentity() })
	c.CreationDate = ""
}

// Clone returns a deep copy of c sharing no memory with it.
func (c *Calendar) Clone() (*Calendar, error) {
	if c == nil {
		return nil, nil
	}
	var out Calendar
	if err := deepcopy.Copy(&out, *c); err != nil {
		return nil, fmt.Errorf("clone calendar: %w", err)
	}
	return &out, nil
}
