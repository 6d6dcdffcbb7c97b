// Package models defines the activity-calendar entity graph shared by the
// client engine and the server, together with the value types used to match
// nodes across the local/remote identity boundary.
package models

import (
	"time"
)

// EntityType is the name under which an entity kind is stored locally and
// addressed remotely.
type EntityType string

const (
	TypeActivityCalendar     EntityType = "ActivityCalendar"
	TypeVesselUseFeatures    EntityType = "VesselUseFeatures"
	TypeGearUseFeatures      EntityType = "GearUseFeatures"
	TypeGearPhysicalFeatures EntityType = "GearPhysicalFeatures"
	TypeFishingArea          EntityType = "FishingArea"
	TypeImageAttachment      EntityType = "ImageAttachment"
	TypeProgram              EntityType = "Program"
	TypeVesselSnapshot       EntityType = "VesselSnapshot"
)

// SyncStatus tells whether a root entity matches its server copy.
type SyncStatus string

const (
	StatusSync  SyncStatus = "SYNC"
	StatusDirty SyncStatus = "DIRTY"
)

// Entity is embedded in every node of the graph.
//
// A negative ID is a local placeholder, a positive one was issued by the
// server, and zero means "not assigned yet" (omitted on the wire).
type Entity struct {
	ID         int64     `json:"id,omitempty"`
	UpdateDate Timestamp `json:"updateDate,omitempty"`
}

// Identity gives access to the embedded identity of any node.
func (e *Entity) Identity() *Entity { return e }

func (e *Entity) IsLocal() bool { return e.ID < 0 }

func (e *Entity) HasID() bool { return e.ID != 0 }

// CopyIdentity takes id and update date from src.
func (e *Entity) CopyIdentity(src *Entity) {
	e.ID = src.ID
	e.UpdateDate = src.UpdateDate
}

// ClearIdentity resets id and update date.
func (e *Entity) ClearIdentity() {
	e.ID = 0
	e.UpdateDate = ""
}

// Identifiable is implemented by every type embedding Entity.
type Identifiable interface {
	Identity() *Entity
}

const dateLayout = "2006-01-02"

// Date is a calendar day, serialized as "2006-01-02". The zero value is "".
type Date string

func NewDate(t time.Time) Date {
	return Date(t.Format(dateLayout))
}

// Time parses d. An empty or malformed date yields the zero time.
func (d Date) Time() time.Time {
	t, err := time.Parse(dateLayout, string(d))
	if err != nil {
		return time.Time{}
	}
	return t
}

func (d Date) IsZero() bool { return d == "" }

// Before compares two days; an empty date sorts first.
func (d Date) Before(o Date) bool { return d < o }

// Timestamp is an RFC 3339 instant used as an optimistic-lock token.
type Timestamp string

func NewTimestamp(t time.Time) Timestamp {
	return Timestamp(t.UTC().Format(time.RFC3339Nano))
}

func (ts Timestamp) Time() time.Time {
	t, err := time.Parse(time.RFC3339Nano, string(ts))
	if err != nil {
		return time.Time{}
	}
	return t
}
