package models

// ReferentialRef points at a reference entity (program, metier, gear...).
type ReferentialRef struct {
	ID    int64  `json:"id"`
	Label string `json:"label,omitempty"`
	Name  string `json:"name,omitempty"`
}

func refID(r *ReferentialRef) int64 {
	if r == nil {
		return 0
	}
	return r.ID
}

// Calendar is the root entity: one activity calendar per (program, vessel, year).
type Calendar struct {
	Entity
	CreationDate          Timestamp       `json:"creationDate,omitempty"`
	Year                  int             `json:"year"`
	Program               *ReferentialRef `json:"program,omitempty"`
	VesselID              int64           `json:"vesselId"`
	RecorderDepartmentID  int64           `json:"recorderDepartmentId,omitempty"`
	SynchronizationStatus SyncStatus      `json:"synchronizationStatus,omitempty"`
	Comments              string          `json:"comments,omitempty"`

	VesselUseFeatures    []*VesselUseFeatures    `json:"vesselUseFeatures,omitempty"`
	GearUseFeatures      []*GearUseFeatures      `json:"gearUseFeatures,omitempty"`
	GearPhysicalFeatures []*GearPhysicalFeatures `json:"gearPhysicalFeatures,omitempty"`
	Images               []*Image                `json:"images,omitempty"`
}

// ProgramLabel returns the program label or "".
func (c *Calendar) ProgramLabel() string {
	if c.Program == nil {
		return ""
	}
	return c.Program.Label
}

// CalendarKey is the business identity of a calendar.
type CalendarKey struct {
	ProgramLabel string
	VesselID     int64
	Year         int
}

func (c *Calendar) Key() CalendarKey {
	return CalendarKey{ProgramLabel: c.ProgramLabel(), VesselID: c.VesselID, Year: c.Year}
}

// VesselUseFeatures describes the vessel activity over one month.
type VesselUseFeatures struct {
	Entity
	StartDate          Date  `json:"startDate"`
	EndDate            Date  `json:"endDate"`
	IsActive           int   `json:"isActive"`
	BasePortLocationID int64 `json:"basePortLocationId,omitempty"`
}

// VesselUseKey matches monthly records.
type VesselUseKey struct {
	StartDate Date
	EndDate   Date
}

func (v *VesselUseFeatures) Key() VesselUseKey {
	return VesselUseKey{StartDate: v.StartDate, EndDate: v.EndDate}
}

// GearKey matches gear use and gear physical features.
type GearKey struct {
	StartDate Date
	EndDate   Date
	MetierID  int64
	GearID    int64
	RankOrder int
}

// GearUseFeatures is a metier practiced over a date range.
type GearUseFeatures struct {
	Entity
	StartDate    Date            `json:"startDate"`
	EndDate      Date            `json:"endDate"`
	Metier       *ReferentialRef `json:"metier,omitempty"`
	Gear         *ReferentialRef `json:"gear,omitempty"`
	RankOrder    int             `json:"rankOrder,omitempty"`
	FishingAreas []*FishingArea  `json:"fishingAreas,omitempty"`
}

func (g *GearUseFeatures) Key() GearKey {
	return GearKey{
		StartDate: g.StartDate,
		EndDate:   g.EndDate,
		MetierID:  refID(g.Metier),
		GearID:    refID(g.Gear),
		RankOrder: g.RankOrder,
	}
}

func (g *GearUseFeatures) Rank() int        { return g.RankOrder }
func (g *GearUseFeatures) SetRank(rank int) { g.RankOrder = rank }

// GearPhysicalFeatures holds yearly gear characteristics per metier/gear.
type GearPhysicalFeatures struct {
	Entity
	StartDate Date            `json:"startDate"`
	EndDate   Date            `json:"endDate"`
	Metier    *ReferentialRef `json:"metier,omitempty"`
	Gear      *ReferentialRef `json:"gear,omitempty"`
	RankOrder int             `json:"rankOrder,omitempty"`
	Comments  string          `json:"comments,omitempty"`
}

func (g *GearPhysicalFeatures) Key() GearKey {
	return GearKey{
		StartDate: g.StartDate,
		EndDate:   g.EndDate,
		MetierID:  refID(g.Metier),
		GearID:    refID(g.Gear),
		RankOrder: g.RankOrder,
	}
}

func (g *GearPhysicalFeatures) Rank() int        { return g.RankOrder }
func (g *GearPhysicalFeatures) SetRank(rank int) { g.RankOrder = rank }

// FishingArea locates a gear use.
type FishingArea struct {
	Entity
	LocationID                int64 `json:"locationId"`
	DistanceToCoastGradientID int64 `json:"distanceToCoastGradientId,omitempty"`
	DepthGradientID           int64 `json:"depthGradientId,omitempty"`
	NearbySpecificAreaID      int64 `json:"nearbySpecificAreaId,omitempty"`
}

type FishingAreaKey struct {
	LocationID                int64
	DistanceToCoastGradientID int64
	DepthGradientID           int64
	NearbySpecificAreaID      int64
}

func (f *FishingArea) Key() FishingAreaKey {
	return FishingAreaKey{
		LocationID:                f.LocationID,
		DistanceToCoastGradientID: f.DistanceToCoastGradientID,
		DepthGradientID:           f.DepthGradientID,
		NearbySpecificAreaID:      f.NearbySpecificAreaID,
	}
}

// Image is a photo attached to a calendar. LocalPath is set on the device
// until the file has been uploaded to the URL handed out by the server.
type Image struct {
	Entity
	Title       string `json:"title"`
	RankOrder   int    `json:"rankOrder,omitempty"`
	ContentType string `json:"contentType,omitempty"`
	StorageKey  string `json:"storageKey,omitempty"`
	UploadURL   string `json:"uploadUrl,omitempty"`
	LocalPath   string `json:"localPath,omitempty"`
}

type ImageKey struct {
	Title     string
	RankOrder int
}

func (i *Image) Key() ImageKey {
	return ImageKey{Title: i.Title, RankOrder: i.RankOrder}
}

func (i *Image) Rank() int        { return i.RankOrder }
func (i *Image) SetRank(rank int) { i.RankOrder = rank }
