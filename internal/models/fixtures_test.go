package models

func sampleCalendar() *Calendar {
	return &Calendar{
		Entity:                Entity{ID: -5, UpdateDate: "2024-03-01T10:00:00Z"},
		CreationDate:          "2024-03-01T09:00:00Z",
		Year:                  2024,
		Program:               &ReferentialRef{ID: 3, Label: "SIH-ACTIFLOT"},
		VesselID:              10,
		RecorderDepartmentID:  4,
		SynchronizationStatus: StatusDirty,
		Comments:              "port survey",
		VesselUseFeatures: []*VesselUseFeatures{
			{Entity: Entity{ID: -2}, StartDate: "2024-01-01", EndDate: "2024-01-31", IsActive: 1},
		},
		GearUseFeatures: []*GearUseFeatures{
			{
				Entity:    Entity{ID: -1},
				StartDate: "2024-01-01",
				EndDate:   "2024-12-31",
				Metier:    &ReferentialRef{ID: 7},
				Gear:      &ReferentialRef{ID: 12},
				RankOrder: 1,
				FishingAreas: []*FishingArea{
					{Entity: Entity{ID: -9}, LocationID: 100, DepthGradientID: 2},
				},
			},
		},
		GearPhysicalFeatures: []*GearPhysicalFeatures{
			{Entity: Entity{ID: -3}, StartDate: "2024-01-01", EndDate: "2024-12-31", Metier: &ReferentialRef{ID: 7}, Gear: &ReferentialRef{ID: 12}, RankOrder: 1},
		},
		Images: []*Image{
			{Entity: Entity{ID: -4}, Title: "deck", RankOrder: 1, LocalPath: "/tmp/deck.jpg"},
		},
	}
}
