package referentials

import "github.com/dmitrijs2005/fieldsync/internal/models"

func sampleSeed() Seed {
	return Seed{
		Programs: []*models.Program{
			{Entity: models.Entity{ID: 2}, Label: "SIH-OBSMER", AcquisitionLevels: []string{"TRIP"}},
			{Entity: models.Entity{ID: 1}, Label: "SIH-ACTIFLOT", AcquisitionLevels: []string{models.AcquisitionLevelActivityCalendar},
				ReferentialEntityNames: []string{"Gear", "Metier"}},
		},
		Referentials: []*models.Referential{
			{Entity: models.Entity{ID: 12}, EntityName: "Gear", Label: "OTB"},
			{Entity: models.Entity{ID: 11}, EntityName: "Gear", Label: "GNS", AcquisitionLevels: []string{"TRIP"}},
			{Entity: models.Entity{ID: 7}, EntityName: "Metier", Label: "OTB_DEF"},
		},
		Vessels: []*models.VesselSnapshot{
			{Entity: models.Entity{ID: 10}, RegistrationCode: "FRA000851751", Name: "Alcyon"},
			{Entity: models.Entity{ID: 20}, RegistrationCode: "FRA000123456", Name: "Sirius"},
		},
	}
}
