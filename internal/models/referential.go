package models

// ReferenceEntityNames is the unscoped set of reference entities imported
// when no program narrows the import.
var ReferenceEntityNames = []string{
	"Location",
	"Gear",
	"Metier",
	"MetierTaxonGroup",
	"TaxonGroup",
	"TaxonName",
	"Department",
	"QualityFlag",
	"SaleType",
	"VesselType",
}

// AcquisitionLevelActivityCalendar is the default program scope of the
// activity calendar feature.
const AcquisitionLevelActivityCalendar = "ACTIVITY_CALENDAR"

// Referential is one row of a reference table (a location, a gear...).
// AcquisitionLevels lists the levels it is used at; empty means all.
type Referential struct {
	Entity
	EntityName        string   `json:"entityName"`
	Label             string   `json:"label,omitempty"`
	Name              string   `json:"name,omitempty"`
	AcquisitionLevels []string `json:"acquisitionLevels,omitempty"`
}

// UsedAt reports whether r is relevant for any of the given acquisition levels.
func (r *Referential) UsedAt(levels []string) bool {
	if len(levels) == 0 || len(r.AcquisitionLevels) == 0 {
		return true
	}
	for _, l := range levels {
		for _, own := range r.AcquisitionLevels {
			if l == own {
				return true
			}
		}
	}
	return false
}

// Program is a data collection program.
type Program struct {
	Entity
	Label                  string   `json:"label"`
	Name                   string   `json:"name,omitempty"`
	AcquisitionLevels      []string `json:"acquisitionLevels,omitempty"`
	ReferentialEntityNames []string `json:"referentialEntityNames,omitempty"`
}

func (p *Program) Ref() *ReferentialRef {
	return &ReferentialRef{ID: p.ID, Label: p.Label, Name: p.Name}
}

// VesselSnapshot is the vessel data needed to edit a calendar offline.
type VesselSnapshot struct {
	Entity
	RegistrationCode string `json:"registrationCode,omitempty"`
	Name             string `json:"name,omitempty"`
	VesselTypeID     int64  `json:"vesselTypeId,omitempty"`
}

// ReferentialType is the local entity type rows of entityName are stored under.
func ReferentialType(entityName string) EntityType {
	return EntityType(entityName)
}
