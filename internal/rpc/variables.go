package rpc

import "github.com/dmitrijs2005/fieldsync/internal/models"

// Variables of each operation, shared by the transport and the server.

type SaveCalendarVars struct {
	Calendar *models.Calendar `json:"calendar"`
}

type DeleteCalendarsVars struct {
	IDs []int64 `json:"ids"`
}

type LoadCalendarVars struct {
	ID int64 `json:"id"`
}

type LoadCalendarsVars struct {
	Filter models.CalendarFilter `json:"filter"`
	Offset int                   `json:"offset,omitempty"`
	Size   int                   `json:"size,omitempty"`
}

type LoadProgramsVars struct {
	AcquisitionLevel string `json:"acquisitionLevel,omitempty"`
}

type LoadProgramVars struct {
	Label string `json:"label"`
}

type LoadReferentialsVars struct {
	EntityName        string   `json:"entityName"`
	AcquisitionLevels []string `json:"acquisitionLevels,omitempty"`
}

type LoadVesselsVars struct {
	IDs []int64 `json:"ids,omitempty"`
}
