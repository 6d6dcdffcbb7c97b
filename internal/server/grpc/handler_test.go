package grpc

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dmitrijs2005/fieldsync/internal/common"
	"github.com/dmitrijs2005/fieldsync/internal/models"
	"github.com/dmitrijs2005/fieldsync/internal/rpc"
)

func request(t *testing.T, op string, vars any) *structpb.Struct {
	t.Helper()
	in, err := rpc.EncodeRequest(op, vars)
	require.NoError(t, err)
	return in
}

func TestMutate_SaveAndQueryCalendar(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	resp, err := s.Mutate(ctx, request(t, rpc.OpSaveCalendar, &rpc.SaveCalendarVars{Calendar: newCalendar()}))
	require.NoError(t, err)

	var saved models.Calendar
	require.NoError(t, rpc.DecodeResponse(resp, &saved))
	require.Positive(t, saved.ID)
	assert.Positive(t, saved.VesselUseFeatures[0].ID)
	assert.NotEmpty(t, saved.UpdateDate)

	resp, err = s.Query(ctx, request(t, rpc.OpLoadCalendar, rpc.LoadCalendarVars{ID: saved.ID}))
	require.NoError(t, err)
	var loaded models.Calendar
	require.NoError(t, rpc.DecodeResponse(resp, &loaded))
	assert.Equal(t, saved.UpdateDate, loaded.UpdateDate)

	resp, err = s.Query(ctx, request(t, rpc.OpLoadCalendars, rpc.LoadCalendarsVars{
		Filter: models.CalendarFilter{ProgramLabel: "SIH-ACTIFLOT", VesselIDs: []int64{10}},
	}))
	require.NoError(t, err)
	var list []*models.Calendar
	require.NoError(t, rpc.DecodeResponse(resp, &list))
	assert.Len(t, list, 1)

	resp, err = s.Mutate(ctx, request(t, rpc.OpDeleteCalendars, rpc.DeleteCalendarsVars{IDs: []int64{saved.ID}}))
	require.NoError(t, err)
	var deleted struct {
		Deleted int64 `json:"deleted"`
	}
	require.NoError(t, rpc.DecodeResponse(resp, &deleted))
	assert.Equal(t, int64(1), deleted.Deleted)

	_, err = s.Query(ctx, request(t, rpc.OpLoadCalendar, rpc.LoadCalendarVars{ID: saved.ID}))
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestQuery_ReferenceData(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	resp, err := s.Query(ctx, request(t, rpc.OpLoadPrograms, rpc.LoadProgramsVars{AcquisitionLevel: models.AcquisitionLevelActivityCalendar}))
	require.NoError(t, err)
	var programs []*models.Program
	require.NoError(t, rpc.DecodeResponse(resp, &programs))
	require.Len(t, programs, 1)

	resp, err = s.Query(ctx, request(t, rpc.OpLoadProgram, rpc.LoadProgramVars{Label: "SIH-ACTIFLOT"}))
	require.NoError(t, err)
	var p models.Program
	require.NoError(t, rpc.DecodeResponse(resp, &p))
	assert.Equal(t, int64(1), p.ID)

	_, err = s.Query(ctx, request(t, rpc.OpLoadProgram, rpc.LoadProgramVars{Label: "NOPE"}))
	assert.Equal(t, codes.NotFound, status.Code(err))

	resp, err = s.Query(ctx, request(t, rpc.OpLoadReferentials, rpc.LoadReferentialsVars{EntityName: "Gear"}))
	require.NoError(t, err)
	var gears []*models.Referential
	require.NoError(t, rpc.DecodeResponse(resp, &gears))
	assert.Len(t, gears, 1)

	resp, err = s.Query(ctx, request(t, rpc.OpLoadVessels, rpc.LoadVesselsVars{IDs: []int64{10}}))
	require.NoError(t, err)
	var vessels []*models.VesselSnapshot
	require.NoError(t, rpc.DecodeResponse(resp, &vessels))
	require.Len(t, vessels, 1)
	assert.Equal(t, "Alcyon", vessels[0].Name)
}

func TestMutate_Errors(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	local := newCalendar()
	local.ID = -4
	_, err := s.Mutate(ctx, request(t, rpc.OpSaveCalendar, &rpc.SaveCalendarVars{Calendar: local}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = s.Mutate(ctx, request(t, "dropTables", nil))
	assert.Equal(t, codes.Unimplemented, status.Code(err))

	_, err = s.Query(ctx, request(t, rpc.OpSaveCalendar, nil))
	assert.Equal(t, codes.Unimplemented, status.Code(err), "mutations are not served by Query")

	bad, err := structpb.NewStruct(map[string]any{"operation": rpc.OpLoadCalendar, "variables": map[string]any{"id": "seven"}})
	require.NoError(t, err)
	_, err = s.Query(ctx, bad)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		err  error
		want codes.Code
	}{
		{fmt.Errorf("calendar 1: %w", common.ErrorNotFound), codes.NotFound},
		{common.ErrVersionConflict, codes.Aborted},
		{common.ErrValidation, codes.InvalidArgument},
		{common.ErrTokenExpired, codes.Unauthenticated},
		{context.DeadlineExceeded, codes.DeadlineExceeded},
		{context.Canceled, codes.Canceled},
		{errors.New("disk full"), codes.Internal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusCode(tt.err), tt.err.Error())
	}
}

func TestRespond_HidesInternalErrors(t *testing.T) {
	s := newTestServer(t)
	_, err := s.respond(context.Background(), rpc.OpLoadCalendar, nil, errors.New("password=hunter2"))
	require.Equal(t, codes.Internal, status.Code(err))
	assert.NotContains(t, err.Error(), "hunter2")
}
