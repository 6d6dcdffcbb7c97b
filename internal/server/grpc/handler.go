package grpc

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dmitrijs2005/fieldsync/internal/common"
	"github.com/dmitrijs2005/fieldsync/internal/rpc"
)

func (s *GRPCServer) Mutate(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	switch op := rpc.Operation(in); op {
	case rpc.OpSaveCalendar:
		var vars rpc.SaveCalendarVars
		if err := decode(in, &vars); err != nil {
			return nil, err
		}
		saved, err := s.calendars.Save(ctx, vars.Calendar)
		return s.respond(ctx, op, saved, err)

	case rpc.OpDeleteCalendars:
		var vars rpc.DeleteCalendarsVars
		if err := decode(in, &vars); err != nil {
			return nil, err
		}
		n, err := s.calendars.Delete(ctx, vars.IDs)
		return s.respond(ctx, op, map[string]any{"deleted": n}, err)

	default:
		return nil, unknownOperation(op)
	}
}

func (s *GRPCServer) Query(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	switch op := rpc.Operation(in); op {
	case rpc.OpLoadCalendar:
		var vars rpc.LoadCalendarVars
		if err := decode(in, &vars); err != nil {
			return nil, err
		}
		c, err := s.calendars.Load(ctx, vars.ID)
		return s.respond(ctx, op, c, err)

	case rpc.OpLoadCalendars:
		var vars rpc.LoadCalendarsVars
		if err := decode(in, &vars); err != nil {
			return nil, err
		}
		list, err := s.calendars.LoadAll(ctx, vars.Filter, vars.Offset, vars.Size)
		return s.respond(ctx, op, list, err)

	case rpc.OpLoadPrograms:
		var vars rpc.LoadProgramsVars
		if err := decode(in, &vars); err != nil {
			return nil, err
		}
		list, err := s.calendars.Programs(ctx, vars.AcquisitionLevel)
		return s.respond(ctx, op, list, err)

	case rpc.OpLoadProgram:
		var vars rpc.LoadProgramVars
		if err := decode(in, &vars); err != nil {
			return nil, err
		}
		p, err := s.calendars.Program(ctx, vars.Label)
		return s.respond(ctx, op, p, err)

	case rpc.OpLoadReferentials:
		var vars rpc.LoadReferentialsVars
		if err := decode(in, &vars); err != nil {
			return nil, err
		}
		list, err := s.calendars.Referentials(ctx, vars.EntityName, vars.AcquisitionLevels)
		return s.respond(ctx, op, list, err)

	case rpc.OpLoadVessels:
		var vars rpc.LoadVesselsVars
		if err := decode(in, &vars); err != nil {
			return nil, err
		}
		list, err := s.calendars.Vessels(ctx, vars.IDs)
		return s.respond(ctx, op, list, err)

	default:
		return nil, unknownOperation(op)
	}
}

func decode(in *structpb.Struct, vars any) error {
	if _, err := rpc.DecodeRequest(in, vars); err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	return nil
}

func unknownOperation(op string) error {
	return status.Errorf(codes.Unimplemented, "%v: %q", common.ErrUnknownOperation, op)
}

// respond encodes data or maps err to a gRPC status.
func (s *GRPCServer) respond(ctx context.Context, op string, data any, err error) (*structpb.Struct, error) {
	if err != nil {
		code := statusCode(err)
		if code == codes.Internal {
			s.logger.Error(ctx, "operation failed", "operation", op, "error", err)
			return nil, status.Error(codes.Internal, "internal error")
		}
		return nil, status.Error(code, err.Error())
	}
	resp, err := rpc.EncodeResponse(data)
	if err != nil {
		s.logger.Error(ctx, "response not encoded", "operation", op, "error", err)
		return nil, status.Error(codes.Internal, "internal error")
	}
	return resp, nil
}

func statusCode(err error) codes.Code {
	switch {
	case errors.Is(err, common.ErrorNotFound):
		return codes.NotFound
	case errors.Is(err, common.ErrVersionConflict):
		return codes.Aborted
	case errors.Is(err, common.ErrValidation):
		return codes.InvalidArgument
	case errors.Is(err, common.ErrorUnauthorized), errors.Is(err, common.ErrInvalidToken), errors.Is(err, common.ErrTokenExpired):
		return codes.Unauthenticated
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	default:
		return codes.Internal
	}
}
