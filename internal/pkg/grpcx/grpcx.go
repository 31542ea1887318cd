// Package grpcx serves unary methods whose request and response are
// google.protobuf.Struct messages, so services can be registered without
// generated stubs.
package grpcx

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/fekuna/omnipos-forecast-service/internal/apperror"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

type StructHandler func(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

// Method adapts h to a grpc.MethodDesc that runs through the server's unary interceptors.
func Method(service, name string, h StructHandler) grpc.MethodDesc {
	fullMethod := fmt.Sprintf("/%s/%s", service, name)
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return h(ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: fullMethod,
			}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return h(ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc builds a descriptor for methods; register it with the handler as impl.
func ServiceDesc(service string, methods ...grpc.MethodDesc) *grpc.ServiceDesc {
	return &grpc.ServiceDesc{
		ServiceName: service,
		HandlerType: (*interface{})(nil),
		Methods:     methods,
		Streams:     []grpc.StreamDesc{},
		Metadata:    service,
	}
}

func String(req *structpb.Struct, key string) string {
	if v, ok := req.GetFields()[key]; ok {
		return v.GetStringValue()
	}
	return ""
}

// RequiredString fails with InvalidArgument when key is missing or empty.
func RequiredString(req *structpb.Struct, key string) (string, error) {
	s := String(req, key)
	if s == "" {
		return "", status.Errorf(codes.InvalidArgument, "%s is required", key)
	}
	return s, nil
}

func Int(req *structpb.Struct, key string, def int) int {
	if n := OptionalInt(req, key); n != nil {
		return *n
	}
	return def
}

// OptionalInt returns nil unless key holds a number.
func OptionalInt(req *structpb.Struct, key string) *int {
	v, ok := req.GetFields()[key]
	if !ok {
		return nil
	}
	if _, isNum := v.GetKind().(*structpb.Value_NumberValue); !isNum {
		return nil
	}
	n := int(math.Round(v.GetNumberValue()))
	return &n
}

func Bool(req *structpb.Struct, key string) bool {
	if v, ok := req.GetFields()[key]; ok {
		return v.GetBoolValue()
	}
	return false
}

// Time parses an RFC 3339 string field; a missing field is nil.
func Time(req *structpb.Struct, key string) (*time.Time, error) {
	s := String(req, key)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%s must be RFC 3339: %v", key, err)
	}
	return &t, nil
}

// FormatTime renders t for a Struct field.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// FormatTimePtr renders nil as a null value.
func FormatTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return FormatTime(*t)
}

func NewStruct(fields map[string]interface{}) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return s, nil
}

// ToStatus maps use-case errors to gRPC status codes. Status errors pass through.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case apperror.IsNotFound(err):
		return status.Error(codes.NotFound, err.Error())
	case apperror.IsConfiguration(err), apperror.IsInsufficientHistory(err):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, apperror.ErrStockConflict):
		return status.Error(codes.Aborted, err.Error())
	case errors.Is(err, apperror.ErrBusy):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
