// Package control serves the training activation surface over gRPC. The
// service is described by hand with well-known protobuf types, so no
// generated stubs are required.
package control

import (
	"context"
	"errors"

	"NetSentinel/internal/model"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "netsentinel.v1.ModelControl"

const (
	startTrainingMethod = "/" + ServiceName + "/StartTraining"
	statusMethod        = "/" + ServiceName + "/Status"
)

// Trainer is the activation surface being exposed.
type Trainer interface {
	StartTraining() error
	ModelStatus() model.ModelStatus
}

// ModelControlServer is the server API for the ModelControl service.
type ModelControlServer interface {
	StartTraining(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Status(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// ServiceDesc describes ModelControl for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ModelControlServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "StartTraining", Handler: startTrainingHandler},
		{MethodName: "Status", Handler: statusHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "netsentinel/v1/control.proto",
}

// Register adds the service backed by trainer to s.
func Register(s grpc.ServiceRegistrar, trainer Trainer) {
	s.RegisterService(&ServiceDesc, &Server{trainer: trainer})
}

// Server implements ModelControlServer.
type Server struct {
	trainer Trainer
}

// StartTraining begins baseline collection; a second activation returns AlreadyExists.
func (s *Server) StartTraining(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	if err := s.trainer.StartTraining(); err != nil {
		if errors.Is(err, model.ErrAlreadyCollecting) {
			return nil, status.Error(codes.AlreadyExists, "Training already in progress")
		}
		return nil, status.Error(codes.Internal, err.Error())
	}
	return structpb.NewStruct(map[string]interface{}{
		"message": "Training started. Collecting baseline packets.",
	})
}

// Status reports the model state.
func (s *Server) Status(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	st := s.trainer.ModelStatus()
	return structpb.NewStruct(map[string]interface{}{
		"is_trained":  st.IsTrained,
		"is_training": st.IsTraining,
		"collected":   st.Collected,
		"target":      st.Target,
	})
}

func startTrainingHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ModelControlServer).StartTraining(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: startTrainingMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ModelControlServer).StartTraining(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func statusHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ModelControlServer).Status(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: statusMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ModelControlServer).Status(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}
