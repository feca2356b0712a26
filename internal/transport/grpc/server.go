package grpcx

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/sawariz0r/3d-voice-room/internal/domain"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const DirectoryServiceName = "voxstage.v1.RoomDirectory"

// RoomDirectoryServer is a read-only view of the live rooms. Messages are
// well-known types so clients need no generated code.
type RoomDirectoryServer interface {
	ListRooms(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetRoom(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
}

var roomDirectoryDesc = grpc.ServiceDesc{
	ServiceName: DirectoryServiceName,
	HandlerType: (*RoomDirectoryServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListRooms", Handler: listRoomsHandler},
		{MethodName: "GetRoom", Handler: getRoomHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "voxstage/v1/directory.proto",
}

func listRoomsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RoomDirectoryServer).ListRooms(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + DirectoryServiceName + "/ListRooms"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RoomDirectoryServer).ListRooms(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func getRoomHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RoomDirectoryServer).GetRoom(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + DirectoryServiceName + "/GetRoom"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RoomDirectoryServer).GetRoom(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

type RoomReader interface {
	ListRooms() []domain.RoomInfo
	State(id string) (domain.RoomState, error)
}

type Server struct {
	rooms RoomReader
}

func NewServer(rooms RoomReader) *Server {
	return &Server{rooms: rooms}
}

// New builds the grpc server with interceptors, health and reflection, and
// registers the directory on it. verifier may be nil.
func New(s *Server, verifier TokenVerifier) (*grpc.Server, *health.Server) {
	unary := []grpc.UnaryServerInterceptor{UnaryServerInterceptor()}
	if verifier != nil {
		unary = append(unary, AuthUnaryInterceptor(verifier))
	}
	gs := grpc.NewServer(
		grpc.ChainUnaryInterceptor(unary...),
		grpc.ChainStreamInterceptor(StreamServerInterceptor()),
	)

	gs.RegisterService(&roomDirectoryDesc, s)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	hs.SetServingStatus(DirectoryServiceName, healthpb.HealthCheckResponse_SERVING)

	reflection.Register(gs)
	return gs, hs
}

func (s *Server) ListRooms(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	rooms, err := toValue(s.rooms.ListRooms())
	if err != nil {
		return nil, mapErr(err)
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{"rooms": rooms}}, nil
}

func (s *Server) GetRoom(ctx context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error) {
	if in.GetValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "room id is required")
	}
	state, err := s.rooms.State(in.GetValue())
	if err != nil {
		return nil, mapErr(err)
	}
	v, err := toValue(state)
	if err != nil {
		return nil, mapErr(err)
	}
	return v.GetStructValue(), nil
}

// toValue converts through JSON so the field names match the websocket API.
func toValue(v any) (*structpb.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(b, &generic); err != nil {
		return nil, err
	}
	return structpb.NewValue(generic)
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, domain.ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrRoomNotFound), errors.Is(err, domain.ErrNotInRoom):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		return status.Error(codes.PermissionDenied, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
