// Package grpc exposes the account and micropost workflows over gRPC. The
// service is described by hand and exchanges google.protobuf.Struct
// messages, so no generated stubs are needed.
package grpc

import (
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/sampleapp/internal/logging"
	"github.com/dmitrijs2005/sampleapp/internal/server/metrics"
	"github.com/dmitrijs2005/sampleapp/internal/server/models"
	"github.com/dmitrijs2005/sampleapp/internal/server/services"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

type userService interface {
	SignUp(ctx context.Context, name, email, password string) (*models.User, error)
	Activate(ctx context.Context, email, token string) (*services.Session, error)
	Login(ctx context.Context, email, password string, remember bool) (*services.Session, error)
	Authenticate(ctx context.Context, sessionToken string) (string, error)
	AuthenticateRemember(ctx context.Context, userID, token string) (*models.User, error)
	Logout(ctx context.Context, userID string) error
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, token, password string) (*services.Session, error)
	UpdateProfile(ctx context.Context, userID, name, email, password string) (*models.User, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	ListUsers(ctx context.Context, page int) (*services.UserPage, error)
	DeleteUser(ctx context.Context, actorID, targetID string) error
}

type micropostService interface {
	Post(ctx context.Context, userID, content string) (*models.Micropost, error)
	Feed(ctx context.Context, userID string, page int) (*services.FeedPage, error)
	Delete(ctx context.Context, actorID, micropostID string) error
}

type GRPCServer struct {
	address    string
	users      userService
	microposts micropostService
	logger     logging.Logger
	metrics    *metrics.Metrics
}

func NewGRPCServer(a string, l logging.Logger, us userService, ms micropostService, m *metrics.Metrics) *GRPCServer {
	return &GRPCServer{
		address:    a,
		logger:     l.With("module", "grpc_server"),
		users:      us,
		microposts: ms,
		metrics:    m,
	}
}

// NewServer builds a grpc.Server with the interceptor chain and the
// Accounts service registered.
func (s *GRPCServer) NewServer(opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts, grpc.ChainUnaryInterceptor(s.metricsInterceptor, s.authInterceptor))
	srv := grpc.NewServer(opts...)
	srv.RegisterService(&accountsServiceDesc, s)
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := s.NewServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", s.address)

	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}

func (s *GRPCServer) metricsInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	if s.metrics != nil {
		s.metrics.ObserveRequest(info.FullMethod, status.Code(err).String(), time.Since(start))
	}
	return resp, err
}

// AccountsServer is the handler set of the sampleapp.Accounts service.
type AccountsServer interface {
	SignUp(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Activate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Login(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RequestPasswordReset(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ResetPassword(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetUser(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListUsers(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Logout(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateProfile(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteUser(context.Context, *structpb.Struct) (*structpb.Struct, error)
	PostMicropost(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Feed(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteMicropost(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "sampleapp.Accounts"

// FullMethod returns the "/service/method" path of an Accounts method.
func FullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

var accountsServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AccountsServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("SignUp", AccountsServer.SignUp),
		unary("Activate", AccountsServer.Activate),
		unary("Login", AccountsServer.Login),
		unary("RequestPasswordReset", AccountsServer.RequestPasswordReset),
		unary("ResetPassword", AccountsServer.ResetPassword),
		unary("GetUser", AccountsServer.GetUser),
		unary("ListUsers", AccountsServer.ListUsers),
		unary("Logout", AccountsServer.Logout),
		unary("UpdateProfile", AccountsServer.UpdateProfile),
		unary("DeleteUser", AccountsServer.DeleteUser),
		unary("PostMicropost", AccountsServer.PostMicropost),
		unary("Feed", AccountsServer.Feed),
		unary("DeleteMicropost", AccountsServer.DeleteMicropost),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "sampleapp/accounts",
}

type unaryMethod func(AccountsServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(name string, call unaryMethod) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(AccountsServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(AccountsServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}
