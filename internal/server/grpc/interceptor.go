package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/sampleapp/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const userIDKey ctxKey = "userID"

// publicMethods need no credentials.
var publicMethods = map[string]struct{}{
	FullMethod("SignUp"):               {},
	FullMethod("Activate"):             {},
	FullMethod("Login"):                {},
	FullMethod("RequestPasswordReset"): {},
	FullMethod("ResetPassword"):        {},
	FullMethod("GetUser"):              {},
	FullMethod("ListUsers"):            {},
}

// authInterceptor resolves the caller for non-public methods from either a
// session token or the remember-me pair (user id, remember token).
func (s *GRPCServer) authInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if _, ok := publicMethods[info.FullMethod]; ok {
		return handler(ctx, req)
	}

	md, _ := metadata.FromIncomingContext(ctx)

	var userID string
	switch {
	case first(md, common.SessionTokenHeaderName) != "":
		id, err := s.users.Authenticate(ctx, first(md, common.SessionTokenHeaderName))
		if err != nil {
			if errors.Is(err, common.ErrTokenExpired) {
				return nil, status.Error(codes.Unauthenticated, "session expired")
			}
			return nil, status.Error(codes.Unauthenticated, "invalid session")
		}
		userID = id

	case first(md, common.UserIDHeaderName) != "" && first(md, common.RememberTokenHeaderName) != "":
		u, err := s.users.AuthenticateRemember(ctx, first(md, common.UserIDHeaderName), first(md, common.RememberTokenHeaderName))
		if err != nil {
			if errors.Is(err, common.ErrorUnauthorized) {
				return nil, status.Error(codes.Unauthenticated, "invalid remember token")
			}
			return nil, s.toStatus(ctx, err)
		}
		userID = u.ID

	default:
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	return handler(context.WithValue(ctx, userIDKey, userID), req)
}

func first(md metadata.MD, key string) string {
	if values := md.Get(key); len(values) > 0 {
		return values[0]
	}
	return ""
}

func userIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}
