package grpc

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/sampleapp/internal/common"
	"github.com/dmitrijs2005/sampleapp/internal/server/models"
	"github.com/dmitrijs2005/sampleapp/internal/server/services"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

func (s *GRPCServer) SignUp(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := checkConfirmation(req); err != nil {
		return nil, s.toStatus(ctx, err)
	}

	u, err := s.users.SignUp(ctx, str(req, "name"), str(req, "email"), str(req, "password"))
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return respond(map[string]any{"user": userFields(u, true)})
}

func (s *GRPCServer) Activate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.users.Activate(ctx, str(req, "email"), str(req, "token"))
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return respond(sessionFields(sess))
}

func (s *GRPCServer) Login(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.users.Login(ctx, str(req, "email"), str(req, "password"), boolean(req, "remember"))
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return respond(sessionFields(sess))
}

func (s *GRPCServer) RequestPasswordReset(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := s.users.RequestPasswordReset(ctx, str(req, "email")); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return respond(nil)
}

func (s *GRPCServer) ResetPassword(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := checkConfirmation(req); err != nil {
		return nil, s.toStatus(ctx, err)
	}

	sess, err := s.users.ResetPassword(ctx, str(req, "email"), str(req, "token"), str(req, "password"))
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return respond(sessionFields(sess))
}

func (s *GRPCServer) GetUser(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	u, err := s.users.GetUser(ctx, str(req, "id"))
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return respond(map[string]any{"user": userFields(u, false)})
}

func (s *GRPCServer) ListUsers(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	page, err := s.users.ListUsers(ctx, integer(req, "page"))
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	items := make([]any, 0, len(page.Users))
	for _, u := range page.Users {
		items = append(items, userFields(u, false))
	}
	return respond(map[string]any{"users": items, "page": pageFields(page.Page)})
}

func (s *GRPCServer) Logout(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	userID, ok := userIDFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthenticated")
	}
	if err := s.users.Logout(ctx, userID); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return respond(nil)
}

func (s *GRPCServer) UpdateProfile(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, ok := userIDFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthenticated")
	}
	if err := checkConfirmation(req); err != nil {
		return nil, s.toStatus(ctx, err)
	}

	u, err := s.users.UpdateProfile(ctx, userID, str(req, "name"), str(req, "email"), str(req, "password"))
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return respond(map[string]any{"user": userFields(u, true)})
}

func (s *GRPCServer) DeleteUser(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, ok := userIDFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthenticated")
	}
	if err := s.users.DeleteUser(ctx, userID, str(req, "id")); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return respond(nil)
}

func (s *GRPCServer) PostMicropost(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, ok := userIDFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthenticated")
	}

	m, err := s.microposts.Post(ctx, userID, str(req, "content"))
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return respond(map[string]any{"micropost": micropostFields(m)})
}

// Feed lists the microposts of "user_id", defaulting to the caller.
func (s *GRPCServer) Feed(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, ok := userIDFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthenticated")
	}
	if other := str(req, "user_id"); other != "" {
		userID = other
	}

	page, err := s.microposts.Feed(ctx, userID, integer(req, "page"))
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	items := make([]any, 0, len(page.Microposts))
	for _, m := range page.Microposts {
		items = append(items, micropostFields(m))
	}
	return respond(map[string]any{"microposts": items, "page": pageFields(page.Page)})
}

func (s *GRPCServer) DeleteMicropost(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, ok := userIDFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthenticated")
	}
	if err := s.microposts.Delete(ctx, userID, str(req, "id")); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return respond(nil)
}

// toStatus maps service errors to gRPC statuses. Unknown errors are logged
// and reported as Internal without their text.
func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	var verrs models.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		return status.Error(codes.InvalidArgument, verrs.Error())
	case errors.Is(err, common.ErrorUnauthorized):
		return status.Error(codes.Unauthenticated, "invalid email/password combination")
	case errors.Is(err, common.ErrInvalidToken):
		return status.Error(codes.Unauthenticated, "invalid token")
	case errors.Is(err, common.ErrTokenExpired):
		return status.Error(codes.DeadlineExceeded, "token has expired")
	case errors.Is(err, common.ErrAccountNotActivated):
		return status.Error(codes.FailedPrecondition, "account not activated")
	case errors.Is(err, common.ErrorForbidden):
		return status.Error(codes.PermissionDenied, "forbidden")
	case errors.Is(err, common.ErrorNotFound):
		return status.Error(codes.NotFound, "not found")
	case errors.Is(err, common.ErrorAlreadyExists):
		return status.Error(codes.AlreadyExists, "already exists")
	case errors.Is(err, common.ErrTooManyRequests):
		return status.Error(codes.ResourceExhausted, "too many attempts, try again later")
	default:
		s.logger.Error(ctx, "request failed", "error", err)
		return status.Error(codes.Internal, "internal error")
	}
}

// checkConfirmation rejects a request whose password_confirmation is
// present and differs from password.
func checkConfirmation(req *structpb.Struct) error {
	v, ok := req.GetFields()["password_confirmation"]
	if !ok {
		return nil
	}
	if v.GetStringValue() != str(req, "password") {
		return models.ValidationErrors{{Field: "password_confirmation", Rule: models.RuleConfirmation}}
	}
	return nil
}

func str(req *structpb.Struct, key string) string {
	return req.GetFields()[key].GetStringValue()
}

func boolean(req *structpb.Struct, key string) bool {
	return req.GetFields()[key].GetBoolValue()
}

func integer(req *structpb.Struct, key string) int {
	return int(req.GetFields()[key].GetNumberValue())
}

func respond(fields map[string]any) (*structpb.Struct, error) {
	if fields == nil {
		fields = map[string]any{}
	}
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Error(codes.Internal, "internal error")
	}
	return out, nil
}

func userFields(u *models.User, withEmail bool) map[string]any {
	fields := map[string]any{
		"id":         u.ID,
		"name":       u.Name,
		"admin":      u.Admin,
		"created_at": u.CreatedAt.UTC().Format(time.RFC3339),
	}
	if withEmail {
		fields["email"] = u.Email
		fields["activated"] = u.Activated
	}
	return fields
}

func sessionFields(sess *services.Session) map[string]any {
	fields := map[string]any{
		"user":          userFields(sess.User, true),
		"session_token": sess.SessionToken,
	}
	if sess.RememberToken != "" {
		fields["remember_token"] = sess.RememberToken
	}
	return fields
}

func micropostFields(m *models.Micropost) map[string]any {
	return map[string]any{
		"id":         m.ID,
		"user_id":    m.UserID,
		"content":    m.Content,
		"created_at": m.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func pageFields(p services.Page) map[string]any {
	return map[string]any{
		"number":    p.Number,
		"size":      p.Size,
		"total":     p.Total,
		"last_page": p.LastPage,
	}
}
