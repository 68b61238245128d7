package grpc

import (
	"context"

	"github.com/dmitrijs2005/sampleapp/internal/common"
	"github.com/dmitrijs2005/sampleapp/internal/logging"
	"github.com/dmitrijs2005/sampleapp/internal/server/metrics"
	"github.com/dmitrijs2005/sampleapp/internal/server/models"
	"github.com/dmitrijs2005/sampleapp/internal/server/services"
)

// fakeUsers accepts session token "good-session" for user "u-1" and the
// remember pair ("u-2", "good-remember").
type fakeUsers struct {
	err error

	signUpArgs  []string
	loginArgs   []any
	logoutID    string
	listPage    int
	deleteArgs  []string
	updateArgs  []string
	sessionUser *models.User
}

func (f *fakeUsers) session(remember bool) *services.Session {
	sess := &services.Session{User: f.sessionUser, SessionToken: "jwt"}
	if remember {
		sess.RememberToken = "rt"
	}
	return sess
}

func (f *fakeUsers) SignUp(_ context.Context, name, email, password string) (*models.User, error) {
	f.signUpArgs = []string{name, email, password}
	if f.err != nil {
		return nil, f.err
	}
	return &models.User{ID: "u-new", Name: name, Email: email}, nil
}

func (f *fakeUsers) Activate(context.Context, string, string) (*services.Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.session(false), nil
}

func (f *fakeUsers) Login(_ context.Context, email, password string, remember bool) (*services.Session, error) {
	f.loginArgs = []any{email, password, remember}
	if f.err != nil {
		return nil, f.err
	}
	return f.session(remember), nil
}

func (f *fakeUsers) Authenticate(_ context.Context, token string) (string, error) {
	switch token {
	case "good-session":
		return "u-1", nil
	case "old-session":
		return "", common.ErrTokenExpired
	default:
		return "", common.ErrInvalidToken
	}
}

func (f *fakeUsers) AuthenticateRemember(_ context.Context, userID, token string) (*models.User, error) {
	if userID == "u-2" && token == "good-remember" {
		return &models.User{ID: "u-2"}, nil
	}
	return nil, common.ErrorUnauthorized
}

func (f *fakeUsers) Logout(_ context.Context, userID string) error {
	f.logoutID = userID
	return f.err
}

func (f *fakeUsers) RequestPasswordReset(context.Context, string) error { return f.err }

func (f *fakeUsers) ResetPassword(context.Context, string, string, string) (*services.Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.session(false), nil
}

func (f *fakeUsers) UpdateProfile(_ context.Context, userID, name, email, password string) (*models.User, error) {
	f.updateArgs = []string{userID, name, email, password}
	if f.err != nil {
		return nil, f.err
	}
	return &models.User{ID: userID, Name: name, Email: email}, nil
}

func (f *fakeUsers) GetUser(_ context.Context, id string) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.User{ID: id, Name: "Michael", Email: "michael@example.com"}, nil
}

func (f *fakeUsers) ListUsers(_ context.Context, page int) (*services.UserPage, error) {
	f.listPage = page
	if f.err != nil {
		return nil, f.err
	}
	return &services.UserPage{
		Page:  services.Page{Number: 1, Size: 30, Total: 2, LastPage: 1},
		Users: []*models.User{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}},
	}, nil
}

func (f *fakeUsers) DeleteUser(_ context.Context, actorID, targetID string) error {
	f.deleteArgs = []string{actorID, targetID}
	return f.err
}

type fakeMicroposts struct {
	err      error
	feedUser string
	feedPage int
	postArgs []string
}

func (f *fakeMicroposts) Post(_ context.Context, userID, content string) (*models.Micropost, error) {
	f.postArgs = []string{userID, content}
	if f.err != nil {
		return nil, f.err
	}
	return &models.Micropost{ID: "m-1", UserID: userID, Content: content}, nil
}

func (f *fakeMicroposts) Feed(_ context.Context, userID string, page int) (*services.FeedPage, error) {
	f.feedUser, f.feedPage = userID, page
	if f.err != nil {
		return nil, f.err
	}
	return &services.FeedPage{
		Page:       services.Page{Number: 1, Size: 30, Total: 1, LastPage: 1},
		Microposts: []*models.Micropost{{ID: "m-1", UserID: userID, Content: "hi"}},
	}, nil
}

func (f *fakeMicroposts) Delete(context.Context, string, string) error { return f.err }

func newTestServer() (*GRPCServer, *fakeUsers, *fakeMicroposts) {
	us := &fakeUsers{sessionUser: &models.User{ID: "u-1", Name: "Michael", Email: "michael@example.com", Activated: true}}
	ms := &fakeMicroposts{}
	return NewGRPCServer("127.0.0.1:0", logging.Nop(), us, ms, metrics.New()), us, ms
}
