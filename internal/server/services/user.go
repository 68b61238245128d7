// Package services contains server-side business logic. This file implements
// UserService: sign-up with email activation, login with optional
// remember-me, password reset and the admin user directory.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/sampleapp/internal/common"
	"github.com/dmitrijs2005/sampleapp/internal/credentials"
	"github.com/dmitrijs2005/sampleapp/internal/dbx"
	"github.com/dmitrijs2005/sampleapp/internal/logging"
	"github.com/dmitrijs2005/sampleapp/internal/server/auth"
	"github.com/dmitrijs2005/sampleapp/internal/server/config"
	"github.com/dmitrijs2005/sampleapp/internal/server/mailer"
	"github.com/dmitrijs2005/sampleapp/internal/server/metrics"
	"github.com/dmitrijs2005/sampleapp/internal/server/models"
	"github.com/dmitrijs2005/sampleapp/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/sampleapp/internal/server/throttle"
	"github.com/google/uuid"
)

// Session is the result of a successful login. RememberToken is set only
// when the caller asked to be remembered.
type Session struct {
	User          *models.User
	SessionToken  string
	RememberToken string
}

// UserPage is one page of the user directory.
type UserPage struct {
	Page
	Users []*models.User
}

// Deps bundles the collaborators shared by the services.
type Deps struct {
	Credentials *credentials.Manager
	Mailer      mailer.Mailer
	Limiter     throttle.Limiter
	Metrics     *metrics.Metrics
	Logger      logging.Logger
}

type UserService struct {
	db              *sql.DB
	repomanager     repomanager.RepositoryManager
	creds           *credentials.Manager
	mailer          mailer.Mailer
	limiter         throttle.Limiter
	metrics         *metrics.Metrics
	log             logging.Logger
	jwtSecret       []byte
	sessionValidity time.Duration
	pageSize        int
	newID           func() string
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, deps Deps) *UserService {
	limiter := deps.Limiter
	if limiter == nil {
		limiter = throttle.Unlimited{}
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 30
	}
	return &UserService{
		db:              db,
		repomanager:     m,
		creds:           deps.Credentials,
		mailer:          deps.Mailer,
		limiter:         limiter,
		metrics:         deps.Metrics,
		log:             deps.Logger.With("module", "user_service"),
		jwtSecret:       []byte(cfg.SecretKey),
		sessionValidity: cfg.SessionValidityDuration,
		pageSize:        pageSize,
		newID:           uuid.NewString,
	}
}

// SignUp creates an inactive account and mails its activation link.
// A duplicate email is reported as a validation error on "email".
func (s *UserService) SignUp(ctx context.Context, name, email, password string) (*models.User, error) {
	user := &models.User{ID: s.newID(), Name: name, Email: email}
	user.NormalizeEmail()

	if err := collectValidation(user.Validate(), s.creds.SetPassword(user, password)); err != nil {
		return nil, err
	}

	token, err := s.creds.CreateActivationDigest(user)
	if err != nil {
		return nil, fmt.Errorf("error creating activation digest: %w", err)
	}

	user, err = s.repomanager.Users(s.db).Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, emailTaken()
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	if err := s.mailer.SendActivation(ctx, user, token); err != nil {
		return nil, fmt.Errorf("error sending activation email: %w", err)
	}
	s.metrics.EmailSent(credentials.KindActivation.String())
	s.log.Info(ctx, "user signed up", "user_id", user.ID, "email", user.Email)

	return user, nil
}

// CreateAdmin creates an activated administrator without sending email.
func (s *UserService) CreateAdmin(ctx context.Context, name, email, password string) (*models.User, error) {
	now := s.creds.Now()
	user := &models.User{ID: s.newID(), Name: name, Email: email, Admin: true, Activated: true, ActivatedAt: &now}
	user.NormalizeEmail()

	if err := collectValidation(user.Validate(), s.creds.SetPassword(user, password)); err != nil {
		return nil, err
	}

	user, err := s.repomanager.Users(s.db).Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, emailTaken()
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	s.log.Info(ctx, "admin created", "user_id", user.ID, "email", user.Email)
	return user, nil
}

// Activate consumes an activation token. It fails with
// common.ErrInvalidToken for an unknown email, an already activated account
// or a token that does not match.
func (s *UserService) Activate(ctx context.Context, email, token string) (*Session, error) {
	repo := s.repomanager.Users(s.db)

	user, err := s.findByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.metrics.AuthAttempt(credentials.KindActivation.String(), metrics.OutcomeFailure)
			return nil, common.ErrInvalidToken
		}
		return nil, err
	}

	if user.Activated || !s.creds.Authenticated(user, credentials.KindActivation, token) {
		s.metrics.AuthAttempt(credentials.KindActivation.String(), metrics.OutcomeFailure)
		return nil, common.ErrInvalidToken
	}

	if err := s.creds.Activate(ctx, repo, user); err != nil {
		return nil, fmt.Errorf("error activating user: %w", err)
	}
	s.metrics.AuthAttempt(credentials.KindActivation.String(), metrics.OutcomeSuccess)
	s.log.Info(ctx, "account activated", "user_id", user.ID)

	return s.startSession(user)
}

// Login checks email and password. With remember set a fresh remember
// token is issued; otherwise any stored remember digest is cleared.
func (s *UserService) Login(ctx context.Context, email, password string, remember bool) (*Session, error) {
	const kind = "password"

	if err := s.throttle(ctx, "login", email, kind); err != nil {
		return nil, err
	}

	user, err := s.findByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.metrics.AuthAttempt(kind, metrics.OutcomeFailure)
			return nil, common.ErrorUnauthorized
		}
		return nil, err
	}

	if !s.creds.AuthenticatePassword(user, password) {
		s.metrics.AuthAttempt(kind, metrics.OutcomeFailure)
		return nil, common.ErrorUnauthorized
	}

	if !user.Activated {
		s.metrics.AuthAttempt(kind, metrics.OutcomeFailure)
		return nil, common.ErrAccountNotActivated
	}

	repo := s.repomanager.Users(s.db)
	if remember {
		if _, err := s.creds.Remember(ctx, repo, user); err != nil {
			return nil, err
		}
	} else if err := s.creds.Forget(ctx, repo, user); err != nil {
		return nil, err
	}

	s.metrics.AuthAttempt(kind, metrics.OutcomeSuccess)
	s.log.Info(ctx, "user logged in", "user_id", user.ID, "remember", remember)

	return s.startSession(user)
}

// Authenticate resolves a session token to a user id.
func (s *UserService) Authenticate(ctx context.Context, sessionToken string) (string, error) {
	userID, err := auth.GetUserIDFromToken(sessionToken, s.jwtSecret)
	if err != nil {
		s.metrics.AuthAttempt("session", metrics.OutcomeFailure)
		return "", err
	}
	return userID, nil
}

// AuthenticateRemember resolves the remember-me pair (user id, raw token).
func (s *UserService) AuthenticateRemember(ctx context.Context, userID, token string) (*models.User, error) {
	kind := credentials.KindRemember.String()

	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.metrics.AuthAttempt(kind, metrics.OutcomeFailure)
			return nil, common.ErrorUnauthorized
		}
		return nil, err
	}

	if !s.creds.Authenticated(user, credentials.KindRemember, token) {
		s.metrics.AuthAttempt(kind, metrics.OutcomeFailure)
		return nil, common.ErrorUnauthorized
	}

	s.metrics.AuthAttempt(kind, metrics.OutcomeSuccess)
	return user, nil
}

// Logout forgets the user's remember token. Session tokens simply expire.
func (s *UserService) Logout(ctx context.Context, userID string) error {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.creds.Forget(ctx, repo, user); err != nil {
		return err
	}
	s.log.Info(ctx, "user logged out", "user_id", userID)
	return nil
}

// RequestPasswordReset issues a reset token and mails it. An unknown email
// yields common.ErrorNotFound.
func (s *UserService) RequestPasswordReset(ctx context.Context, email string) error {
	if err := s.throttle(ctx, "reset", email, credentials.KindReset.String()); err != nil {
		return err
	}

	user, err := s.findByEmail(ctx, email)
	if err != nil {
		return err
	}

	token, err := s.creds.CreateResetDigest(ctx, s.repomanager.Users(s.db), user)
	if err != nil {
		return err
	}

	if err := s.mailer.SendPasswordReset(ctx, user, token); err != nil {
		return fmt.Errorf("error sending reset email: %w", err)
	}
	s.metrics.EmailSent(credentials.KindReset.String())
	s.log.Info(ctx, "password reset requested", "user_id", user.ID)
	return nil
}

// ResetPassword sets a new password using a reset token. The token must
// belong to an activated user and be younger than the reset validity
// window. The new digest is stored and the reset digest cleared in one
// transaction, after which the user is logged in.
func (s *UserService) ResetPassword(ctx context.Context, email, token, password string) (*Session, error) {
	kind := credentials.KindReset.String()

	user, err := s.findByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.metrics.AuthAttempt(kind, metrics.OutcomeFailure)
			return nil, common.ErrInvalidToken
		}
		return nil, err
	}

	if !user.Activated || !s.creds.Authenticated(user, credentials.KindReset, token) {
		s.metrics.AuthAttempt(kind, metrics.OutcomeFailure)
		return nil, common.ErrInvalidToken
	}

	if s.creds.IsResetExpired(user) {
		s.metrics.AuthAttempt(kind, metrics.OutcomeFailure)
		return nil, common.ErrTokenExpired
	}

	if err := s.creds.SetPassword(user, password); err != nil {
		return nil, err
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repomanager.Users(tx).UpdateColumns(ctx, user.ID, models.Columns{
			models.ColumnPasswordDigest: user.PasswordDigest,
			models.ColumnResetDigest:    nil,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("error saving new password: %w", err)
	}
	user.ResetDigest = nil
	user.ResetToken = ""

	s.metrics.AuthAttempt(kind, metrics.OutcomeSuccess)
	s.log.Info(ctx, "password reset", "user_id", user.ID)

	return s.startSession(user)
}

// UpdateProfile changes name, email and optionally the password. A blank
// password keeps the current one.
func (s *UserService) UpdateProfile(ctx context.Context, userID, name, email, password string) (*models.User, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	user.Name = name
	user.Email = email
	user.NormalizeEmail()

	var pwErr error
	if password != "" {
		pwErr = s.creds.SetPassword(user, password)
	}
	if err := collectValidation(user.Validate(), pwErr); err != nil {
		return nil, err
	}

	if err := repo.Update(ctx, user); err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, emailTaken()
		}
		return nil, fmt.Errorf("error updating user: %w", err)
	}
	return user, nil
}

// GetUser returns an activated user. Inactive accounts are reported as
// not found.
func (s *UserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !user.Activated {
		return nil, common.ErrorNotFound
	}
	return user, nil
}

// ListUsers pages through activated users in sign-up order.
func (s *UserService) ListUsers(ctx context.Context, page int) (*UserPage, error) {
	repo := s.repomanager.Users(s.db)
	p, offset := newPage(page, s.pageSize)

	users, err := repo.ListActivated(ctx, p.Size, offset)
	if err != nil {
		return nil, err
	}
	total, err := repo.CountActivated(ctx)
	if err != nil {
		return nil, err
	}
	p.setTotal(total)

	return &UserPage{Page: p, Users: users}, nil
}

// DeleteUser removes targetID. Only administrators may delete users; the
// target's microposts are removed with it.
func (s *UserService) DeleteUser(ctx context.Context, actorID, targetID string) error {
	repo := s.repomanager.Users(s.db)

	actor, err := repo.GetByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorUnauthorized
		}
		return err
	}
	if !actor.Admin {
		return common.ErrorForbidden
	}

	if err := repo.Delete(ctx, targetID); err != nil {
		return err
	}
	s.log.Info(ctx, "user deleted", "user_id", targetID, "by", actorID)
	return nil
}

func (s *UserService) findByEmail(ctx context.Context, email string) (*models.User, error) {
	probe := models.User{Email: email}
	probe.NormalizeEmail()
	return s.repomanager.Users(s.db).GetByEmail(ctx, probe.Email)
}

func (s *UserService) throttle(ctx context.Context, op, email, kind string) error {
	probe := models.User{Email: email}
	probe.NormalizeEmail()

	d := s.limiter.Allow(ctx, op+":"+probe.Email)
	if d.Allowed {
		return nil
	}
	s.metrics.AuthAttempt(kind, metrics.OutcomeThrottled)
	s.log.Warn(ctx, "attempt throttled", "op", op, "email", probe.Email, "retry_after", d.RetryAfter)
	return common.ErrTooManyRequests
}

func (s *UserService) startSession(user *models.User) (*Session, error) {
	token, err := auth.GenerateToken(user.ID, s.jwtSecret, s.sessionValidity)
	if err != nil {
		return nil, fmt.Errorf("error generating session token: %w", err)
	}
	return &Session{User: user, SessionToken: token, RememberToken: user.RememberToken}, nil
}
