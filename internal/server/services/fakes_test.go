package services

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/sampleapp/internal/common"
	"github.com/dmitrijs2005/sampleapp/internal/credentials"
	"github.com/dmitrijs2005/sampleapp/internal/dbx"
	"github.com/dmitrijs2005/sampleapp/internal/logging"
	"github.com/dmitrijs2005/sampleapp/internal/server/config"
	"github.com/dmitrijs2005/sampleapp/internal/server/metrics"
	"github.com/dmitrijs2005/sampleapp/internal/server/models"
	"github.com/dmitrijs2005/sampleapp/internal/server/repositories/microposts"
	"github.com/dmitrijs2005/sampleapp/internal/server/repositories/users"
	"github.com/dmitrijs2005/sampleapp/internal/server/throttle"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// memUsers is an in-memory users.Repository. It hands out copies so that
// callers only observe persisted state through the repository.
type memUsers struct {
	rows      map[string]*models.User
	order     []string
	seq       int
	updateErr error
}

func newMemUsers() *memUsers {
	return &memUsers{rows: map[string]*models.User{}}
}

func (r *memUsers) emailTaken(email, exceptID string) bool {
	for id, u := range r.rows {
		if id != exceptID && u.Email == strings.ToLower(email) {
			return true
		}
	}
	return false
}

func (r *memUsers) Create(_ context.Context, u *models.User) (*models.User, error) {
	if r.emailTaken(u.Email, "") {
		return nil, common.ErrorAlreadyExists
	}
	r.seq++
	u.CreatedAt = time.Date(2024, 1, 1, 0, 0, r.seq, 0, time.UTC)
	u.UpdatedAt = u.CreatedAt
	stored := *u
	r.rows[u.ID] = &stored
	r.order = append(r.order, u.ID)
	return u, nil
}

func (r *memUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	u, ok := r.rows[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	out := *u
	return &out, nil
}

func (r *memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range r.rows {
		if u.Email == strings.ToLower(email) {
			out := *u
			return &out, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *memUsers) Update(_ context.Context, u *models.User) error {
	stored, ok := r.rows[u.ID]
	if !ok {
		return common.ErrorNotFound
	}
	if r.emailTaken(u.Email, u.ID) {
		return common.ErrorAlreadyExists
	}
	stored.Name, stored.Email, stored.PasswordDigest = u.Name, u.Email, u.PasswordDigest
	return nil
}

func (r *memUsers) UpdateColumns(_ context.Context, id string, cols models.Columns) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	u, ok := r.rows[id]
	if !ok {
		return common.ErrorNotFound
	}
	for c, v := range cols {
		switch c {
		case models.ColumnPasswordDigest:
			u.PasswordDigest = v.(string)
		case models.ColumnRememberDigest:
			u.RememberDigest = strPtr(v)
		case models.ColumnActivationDigest:
			u.ActivationDigest = strPtr(v)
		case models.ColumnResetDigest:
			u.ResetDigest = strPtr(v)
		case models.ColumnActivated:
			u.Activated = v.(bool)
		case models.ColumnAdmin:
			u.Admin = v.(bool)
		case models.ColumnActivatedAt:
			u.ActivatedAt = timePtr(v)
		case models.ColumnResetSentAt:
			u.ResetSentAt = timePtr(v)
		}
	}
	return nil
}

func (r *memUsers) activated() []*models.User {
	var out []*models.User
	for _, id := range r.order {
		if u, ok := r.rows[id]; ok && u.Activated {
			c := *u
			out = append(out, &c)
		}
	}
	return out
}

func (r *memUsers) ListActivated(_ context.Context, limit, offset int) ([]*models.User, error) {
	all := r.activated()
	if offset >= len(all) {
		return []*models.User{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (r *memUsers) CountActivated(context.Context) (int, error) {
	return len(r.activated()), nil
}

func (r *memUsers) Delete(_ context.Context, id string) error {
	if _, ok := r.rows[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.rows, id)
	return nil
}

func strPtr(v any) *string {
	if v == nil {
		return nil
	}
	s := v.(string)
	return &s
}

func timePtr(v any) *time.Time {
	if v == nil {
		return nil
	}
	t := v.(time.Time)
	return &t
}

type memMicroposts struct {
	rows      []*models.Micropost
	seq       int
	createErr error
}

func (r *memMicroposts) Create(_ context.Context, m *models.Micropost) (*models.Micropost, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	r.seq++
	m.CreatedAt = time.Date(2024, 1, 1, 0, r.seq, 0, 0, time.UTC)
	stored := *m
	r.rows = append(r.rows, &stored)
	return m, nil
}

func (r *memMicroposts) GetByID(_ context.Context, id string) (*models.Micropost, error) {
	for _, m := range r.rows {
		if m.ID == id {
			out := *m
			return &out, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *memMicroposts) byUser(userID string) []*models.Micropost {
	var out []*models.Micropost
	for _, m := range r.rows {
		if m.UserID == userID {
			c := *m
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *memMicroposts) Feed(_ context.Context, userID string, limit, offset int) ([]*models.Micropost, error) {
	all := r.byUser(userID)
	if offset >= len(all) {
		return []*models.Micropost{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (r *memMicroposts) CountByUser(_ context.Context, userID string) (int, error) {
	return len(r.byUser(userID)), nil
}

func (r *memMicroposts) Delete(_ context.Context, id string) error {
	for i, m := range r.rows {
		if m.ID == id {
			r.rows = append(r.rows[:i], r.rows[i+1:]...)
			return nil
		}
	}
	return common.ErrorNotFound
}

type fakeRepoManager struct {
	u *memUsers
	m *memMicroposts
}

func (f *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (f *fakeRepoManager) Users(dbx.DBTX) users.Repository              { return f.u }
func (f *fakeRepoManager) Microposts(dbx.DBTX) microposts.Repository    { return f.m }

type sentMail struct {
	kind  string
	to    string
	token string
}

type recMailer struct {
	sent []sentMail
	err  error
}

func (m *recMailer) SendActivation(_ context.Context, u *models.User, token string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{kind: "activation", to: u.Email, token: token})
	return nil
}

func (m *recMailer) SendPasswordReset(_ context.Context, u *models.User, token string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{kind: "reset", to: u.Email, token: token})
	return nil
}

func (m *recMailer) last() sentMail {
	if len(m.sent) == 0 {
		return sentMail{}
	}
	return m.sent[len(m.sent)-1]
}

type denyLimiter struct{ keys []string }

func (l *denyLimiter) Allow(_ context.Context, key string) throttle.Decision {
	l.keys = append(l.keys, key)
	return throttle.Decision{Allowed: false, Count: 6, RetryAfter: time.Minute}
}

func (l *denyLimiter) Close() error { return nil }

type testClock struct{ t time.Time }

func (c *testClock) now() time.Time { return c.t }

type testEnv struct {
	db      *sql.DB
	mock    sqlmock.Sqlmock
	users   *memUsers
	posts   *memMicroposts
	mail    *recMailer
	clock   *testClock
	metrics *metrics.Metrics
	cfg     *config.Config
	svc     *UserService
	posting *MicropostService
}

func newTestEnv(t *testing.T, limiter throttle.Limiter) *testEnv {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	h, err := credentials.NewHasher(bcrypt.MinCost)
	require.NoError(t, err)

	e := &testEnv{
		db:      db,
		mock:    mock,
		users:   newMemUsers(),
		posts:   &memMicroposts{},
		mail:    &recMailer{},
		clock:   &testClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)},
		metrics: metrics.New(),
		cfg: &config.Config{
			SecretKey:               "k",
			SessionValidityDuration: time.Hour,
			PageSize:                2,
		},
	}
	rm := &fakeRepoManager{u: e.users, m: e.posts}
	creds := credentials.NewManager(h, credentials.WithClock(e.clock.now))

	e.svc = NewUserService(db, rm, e.cfg, Deps{
		Credentials: creds,
		Mailer:      e.mail,
		Limiter:     limiter,
		Metrics:     e.metrics,
		Logger:      logging.Nop(),
	})
	e.posting = NewMicropostService(db, rm, e.cfg, logging.Nop())
	return e
}

// activeUser signs up and activates an account.
func (e *testEnv) activeUser(t *testing.T, name, email, password string) *models.User {
	t.Helper()
	u, err := e.svc.SignUp(context.Background(), name, email, password)
	require.NoError(t, err)
	_, err = e.svc.Activate(context.Background(), email, e.mail.last().token)
	require.NoError(t, err)
	return u
}

func (e *testEnv) makeAdmin(id string) {
	e.users.rows[id].Admin = true
}
