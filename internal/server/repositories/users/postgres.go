package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dmitrijs2005/sampleapp/internal/common"
	"github.com/dmitrijs2005/sampleapp/internal/dbx"
	"github.com/dmitrijs2005/sampleapp/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

const selectColumns = `id, name, email, password_digest, remember_digest, activation_digest,
		activated, activated_at, reset_digest, reset_sent_at, admin, created_at, updated_at`

var updatableColumns = map[models.Column]struct{}{
	models.ColumnName:             {},
	models.ColumnEmail:            {},
	models.ColumnPasswordDigest:   {},
	models.ColumnRememberDigest:   {},
	models.ColumnActivationDigest: {},
	models.ColumnActivated:        {},
	models.ColumnActivatedAt:      {},
	models.ColumnResetDigest:      {},
	models.ColumnResetSentAt:      {},
	models.ColumnAdmin:            {},
}

// PostgresRepository implements Repository over dbx.DBTX (satisfied by
// *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts the user. A duplicate email yields common.ErrorAlreadyExists.
func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (id, name, email, password_digest, activation_digest, activated, activated_at, admin)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.Name, user.Email, user.PasswordDigest, user.ActivationDigest,
		user.Activated, user.ActivatedAt, user.Admin).Scan(&user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		return nil, mapWriteError(err)
	}

	return user, nil
}

// GetByID returns common.ErrorNotFound for an id that is not a UUID without
// querying.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	id, ok := dbx.CanonicalID(id)
	if !ok {
		return nil, common.ErrorNotFound
	}

	query := `SELECT ` + selectColumns + ` FROM users
		 WHERE id = $1
		 `
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

// GetByEmail looks the user up by its lowercased email.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + selectColumns + ` FROM users
		 WHERE email = $1
		 `
	return scanUser(r.db.QueryRowContext(ctx, query, strings.ToLower(email)))
}

func (r *PostgresRepository) Update(ctx context.Context, user *models.User) error {
	id, ok := dbx.CanonicalID(user.ID)
	if !ok {
		return common.ErrorNotFound
	}

	query :=
		`UPDATE users SET name = $1, email = $2, password_digest = $3, updated_at = NOW()
		 WHERE id = $4
		 `

	res, err := r.db.ExecContext(ctx, query, user.Name, user.Email, user.PasswordDigest, id)
	if err != nil {
		return mapWriteError(err)
	}
	return requireAffected(res)
}

func (r *PostgresRepository) UpdateColumns(ctx context.Context, id string, cols models.Columns) error {
	if len(cols) == 0 {
		return nil
	}
	id, ok := dbx.CanonicalID(id)
	if !ok {
		return common.ErrorNotFound
	}

	names := make([]string, 0, len(cols))
	for c := range cols {
		if _, ok := updatableColumns[c]; !ok {
			return fmt.Errorf("unknown column %q", c)
		}
		names = append(names, string(c))
	}
	sort.Strings(names)

	sets := make([]string, 0, len(names)+1)
	args := make([]any, 0, len(names)+1)
	for i, name := range names {
		sets = append(sets, fmt.Sprintf("%s = $%d", name, i+1))
		args = append(args, cols[models.Column(name)])
	}
	sets = append(sets, "updated_at = NOW()")
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE users SET %s WHERE id = $%d`, strings.Join(sets, ", "), len(args))

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return mapWriteError(err)
	}
	return requireAffected(res)
}

// ListActivated returns activated users in sign-up order.
func (r *PostgresRepository) ListActivated(ctx context.Context, limit, offset int) ([]*models.User, error) {
	query := `SELECT ` + selectColumns + ` FROM users
		 WHERE activated = TRUE
		 ORDER BY created_at, id
		 LIMIT $1 OFFSET $2
		 `

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.User, 0, limit)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) CountActivated(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE activated = TRUE`).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

// Delete removes the user; its microposts go with it (ON DELETE CASCADE).
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	id, ok := dbx.CanonicalID(id)
	if !ok {
		return common.ErrorNotFound
	}

	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireAffected(res)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordDigest, &u.RememberDigest, &u.ActivationDigest,
		&u.Activated, &u.ActivatedAt, &u.ResetDigest, &u.ResetSentAt, &u.Admin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return common.ErrorAlreadyExists
	}
	return fmt.Errorf("db error: %w", err)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
