// Package microposts provides PostgreSQL-backed storage for short user posts.
package microposts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/sampleapp/internal/common"
	"github.com/dmitrijs2005/sampleapp/internal/dbx"
	"github.com/dmitrijs2005/sampleapp/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

const foreignKeyViolation = "23503"

// PostgresRepository implements micropost storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts m. An author that no longer exists yields
// common.ErrorNotFound.
func (r *PostgresRepository) Create(ctx context.Context, m *models.Micropost) (*models.Micropost, error) {
	query := `
		INSERT INTO microposts (id, user_id, content)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`
	if err := r.db.QueryRowContext(ctx, query, m.ID, m.UserID, m.Content).Scan(&m.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return m, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Micropost, error) {
	id, ok := dbx.CanonicalID(id)
	if !ok {
		return nil, common.ErrorNotFound
	}

	query := `SELECT id, user_id, content, created_at FROM microposts WHERE id = $1`

	m := &models.Micropost{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&m.ID, &m.UserID, &m.Content, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return m, nil
}

// Feed pages through userID's microposts ordered by created_at descending;
// id breaks ties so paging is stable. A userID that is not a UUID yields
// common.ErrorNotFound.
func (r *PostgresRepository) Feed(ctx context.Context, userID string, limit, offset int) ([]*models.Micropost, error) {
	userID, ok := dbx.CanonicalID(userID)
	if !ok {
		return nil, common.ErrorNotFound
	}

	query := ` SELECT id, user_id, content, created_at FROM microposts
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
		`
	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to select microposts: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Micropost, 0, limit)
	for rows.Next() {
		var item models.Micropost
		if err := rows.Scan(&item.ID, &item.UserID, &item.Content, &item.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	userID, ok := dbx.CanonicalID(userID)
	if !ok {
		return 0, common.ErrorNotFound
	}

	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM microposts WHERE user_id = $1`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	id, ok := dbx.CanonicalID(id)
	if !ok {
		return common.ErrorNotFound
	}

	res, err := r.db.ExecContext(ctx, `DELETE FROM microposts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
