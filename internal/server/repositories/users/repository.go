// Package users persists models.User rows.
package users

import (
	"context"

	"github.com/dmitrijs2005/sampleapp/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// Update saves name, email and password digest of a validated user.
	Update(ctx context.Context, user *models.User) error

	// UpdateColumns writes only the given columns. It does not validate
	// the row; callers use it for credential state changes.
	UpdateColumns(ctx context.Context, id string, cols models.Columns) error

	ListActivated(ctx context.Context, limit, offset int) ([]*models.User, error)
	CountActivated(ctx context.Context) (int, error)
	Delete(ctx context.Context, id string) error
}
