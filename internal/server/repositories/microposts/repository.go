package microposts

import (
	"context"

	"github.com/dmitrijs2005/sampleapp/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, m *models.Micropost) (*models.Micropost, error)
	GetByID(ctx context.Context, id string) (*models.Micropost, error)
	// Feed returns userID's microposts, newest first.
	Feed(ctx context.Context, userID string, limit, offset int) ([]*models.Micropost, error)
	CountByUser(ctx context.Context, userID string) (int, error)
	Delete(ctx context.Context, id string) error
}
