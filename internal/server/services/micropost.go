package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/sampleapp/internal/common"
	"github.com/dmitrijs2005/sampleapp/internal/logging"
	"github.com/dmitrijs2005/sampleapp/internal/server/config"
	"github.com/dmitrijs2005/sampleapp/internal/server/models"
	"github.com/dmitrijs2005/sampleapp/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// FeedPage is one page of a user's microposts, newest first.
type FeedPage struct {
	Page
	Microposts []*models.Micropost
}

// MicropostService manages the short posts users publish.
type MicropostService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	log         logging.Logger
	pageSize    int
	newID       func() string
}

func NewMicropostService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, log logging.Logger) *MicropostService {
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 30
	}
	return &MicropostService{
		db:          db,
		repomanager: m,
		log:         log.With("module", "micropost_service"),
		pageSize:    pageSize,
		newID:       uuid.NewString,
	}
}

func (s *MicropostService) Post(ctx context.Context, userID, content string) (*models.Micropost, error) {
	m := &models.Micropost{ID: s.newID(), UserID: userID, Content: content}
	if err := m.Validate(); err != nil {
		return nil, err
	}

	m, err := s.repomanager.Microposts(s.db).Create(ctx, m)
	if err != nil {
		// the author was deleted while its session token is still valid
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("error creating micropost: %w", err)
	}
	return m, nil
}

func (s *MicropostService) Feed(ctx context.Context, userID string, page int) (*FeedPage, error) {
	repo := s.repomanager.Microposts(s.db)
	p, offset := newPage(page, s.pageSize)

	items, err := repo.Feed(ctx, userID, p.Size, offset)
	if err != nil {
		return nil, err
	}
	total, err := repo.CountByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	p.setTotal(total)

	return &FeedPage{Page: p, Microposts: items}, nil
}

// Delete removes a micropost. Owners may delete their own posts and
// administrators any post.
func (s *MicropostService) Delete(ctx context.Context, actorID, micropostID string) error {
	repo := s.repomanager.Microposts(s.db)

	m, err := repo.GetByID(ctx, micropostID)
	if err != nil {
		return err
	}

	if m.UserID != actorID {
		actor, err := s.repomanager.Users(s.db).GetByID(ctx, actorID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrorUnauthorized
			}
			return err
		}
		if !actor.Admin {
			return common.ErrorForbidden
		}
	}

	if err := repo.Delete(ctx, micropostID); err != nil {
		return err
	}
	s.log.Info(ctx, "micropost deleted", "micropost_id", micropostID, "by", actorID)
	return nil
}
