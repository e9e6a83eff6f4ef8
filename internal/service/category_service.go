package service

import (
	"context"

	"dayrally/internal/apperr"
	"dayrally/internal/model"
	"dayrally/internal/repository"
)

// CategoryService provides helpers around categories.
type CategoryService struct {
	repo *repository.CategoryRepository
}

func NewCategoryService(repo *repository.CategoryRepository) *CategoryService {
	return &CategoryService{repo: repo}
}

func (s *CategoryService) List(ctx context.Context, user *model.User) ([]model.Category, error) {
	return s.repo.ListByUser(ctx, user.ID)
}

// Names maps category ids to names for rendering task lists.
func (s *CategoryService) Names(ctx context.Context, user *model.User) (map[uint]string, error) {
	return s.repo.NamesByUser(ctx, user.ID)
}

// Get returns one of the user's categories.
func (s *CategoryService) Get(ctx context.Context, user *model.User, id uint) (*model.Category, error) {
	category, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if category.UserID != user.ID {
		return nil, apperr.E("get category", apperr.ErrNotFound, "", nil)
	}
	return category, nil
}
