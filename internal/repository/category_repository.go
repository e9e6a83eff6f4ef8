package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"dayrally/internal/apperr"
	"dayrally/internal/model"
)

// CategoryRepository manages task categories.
type CategoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// GetOrCreate returns nil for an empty name, meaning "no category".
func (r *CategoryRepository) GetOrCreate(ctx context.Context, userID uint, name string) (*model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}

	var category model.Category
	db := r.db.WithContext(ctx)
	err := db.Where("user_id = ? AND name = ?", userID, name).First(&category).Error
	switch {
	case err == nil:
		return &category, nil
	case err == gorm.ErrRecordNotFound:
		category = model.Category{UserID: userID, Name: name}
		if err := db.Create(&category).Error; err != nil {
			return nil, apperr.Store("create category", err)
		}
		return &category, nil
	default:
		return nil, apperr.Store("find category", err)
	}
}

func (r *CategoryRepository) ListByUser(ctx context.Context, userID uint) ([]model.Category, error) {
	var categories []model.Category
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, apperr.Store("list categories", err)
	}
	return categories, nil
}

func (r *CategoryRepository) GetByID(ctx context.Context, id uint) (*model.Category, error) {
	var category model.Category
	if err := r.db.WithContext(ctx).First(&category, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.E("get category", apperr.ErrNotFound, "", err)
		}
		return nil, apperr.Store("get category", err)
	}
	return &category, nil
}

// NamesByUser maps category ids to names for rendering task lists.
func (r *CategoryRepository) NamesByUser(ctx context.Context, userID uint) (map[uint]string, error) {
	categories, err := r.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	names := make(map[uint]string, len(categories))
	for _, cat := range categories {
		names[cat.ID] = cat.Name
	}
	return names, nil
}
