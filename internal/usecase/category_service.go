package usecase

import (
	"context"
	"fmt"

	"github.com/hszk-dev/gotube/internal/domain/model"
	"github.com/hszk-dev/gotube/internal/domain/repository"
)

// CategoryService defines category operations.
type CategoryService interface {
	// CreateCategory adds a category. Returns repository.ErrDuplicateCategory
	// when the name or its slug is taken.
	CreateCategory(ctx context.Context, name, description string) (*model.Category, error)

	// ListCategories returns all categories ordered by name.
	ListCategories(ctx context.Context) ([]*model.Category, error)
}

type categoryService struct {
	repo repository.CategoryRepository
}

// NewCategoryService creates a new CategoryService instance.
func NewCategoryService(repo repository.CategoryRepository) CategoryService {
	return &categoryService{repo: repo}
}

func (s *categoryService) CreateCategory(ctx context.Context, name, description string) (*model.Category, error) {
	category, err := model.NewCategory(name, description)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, category); err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	return category, nil
}

func (s *categoryService) ListCategories(ctx context.Context) ([]*model.Category, error) {
	return s.repo.List(ctx)
}
