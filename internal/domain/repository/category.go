package repository

import (
	"context"

	"github.com/hszk-dev/gotube/internal/domain/model"
)

// CategoryRepository defines persistence for categories.
type CategoryRepository interface {
	// Create persists a category. Returns ErrDuplicateCategory on name or slug conflict.
	Create(ctx context.Context, category *model.Category) error

	// List returns all categories ordered by name.
	List(ctx context.Context) ([]*model.Category, error)

	// GetBySlug retrieves a category by slug.
	GetBySlug(ctx context.Context, slug string) (*model.Category, error)
}
