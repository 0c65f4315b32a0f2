package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/hszk-dev/gotube/internal/domain/model"
)

// ListFilter selects videos for a paginated listing.
// A nil Status lists every status; an empty Category lists every category.
type ListFilter struct {
	Status   *model.Status
	Category string
	model.Pagination
}

// SearchFilter is a ListFilter narrowed by a case-insensitive text query
// matched against title, description and tags.
type SearchFilter struct {
	Query string
	ListFilter
}

// VideoRepository defines the interface for video persistence operations.
// Implementations should be provided by the infrastructure layer (e.g., PostgreSQL).
type VideoRepository interface {
	// Create persists a new video entity.
	// Returns ErrDuplicateVideo if the id or short alias is taken.
	Create(ctx context.Context, video *model.Video) error

	// GetByRef retrieves a video by primary key or short alias.
	// Returns nil and ErrVideoNotFound if the video does not exist.
	GetByRef(ctx context.Context, ref model.VideoRef) (*model.Video, error)

	// List returns a newest-first page of videos matching the filter.
	List(ctx context.Context, filter ListFilter) (*model.Page[*model.Video], error)

	// Search returns a newest-first page of videos matching the query.
	Search(ctx context.Context, filter SearchFilter) (*model.Page[*model.Video], error)

	// Related returns up to limit published videos in the same category,
	// excluding the given id, newest first.
	Related(ctx context.Context, id primitive.ObjectID, category string, limit int) ([]*model.Video, error)

	// Update persists changes to the editable fields of a video.
	// Returns ErrVideoNotFound if the video does not exist.
	Update(ctx context.Context, video *model.Video) error

	// Delete removes the video record.
	// Returns ErrVideoNotFound if the video does not exist.
	Delete(ctx context.Context, id primitive.ObjectID) error

	// IncrementViews adds one to the view counter and returns the new value.
	IncrementViews(ctx context.Context, ref model.VideoRef) (int64, error)

	// IncrementLikes adds one to the like counter and returns the new value.
	IncrementLikes(ctx context.Context, ref model.VideoRef) (int64, error)
}
