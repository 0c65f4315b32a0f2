package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/hszk-dev/gotube/internal/domain/model"
)

// InteractionRepository persists the per-user interaction row, which is
// the authoritative source for likes.
type InteractionRepository interface {
	// Get returns the interaction row, or a zero-valued row if none exists.
	Get(ctx context.Context, userID string, videoID primitive.ObjectID) (*model.Interaction, error)

	// Toggle flips a flag and returns the updated row. Toggling FlagLiked
	// adjusts the video's like counter in the same transaction.
	Toggle(ctx context.Context, userID string, videoID primitive.ObjectID, flag model.InteractionFlag) (*model.Interaction, error)

	// AddWatchTime accumulates watch time and marks the video as watched.
	AddWatchTime(ctx context.Context, userID string, videoID primitive.ObjectID, seconds int) (*model.Interaction, error)
}
