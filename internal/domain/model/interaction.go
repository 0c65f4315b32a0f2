package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// InteractionFlag names a per-user boolean toggle on a video.
type InteractionFlag string

const (
	FlagLiked      InteractionFlag = "liked"
	FlagWatchLater InteractionFlag = "watch_later"
	FlagFavorite   InteractionFlag = "favorite"
)

var ErrInvalidFlag = errors.New("flag must be one of liked, watch_later, favorite")

// ParseInteractionFlag validates a flag taken from a request path.
func ParseInteractionFlag(s string) (InteractionFlag, error) {
	switch f := InteractionFlag(s); f {
	case FlagLiked, FlagWatchLater, FlagFavorite:
		return f, nil
	}
	return "", ErrInvalidFlag
}

// Column returns the user_interactions column backing the flag.
func (f InteractionFlag) Column() string {
	return string(f)
}

// Interaction is the single row kept per (user, video) pair.
type Interaction struct {
	ID         uuid.UUID
	UserID     string
	VideoID    primitive.ObjectID
	Liked      bool
	WatchLater bool
	Favorite   bool
	Watched    bool
	WatchTime  int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Flag returns the current value of f.
func (i *Interaction) Flag(f InteractionFlag) bool {
	switch f {
	case FlagLiked:
		return i.Liked
	case FlagWatchLater:
		return i.WatchLater
	case FlagFavorite:
		return i.Favorite
	}
	return false
}
