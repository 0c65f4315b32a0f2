package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/hszk-dev/gotube/internal/domain/model"
	"github.com/hszk-dev/gotube/internal/domain/repository"
	"github.com/hszk-dev/gotube/internal/infrastructure/metrics"
)

// TxDB is a DBTX that can also open transactions.
// *pgxpool.Pool satisfies it.
type TxDB interface {
	DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

const interactionColumns = `id, user_id, video_id, liked, watch_later, favorite, watched, watch_time, created_at, updated_at`

// InteractionRepository implements repository.InteractionRepository using PostgreSQL.
type InteractionRepository struct {
	db TxDB
}

func NewInteractionRepository(db TxDB) *InteractionRepository {
	return &InteractionRepository{db: db}
}

// Get returns the interaction row, or a zero-valued row if none exists.
func (r *InteractionRepository) Get(ctx context.Context, userID string, videoID primitive.ObjectID) (*model.Interaction, error) {
	const query = `SELECT ` + interactionColumns + ` FROM user_interactions WHERE user_id = $1 AND video_id = $2`

	metrics.DBQueriesTotal.WithLabelValues(metrics.DBQuerySelect, metrics.TableInteractions).Inc()
	in, err := scanInteraction(r.db.QueryRow(ctx, query, userID, videoID.Hex()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &model.Interaction{UserID: userID, VideoID: videoID}, nil
		}
		return nil, fmt.Errorf("failed to get interaction: %w", err)
	}
	return in, nil
}

// Toggle flips flag on the (user, video) row, creating the row if needed.
// Toggling FlagLiked moves videos.likes by one in the same transaction,
// never below zero.
func (r *InteractionRepository) Toggle(ctx context.Context, userID string, videoID primitive.ObjectID, flag model.InteractionFlag) (*model.Interaction, error) {
	if _, err := model.ParseInteractionFlag(string(flag)); err != nil {
		return nil, err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx) // no-op after commit
	}()

	now := time.Now()
	if err := ensureInteraction(ctx, tx, userID, videoID, now); err != nil {
		return nil, err
	}

	// flag.Column() comes from a closed set validated above.
	query := fmt.Sprintf(`
		UPDATE user_interactions
		SET %[1]s = NOT %[1]s, updated_at = $3
		WHERE user_id = $1 AND video_id = $2
		RETURNING `+interactionColumns, flag.Column())

	metrics.DBQueriesTotal.WithLabelValues(metrics.DBQueryUpdate, metrics.TableInteractions).Inc()
	in, err := scanInteraction(tx.QueryRow(ctx, query, userID, videoID.Hex(), now))
	if err != nil {
		return nil, fmt.Errorf("failed to toggle %s: %w", flag, err)
	}

	if flag == model.FlagLiked {
		delta := -1
		if in.Liked {
			delta = 1
		}
		metrics.DBQueriesTotal.WithLabelValues(metrics.DBQueryUpdate, metrics.TableVideos).Inc()
		tag, err := tx.Exec(ctx, `UPDATE videos SET likes = GREATEST(likes + $2, 0) WHERE id = $1`, videoID.Hex(), delta)
		if err != nil {
			return nil, fmt.Errorf("failed to adjust likes: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return nil, repository.ErrVideoNotFound
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit interaction: %w", err)
	}
	return in, nil
}

// AddWatchTime accumulates watch time and marks the video as watched.
func (r *InteractionRepository) AddWatchTime(ctx context.Context, userID string, videoID primitive.ObjectID, seconds int) (*model.Interaction, error) {
	const query = `
		INSERT INTO user_interactions (id, user_id, video_id, watched, watch_time, created_at, updated_at)
		VALUES ($1, $2, $3, TRUE, $4, $5, $5)
		ON CONFLICT (user_id, video_id) DO UPDATE
		SET watched = TRUE,
			watch_time = LEAST(user_interactions.watch_time::BIGINT + EXCLUDED.watch_time, 2147483647),
			updated_at = EXCLUDED.updated_at
		RETURNING ` + interactionColumns

	metrics.DBQueriesTotal.WithLabelValues(metrics.DBQueryInsert, metrics.TableInteractions).Inc()
	in, err := scanInteraction(r.db.QueryRow(ctx, query, uuid.New(), userID, videoID.Hex(), seconds, time.Now()))
	if err != nil {
		if isPgError(err, pgForeignKeyViolation) {
			return nil, repository.ErrVideoNotFound
		}
		return nil, fmt.Errorf("failed to record watch time: %w", err)
	}
	return in, nil
}

func ensureInteraction(ctx context.Context, db DBTX, userID string, videoID primitive.ObjectID, now time.Time) error {
	const query = `
		INSERT INTO user_interactions (id, user_id, video_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (user_id, video_id) DO NOTHING
	`

	metrics.DBQueriesTotal.WithLabelValues(metrics.DBQueryInsert, metrics.TableInteractions).Inc()
	if _, err := db.Exec(ctx, query, uuid.New(), userID, videoID.Hex(), now); err != nil {
		if isPgError(err, pgForeignKeyViolation) {
			return repository.ErrVideoNotFound
		}
		return fmt.Errorf("failed to create interaction: %w", err)
	}
	return nil
}

func scanInteraction(row pgx.Row) (*model.Interaction, error) {
	var (
		in      model.Interaction
		videoID string
	)
	err := row.Scan(
		&in.ID,
		&in.UserID,
		&videoID,
		&in.Liked,
		&in.WatchLater,
		&in.Favorite,
		&in.Watched,
		&in.WatchTime,
		&in.CreatedAt,
		&in.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if in.VideoID, err = primitive.ObjectIDFromHex(videoID); err != nil {
		return nil, fmt.Errorf("invalid video id %q: %w", videoID, err)
	}
	return &in, nil
}

var _ repository.InteractionRepository = (*InteractionRepository)(nil)
