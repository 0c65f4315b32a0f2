package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/hszk-dev/gotube/internal/domain/model"
	"github.com/hszk-dev/gotube/internal/domain/repository"
	"github.com/hszk-dev/gotube/internal/infrastructure/metrics"
)

// DBTX is an interface that abstracts pgxpool.Pool and pgx.Tx for testability.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgreSQL error codes.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

const videoColumns = `id, short_id, title, description, category, tags, video_url, thumbnail, thumbnails,
	duration, views, likes, status, file_size, uploader_id, created_at, updated_at`

// VideoRepository implements repository.VideoRepository using PostgreSQL.
type VideoRepository struct {
	db DBTX
}

// NewVideoRepository creates a new VideoRepository instance.
func NewVideoRepository(db DBTX) *VideoRepository {
	return &VideoRepository{db: db}
}

// Create persists a new video entity.
func (r *VideoRepository) Create(ctx context.Context, video *model.Video) error {
	const query = `
		INSERT INTO videos (` + videoColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	metrics.DBQueriesTotal.WithLabelValues(metrics.DBQueryInsert, metrics.TableVideos).Inc()
	_, err := r.db.Exec(ctx, query,
		video.ID.Hex(),
		video.ShortID,
		video.Title,
		video.Description,
		video.Category,
		nonNil(video.Tags),
		video.VideoURL,
		video.Thumbnail,
		nonNil(video.Thumbnails),
		video.Duration,
		video.Views,
		video.Likes,
		video.Status.String(),
		video.FileSize,
		nullString(video.UploaderID),
		video.CreatedAt,
		video.UpdatedAt,
	)
	if err != nil {
		if isPgError(err, pgUniqueViolation) {
			return repository.ErrDuplicateVideo
		}
		return fmt.Errorf("failed to create video: %w", err)
	}

	return nil
}

// GetByRef retrieves a video by primary key or short alias.
func (r *VideoRepository) GetByRef(ctx context.Context, ref model.VideoRef) (*model.Video, error) {
	column, arg := refPredicate(ref)
	query := `SELECT ` + videoColumns + ` FROM videos WHERE ` + column + ` = $1`

	metrics.DBQueriesTotal.WithLabelValues(metrics.DBQuerySelect, metrics.TableVideos).Inc()
	video, err := scanVideo(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrVideoNotFound
		}
		return nil, fmt.Errorf("failed to get video by %s: %w", column, err)
	}

	return video, nil
}

// List returns a newest-first page of videos matching the filter.
func (r *VideoRepository) List(ctx context.Context, filter repository.ListFilter) (*model.Page[*model.Video], error) {
	var w whereBuilder
	w.addListFilter(filter)
	return r.page(ctx, &w, filter.Pagination)
}

// Search returns a newest-first page of videos whose title, description or
// any tag contains the query, case-insensitively.
func (r *VideoRepository) Search(ctx context.Context, filter repository.SearchFilter) (*model.Page[*model.Video], error) {
	var w whereBuilder
	w.addListFilter(filter.ListFilter)
	if q := strings.TrimSpace(filter.Query); q != "" {
		w.add(`(title ILIKE $%[1]d OR description ILIKE $%[1]d
			OR EXISTS (SELECT 1 FROM unnest(tags) AS tag WHERE tag ILIKE $%[1]d))`, "%"+escapeLike(q)+"%")
	}
	return r.page(ctx, &w, filter.Pagination)
}

// Related returns published videos in the same category, excluding id.
func (r *VideoRepository) Related(ctx context.Context, id primitive.ObjectID, category string, limit int) ([]*model.Video, error) {
	const query = `
		SELECT ` + videoColumns + `
		FROM videos
		WHERE category = $1 AND id <> $2 AND status = $3
		ORDER BY created_at DESC, id DESC
		LIMIT $4
	`

	metrics.DBQueriesTotal.WithLabelValues(metrics.DBQuerySelect, metrics.TableVideos).Inc()
	rows, err := r.db.Query(ctx, query, category, id.Hex(), model.StatusPublished.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query related videos: %w", err)
	}
	return collectVideos(rows)
}

// Update persists changes to the editable fields of a video.
func (r *VideoRepository) Update(ctx context.Context, video *model.Video) error {
	const query = `
		UPDATE videos
		SET title = $2, description = $3, category = $4, tags = $5, status = $6, thumbnail = $7, updated_at = $8
		WHERE id = $1
	`

	video.UpdatedAt = time.Now()

	metrics.DBQueriesTotal.WithLabelValues(metrics.DBQueryUpdate, metrics.TableVideos).Inc()
	tag, err := r.db.Exec(ctx, query,
		video.ID.Hex(),
		video.Title,
		video.Description,
		video.Category,
		nonNil(video.Tags),
		video.Status.String(),
		video.Thumbnail,
		video.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update video: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return repository.ErrVideoNotFound
	}

	return nil
}

// Delete removes the video record.
func (r *VideoRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	const query = `DELETE FROM videos WHERE id = $1`

	metrics.DBQueriesTotal.WithLabelValues(metrics.DBQueryDelete, metrics.TableVideos).Inc()
	tag, err := r.db.Exec(ctx, query, id.Hex())
	if err != nil {
		return fmt.Errorf("failed to delete video: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return repository.ErrVideoNotFound
	}

	return nil
}

// IncrementViews adds one to the view counter and returns the new value.
func (r *VideoRepository) IncrementViews(ctx context.Context, ref model.VideoRef) (int64, error) {
	return r.increment(ctx, ref, "views")
}

// IncrementLikes adds one to the like counter and returns the new value.
func (r *VideoRepository) IncrementLikes(ctx context.Context, ref model.VideoRef) (int64, error) {
	return r.increment(ctx, ref, "likes")
}

// increment bumps a counter column; column is never caller-supplied.
func (r *VideoRepository) increment(ctx context.Context, ref model.VideoRef, column string) (int64, error) {
	where, arg := refPredicate(ref)
	query := fmt.Sprintf(`UPDATE videos SET %[1]s = %[1]s + 1 WHERE %[2]s = $1 RETURNING %[1]s`, column, where)

	metrics.DBQueriesTotal.WithLabelValues(metrics.DBQueryUpdate, metrics.TableVideos).Inc()
	var value int64
	if err := r.db.QueryRow(ctx, query, arg).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, repository.ErrVideoNotFound
		}
		return 0, fmt.Errorf("failed to increment %s: %w", column, err)
	}

	return value, nil
}

func (r *VideoRepository) page(ctx context.Context, w *whereBuilder, p model.Pagination) (*model.Page[*model.Video], error) {
	p = p.Normalize()
	where := w.clause()

	metrics.DBQueriesTotal.WithLabelValues(metrics.DBQuerySelect, metrics.TableVideos).Inc()
	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM videos`+where, w.args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count videos: %w", err)
	}

	n := len(w.args)
	query := fmt.Sprintf(`SELECT %s FROM videos%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		videoColumns, where, n+1, n+2)
	args := append(append([]any{}, w.args...), p.Limit, p.Offset())

	metrics.DBQueriesTotal.WithLabelValues(metrics.DBQuerySelect, metrics.TableVideos).Inc()
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}
	videos, err := collectVideos(rows)
	if err != nil {
		return nil, err
	}

	return &model.Page[*model.Video]{
		Items:      videos,
		Page:       p.Page,
		Limit:      p.Limit,
		TotalPages: model.TotalPages(total, p.Limit),
		Total:      total,
	}, nil
}

// whereBuilder accumulates AND-ed predicates with positional arguments.
// Each condition is a format string whose %[1]d is its argument index.
type whereBuilder struct {
	conds []string
	args  []any
}

func (w *whereBuilder) add(cond string, arg any) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, fmt.Sprintf(cond, len(w.args)))
}

func (w *whereBuilder) addListFilter(f repository.ListFilter) {
	if f.Status != nil {
		w.add(`status = $%[1]d`, f.Status.String())
	}
	if f.Category != "" {
		w.add(`category = $%[1]d`, f.Category)
	}
}

func (w *whereBuilder) clause() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

func collectVideos(rows pgx.Rows) ([]*model.Video, error) {
	defer rows.Close()

	videos := []*model.Video{}
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan video: %w", err)
		}
		videos = append(videos, video)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating videos: %w", err)
	}

	return videos, nil
}

// scanVideo scans a single row into a Video model.
// pgx.Rows satisfies pgx.Row, so this serves both QueryRow and Query.
func scanVideo(row pgx.Row) (*model.Video, error) {
	var (
		video      model.Video
		id         string
		status     string
		uploaderID *string
	)

	err := row.Scan(
		&id,
		&video.ShortID,
		&video.Title,
		&video.Description,
		&video.Category,
		&video.Tags,
		&video.VideoURL,
		&video.Thumbnail,
		&video.Thumbnails,
		&video.Duration,
		&video.Views,
		&video.Likes,
		&status,
		&video.FileSize,
		&uploaderID,
		&video.CreatedAt,
		&video.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	video.ID, err = primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid video id %q: %w", id, err)
	}
	video.Status = model.Status(status)
	if uploaderID != nil {
		video.UploaderID = *uploaderID
	}

	return &video, nil
}

func refPredicate(ref model.VideoRef) (column string, arg any) {
	if ref.Kind == model.RefObjectID {
		return "id", ref.ID.Hex()
	}
	return "short_id", ref.ShortID
}

// escapeLike escapes LIKE wildcards so the query matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func isPgError(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

// nullString returns nil for empty strings, otherwise returns a pointer to the string.
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// nonNil keeps NOT NULL array columns from receiving SQL NULL.
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Compile-time verification that VideoRepository implements repository.VideoRepository.
var _ repository.VideoRepository = (*VideoRepository)(nil)
