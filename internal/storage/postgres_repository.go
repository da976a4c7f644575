package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"videotube/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresRepository struct {
	pool      *pgxpool.Pool
	opTimeout time.Duration
}

var _ Repository = (*postgresRepository)(nil)

// NewPostgresRepository opens a Postgres-backed repository and applies the
// schema.
func NewPostgresRepository(cfg PostgresConfig) (Repository, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("postgres dsn required")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	if cfg.MaxConnections > 0 {
		poolCfg.MaxConns = cfg.MaxConnections
	}
	if cfg.MinConnections >= 0 {
		poolCfg.MinConns = cfg.MinConnections
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	if cfg.HealthCheckInterval > 0 {
		poolCfg.HealthCheckPeriod = cfg.HealthCheckInterval
	}
	if cfg.AcquireTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = cfg.AcquireTimeout
	}
	if cfg.ApplicationName != "" {
		if poolCfg.ConnConfig.RuntimeParams == nil {
			poolCfg.ConnConfig.RuntimeParams = make(map[string]string)
		}
		poolCfg.ConnConfig.RuntimeParams["application_name"] = cfg.ApplicationName
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}

	repo := &postgresRepository{
		pool:      pool,
		opTimeout: cfg.operationTimeout(),
	}

	ctx, cancel := repo.opCtx()
	defer cancel()
	if err := repo.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return repo, nil
}

// opCtx derives a fresh deadline from the background context so repository
// statements survive request cancellation.
func (r *postgresRepository) opCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), r.opTimeout)
}

func (r *postgresRepository) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.pool.Close()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (r *postgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// User operations

const userColumns = "id, username, email, full_name, password_hash, avatar_key, avatar_url, cover_key, cover_url, created_at"

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.FullName, &user.PasswordHash,
		&user.Avatar.Key, &user.Avatar.URL, &user.CoverImage.Key, &user.CoverImage.URL, &user.CreatedAt)
	return user, err
}

func (r *postgresRepository) CreateUser(params CreateUserParams) (models.User, error) {
	username := strings.TrimSpace(strings.ToLower(params.Username))
	if username == "" {
		return models.User{}, fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	email := strings.TrimSpace(strings.ToLower(params.Email))
	if email == "" {
		return models.User{}, fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	if params.Password == "" {
		return models.User{}, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}

	id, err := generateID()
	if err != nil {
		return models.User{}, err
	}
	hashed, err := hashPassword(params.Password)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		ID:           id,
		Username:     username,
		Email:        email,
		FullName:     strings.TrimSpace(params.FullName),
		PasswordHash: hashed,
		CreatedAt:    time.Now().UTC(),
	}

	ctx, cancel := r.opCtx()
	defer cancel()
	_, err = r.pool.Exec(ctx,
		"INSERT INTO users (id, username, email, full_name, password_hash, created_at) VALUES ($1, $2, $3, $4, $5, $6)",
		user.ID, user.Username, user.Email, user.FullName, user.PasswordHash, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, fmt.Errorf("%w: username or email already in use", ErrConflict)
		}
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (r *postgresRepository) GetUser(id string) (models.User, bool) {
	ctx, cancel := r.opCtx()
	defer cancel()
	user, err := scanUser(r.pool.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id))
	if err != nil {
		return models.User{}, false
	}
	return user, true
}

func (r *postgresRepository) FindUserByLogin(identifier string) (models.User, bool) {
	normalized := strings.TrimSpace(strings.ToLower(identifier))
	ctx, cancel := r.opCtx()
	defer cancel()
	user, err := scanUser(r.pool.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE username = $1 OR email = $1", normalized))
	if err != nil {
		return models.User{}, false
	}
	return user, true
}

func (r *postgresRepository) AuthenticateUser(identifier, password string) (models.User, error) {
	if password == "" {
		return models.User{}, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	user, ok := r.FindUserByLogin(identifier)
	if !ok {
		return models.User{}, ErrInvalidCredentials
	}
	if err := verifyPassword(user.PasswordHash, password); err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, err
	}
	return user, nil
}

func (r *postgresRepository) UpdateUserAssets(id string, update UserAssetUpdate) (models.User, error) {
	ctx, cancel := r.opCtx()
	defer cancel()

	user, err := scanUser(r.pool.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.User{}, fmt.Errorf("user %s: %w", id, ErrNotFound)
	} else if err != nil {
		return models.User{}, fmt.Errorf("load user: %w", err)
	}

	if update.Avatar != nil {
		user.Avatar = *update.Avatar
	}
	if update.CoverImage != nil {
		user.CoverImage = *update.CoverImage
	}

	_, err = r.pool.Exec(ctx,
		"UPDATE users SET avatar_key = $2, avatar_url = $3, cover_key = $4, cover_url = $5 WHERE id = $1",
		id, user.Avatar.Key, user.Avatar.URL, user.CoverImage.Key, user.CoverImage.URL)
	if err != nil {
		return models.User{}, fmt.Errorf("update user assets: %w", err)
	}
	return user, nil
}

// Video operations

const videoColumns = "id, owner_id, title, description, video_key, video_url, thumbnail_key, thumbnail_url, duration_seconds, views, is_published, created_at, updated_at"

func scanVideo(row pgx.Row) (models.Video, error) {
	var video models.Video
	err := row.Scan(&video.ID, &video.OwnerID, &video.Title, &video.Description,
		&video.VideoFile.Key, &video.VideoFile.URL, &video.Thumbnail.Key, &video.Thumbnail.URL,
		&video.DurationSeconds, &video.Views, &video.IsPublished, &video.CreatedAt, &video.UpdatedAt)
	return video, err
}

func collectVideos(rows pgx.Rows) ([]models.Video, error) {
	defer rows.Close()
	videos := make([]models.Video, 0)
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		videos = append(videos, video)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate videos: %w", err)
	}
	return videos, nil
}

func (r *postgresRepository) CreateVideo(params CreateVideoParams) (models.Video, error) {
	title := strings.TrimSpace(params.Title)
	if title == "" {
		return models.Video{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if len(title) > MaxTitleLength {
		return models.Video{}, fmt.Errorf("%w: title exceeds %d characters", ErrInvalidInput, MaxTitleLength)
	}
	if len(params.Description) > MaxDescriptionLength {
		return models.Video{}, fmt.Errorf("%w: description exceeds %d characters", ErrInvalidInput, MaxDescriptionLength)
	}
	if params.VideoFile.IsZero() || params.Thumbnail.IsZero() {
		return models.Video{}, fmt.Errorf("%w: video file and thumbnail are required", ErrInvalidInput)
	}

	id, err := generateID()
	if err != nil {
		return models.Video{}, err
	}
	now := time.Now().UTC()
	video := models.Video{
		ID:              id,
		OwnerID:         params.OwnerID,
		Title:           title,
		Description:     strings.TrimSpace(params.Description),
		VideoFile:       params.VideoFile,
		Thumbnail:       params.Thumbnail,
		DurationSeconds: params.DurationSeconds,
		IsPublished:     true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	ctx, cancel := r.opCtx()
	defer cancel()
	_, err = r.pool.Exec(ctx,
		"INSERT INTO videos ("+videoColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)",
		video.ID, video.OwnerID, video.Title, video.Description,
		video.VideoFile.Key, video.VideoFile.URL, video.Thumbnail.Key, video.Thumbnail.URL,
		video.DurationSeconds, video.Views, video.IsPublished, video.CreatedAt, video.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return models.Video{}, fmt.Errorf("user %s: %w", params.OwnerID, ErrNotFound)
		}
		return models.Video{}, fmt.Errorf("insert video: %w", err)
	}
	return video, nil
}

func (r *postgresRepository) GetVideo(id string) (models.Video, bool) {
	ctx, cancel := r.opCtx()
	defer cancel()
	video, err := scanVideo(r.pool.QueryRow(ctx, "SELECT "+videoColumns+" FROM videos WHERE id = $1", id))
	if err != nil {
		return models.Video{}, false
	}
	return video, true
}

func (r *postgresRepository) ListVideos(params ListVideosParams) ([]models.Video, error) {
	limit, offset := pageWindow(params.Page, params.Limit)
	query := "SELECT " + videoColumns + " FROM videos WHERE 1=1"
	args := make([]any, 0, 4)
	if params.OwnerID != "" {
		args = append(args, params.OwnerID)
		query += fmt.Sprintf(" AND owner_id = $%d", len(args))
	}
	if !params.IncludeUnpublished {
		query += " AND is_published"
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC, id LIMIT $%d", len(args))
	args = append(args, offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	ctx, cancel := r.opCtx()
	defer cancel()
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}
	return collectVideos(rows)
}

func (r *postgresRepository) UpdateVideo(id string, update VideoUpdate) (models.Video, error) {
	ctx, cancel := r.opCtx()
	defer cancel()

	video, err := scanVideo(r.pool.QueryRow(ctx, "SELECT "+videoColumns+" FROM videos WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Video{}, fmt.Errorf("video %s: %w", id, ErrNotFound)
	} else if err != nil {
		return models.Video{}, fmt.Errorf("load video: %w", err)
	}

	if update.Title != nil {
		title := strings.TrimSpace(*update.Title)
		if title == "" {
			return models.Video{}, fmt.Errorf("%w: title cannot be empty", ErrInvalidInput)
		}
		if len(title) > MaxTitleLength {
			return models.Video{}, fmt.Errorf("%w: title exceeds %d characters", ErrInvalidInput, MaxTitleLength)
		}
		video.Title = title
	}
	if update.Description != nil {
		if len(*update.Description) > MaxDescriptionLength {
			return models.Video{}, fmt.Errorf("%w: description exceeds %d characters", ErrInvalidInput, MaxDescriptionLength)
		}
		video.Description = strings.TrimSpace(*update.Description)
	}
	if update.VideoFile != nil {
		if update.VideoFile.IsZero() {
			return models.Video{}, fmt.Errorf("%w: video file reference cannot be empty", ErrInvalidInput)
		}
		video.VideoFile = *update.VideoFile
	}
	if update.Thumbnail != nil {
		if update.Thumbnail.IsZero() {
			return models.Video{}, fmt.Errorf("%w: thumbnail reference cannot be empty", ErrInvalidInput)
		}
		video.Thumbnail = *update.Thumbnail
	}
	if update.DurationSeconds != nil {
		video.DurationSeconds = *update.DurationSeconds
	}
	if update.IsPublished != nil {
		video.IsPublished = *update.IsPublished
	}
	video.UpdatedAt = time.Now().UTC()

	_, err = r.pool.Exec(ctx,
		`UPDATE videos SET title = $2, description = $3, video_key = $4, video_url = $5,
			thumbnail_key = $6, thumbnail_url = $7, duration_seconds = $8, is_published = $9, updated_at = $10
		WHERE id = $1`,
		video.ID, video.Title, video.Description, video.VideoFile.Key, video.VideoFile.URL,
		video.Thumbnail.Key, video.Thumbnail.URL, video.DurationSeconds, video.IsPublished, video.UpdatedAt)
	if err != nil {
		return models.Video{}, fmt.Errorf("update video: %w", err)
	}
	return video, nil
}

func (r *postgresRepository) TogglePublish(id string) (models.Video, error) {
	ctx, cancel := r.opCtx()
	defer cancel()
	video, err := scanVideo(r.pool.QueryRow(ctx,
		"UPDATE videos SET is_published = NOT is_published, updated_at = $2 WHERE id = $1 RETURNING "+videoColumns,
		id, time.Now().UTC()))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Video{}, fmt.Errorf("video %s: %w", id, ErrNotFound)
	} else if err != nil {
		return models.Video{}, fmt.Errorf("toggle publish: %w", err)
	}
	return video, nil
}

func (r *postgresRepository) IncrementVideoViews(id string) (models.Video, error) {
	ctx, cancel := r.opCtx()
	defer cancel()
	video, err := scanVideo(r.pool.QueryRow(ctx,
		"UPDATE videos SET views = views + 1 WHERE id = $1 RETURNING "+videoColumns, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Video{}, fmt.Errorf("video %s: %w", id, ErrNotFound)
	} else if err != nil {
		return models.Video{}, fmt.Errorf("increment views: %w", err)
	}
	return video, nil
}

func (r *postgresRepository) DeleteVideo(id string) error {
	ctx, cancel := r.opCtx()
	defer cancel()

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin delete video: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		"DELETE FROM likes WHERE target_type = $1 AND target_id IN (SELECT id FROM comments WHERE video_id = $2)",
		models.LikeTargetComment, id); err != nil {
		return fmt.Errorf("delete comment likes: %w", err)
	}
	if _, err := tx.Exec(ctx,
		"DELETE FROM likes WHERE target_type = $1 AND target_id = $2",
		models.LikeTargetVideo, id); err != nil {
		return fmt.Errorf("delete video likes: %w", err)
	}
	tag, err := tx.Exec(ctx, "DELETE FROM videos WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete video: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("video %s: %w", id, ErrNotFound)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit delete video: %w", err)
	}
	return nil
}

func pageWindow(page, limit int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if page <= 0 {
		page = 1
	}
	return limit, (page - 1) * limit
}
