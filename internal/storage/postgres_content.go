package storage

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"videotube/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Comment operations

const commentColumns = "id, owner_id, video_id, content, created_at, updated_at"

func scanComment(row pgx.Row) (models.Comment, error) {
	var comment models.Comment
	err := row.Scan(&comment.ID, &comment.OwnerID, &comment.VideoID, &comment.Content,
		&comment.CreatedAt, &comment.UpdatedAt)
	return comment, err
}

func (r *postgresRepository) CreateComment(ownerID, videoID, content string) (models.Comment, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return models.Comment{}, fmt.Errorf("%w: content is required", ErrInvalidInput)
	}
	if len(trimmed) > MaxCommentLength {
		return models.Comment{}, fmt.Errorf("%w: content exceeds %d characters", ErrInvalidInput, MaxCommentLength)
	}

	id, err := generateID()
	if err != nil {
		return models.Comment{}, err
	}
	now := time.Now().UTC()
	comment := models.Comment{
		ID:        id,
		OwnerID:   ownerID,
		VideoID:   videoID,
		Content:   trimmed,
		CreatedAt: now,
		UpdatedAt: now,
	}

	ctx, cancel := r.opCtx()
	defer cancel()
	_, err = r.pool.Exec(ctx,
		"INSERT INTO comments ("+commentColumns+") VALUES ($1, $2, $3, $4, $5, $6)",
		comment.ID, comment.OwnerID, comment.VideoID, comment.Content, comment.CreatedAt, comment.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return models.Comment{}, fmt.Errorf("video %s: %w", videoID, ErrNotFound)
		}
		return models.Comment{}, fmt.Errorf("insert comment: %w", err)
	}
	return comment, nil
}

func (r *postgresRepository) GetComment(id string) (models.Comment, bool) {
	ctx, cancel := r.opCtx()
	defer cancel()
	comment, err := scanComment(r.pool.QueryRow(ctx, "SELECT "+commentColumns+" FROM comments WHERE id = $1", id))
	if err != nil {
		return models.Comment{}, false
	}
	return comment, true
}

func (r *postgresRepository) ListComments(videoID string, page, limit int) ([]models.Comment, error) {
	ctx, cancel := r.opCtx()
	defer cancel()

	var exists bool
	if err := r.pool.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM videos WHERE id = $1)", videoID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check video: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("video %s: %w", videoID, ErrNotFound)
	}

	windowLimit, offset := pageWindow(page, limit)
	rows, err := r.pool.Query(ctx,
		"SELECT "+commentColumns+" FROM comments WHERE video_id = $1 ORDER BY created_at DESC, id LIMIT $2 OFFSET $3",
		videoID, windowLimit, offset)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()
	comments := make([]models.Comment, 0)
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, comment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}
	return comments, nil
}

func (r *postgresRepository) UpdateComment(id, content string) (models.Comment, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return models.Comment{}, fmt.Errorf("%w: content is required", ErrInvalidInput)
	}
	if len(trimmed) > MaxCommentLength {
		return models.Comment{}, fmt.Errorf("%w: content exceeds %d characters", ErrInvalidInput, MaxCommentLength)
	}

	ctx, cancel := r.opCtx()
	defer cancel()
	comment, err := scanComment(r.pool.QueryRow(ctx,
		"UPDATE comments SET content = $2, updated_at = $3 WHERE id = $1 RETURNING "+commentColumns,
		id, trimmed, time.Now().UTC()))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Comment{}, fmt.Errorf("comment %s: %w", id, ErrNotFound)
	} else if err != nil {
		return models.Comment{}, fmt.Errorf("update comment: %w", err)
	}
	return comment, nil
}

func (r *postgresRepository) DeleteComment(id string) error {
	ctx, cancel := r.opCtx()
	defer cancel()

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin delete comment: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		"DELETE FROM likes WHERE target_type = $1 AND target_id = $2",
		models.LikeTargetComment, id); err != nil {
		return fmt.Errorf("delete comment likes: %w", err)
	}
	tag, err := tx.Exec(ctx, "DELETE FROM comments WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("comment %s: %w", id, ErrNotFound)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit delete comment: %w", err)
	}
	return nil
}

// Tweet operations

const tweetColumns = "id, owner_id, content, created_at, updated_at"

func scanTweet(row pgx.Row) (models.Tweet, error) {
	var tweet models.Tweet
	err := row.Scan(&tweet.ID, &tweet.OwnerID, &tweet.Content, &tweet.CreatedAt, &tweet.UpdatedAt)
	return tweet, err
}

func (r *postgresRepository) CreateTweet(ownerID, content string) (models.Tweet, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return models.Tweet{}, fmt.Errorf("%w: content is required", ErrInvalidInput)
	}
	if len(trimmed) > MaxTweetLength {
		return models.Tweet{}, fmt.Errorf("%w: content exceeds %d characters", ErrInvalidInput, MaxTweetLength)
	}

	id, err := generateID()
	if err != nil {
		return models.Tweet{}, err
	}
	now := time.Now().UTC()
	tweet := models.Tweet{
		ID:        id,
		OwnerID:   ownerID,
		Content:   trimmed,
		CreatedAt: now,
		UpdatedAt: now,
	}

	ctx, cancel := r.opCtx()
	defer cancel()
	_, err = r.pool.Exec(ctx,
		"INSERT INTO tweets ("+tweetColumns+") VALUES ($1, $2, $3, $4, $5)",
		tweet.ID, tweet.OwnerID, tweet.Content, tweet.CreatedAt, tweet.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return models.Tweet{}, fmt.Errorf("user %s: %w", ownerID, ErrNotFound)
		}
		return models.Tweet{}, fmt.Errorf("insert tweet: %w", err)
	}
	return tweet, nil
}

func (r *postgresRepository) GetTweet(id string) (models.Tweet, bool) {
	ctx, cancel := r.opCtx()
	defer cancel()
	tweet, err := scanTweet(r.pool.QueryRow(ctx, "SELECT "+tweetColumns+" FROM tweets WHERE id = $1", id))
	if err != nil {
		return models.Tweet{}, false
	}
	return tweet, true
}

func (r *postgresRepository) ListTweets(ownerID string) ([]models.Tweet, error) {
	ctx, cancel := r.opCtx()
	defer cancel()

	var exists bool
	if err := r.pool.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)", ownerID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check user: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("user %s: %w", ownerID, ErrNotFound)
	}

	rows, err := r.pool.Query(ctx,
		"SELECT "+tweetColumns+" FROM tweets WHERE owner_id = $1 ORDER BY created_at DESC, id", ownerID)
	if err != nil {
		return nil, fmt.Errorf("list tweets: %w", err)
	}
	defer rows.Close()
	tweets := make([]models.Tweet, 0)
	for rows.Next() {
		tweet, err := scanTweet(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tweet: %w", err)
		}
		tweets = append(tweets, tweet)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tweets: %w", err)
	}
	return tweets, nil
}

func (r *postgresRepository) UpdateTweet(id, content string) (models.Tweet, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return models.Tweet{}, fmt.Errorf("%w: content is required", ErrInvalidInput)
	}
	if len(trimmed) > MaxTweetLength {
		return models.Tweet{}, fmt.Errorf("%w: content exceeds %d characters", ErrInvalidInput, MaxTweetLength)
	}

	ctx, cancel := r.opCtx()
	defer cancel()
	tweet, err := scanTweet(r.pool.QueryRow(ctx,
		"UPDATE tweets SET content = $2, updated_at = $3 WHERE id = $1 RETURNING "+tweetColumns,
		id, trimmed, time.Now().UTC()))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Tweet{}, fmt.Errorf("tweet %s: %w", id, ErrNotFound)
	} else if err != nil {
		return models.Tweet{}, fmt.Errorf("update tweet: %w", err)
	}
	return tweet, nil
}

func (r *postgresRepository) DeleteTweet(id string) error {
	ctx, cancel := r.opCtx()
	defer cancel()

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin delete tweet: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		"DELETE FROM likes WHERE target_type = $1 AND target_id = $2",
		models.LikeTargetTweet, id); err != nil {
		return fmt.Errorf("delete tweet likes: %w", err)
	}
	tag, err := tx.Exec(ctx, "DELETE FROM tweets WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete tweet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("tweet %s: %w", id, ErrNotFound)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit delete tweet: %w", err)
	}
	return nil
}
