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
)

// Playlist operations

const playlistColumns = "id, owner_id, name, description, created_at, updated_at"

func (r *postgresRepository) scanPlaylistWithVideos(ctx context.Context, row pgx.Row) (models.Playlist, error) {
	var playlist models.Playlist
	err := row.Scan(&playlist.ID, &playlist.OwnerID, &playlist.Name, &playlist.Description,
		&playlist.CreatedAt, &playlist.UpdatedAt)
	if err != nil {
		return models.Playlist{}, err
	}
	rows, err := r.pool.Query(ctx,
		"SELECT video_id FROM playlist_videos WHERE playlist_id = $1 ORDER BY position", playlist.ID)
	if err != nil {
		return models.Playlist{}, fmt.Errorf("list playlist videos: %w", err)
	}
	defer rows.Close()
	playlist.VideoIDs = make([]string, 0)
	for rows.Next() {
		var videoID string
		if err := rows.Scan(&videoID); err != nil {
			return models.Playlist{}, fmt.Errorf("scan playlist video: %w", err)
		}
		playlist.VideoIDs = append(playlist.VideoIDs, videoID)
	}
	if err := rows.Err(); err != nil {
		return models.Playlist{}, fmt.Errorf("iterate playlist videos: %w", err)
	}
	return playlist, nil
}

func (r *postgresRepository) CreatePlaylist(ownerID, name, description string) (models.Playlist, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return models.Playlist{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if len(description) > MaxDescriptionLength {
		return models.Playlist{}, fmt.Errorf("%w: description exceeds %d characters", ErrInvalidInput, MaxDescriptionLength)
	}

	id, err := generateID()
	if err != nil {
		return models.Playlist{}, err
	}
	now := time.Now().UTC()
	playlist := models.Playlist{
		ID:          id,
		OwnerID:     ownerID,
		Name:        trimmed,
		Description: strings.TrimSpace(description),
		VideoIDs:    []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	ctx, cancel := r.opCtx()
	defer cancel()
	_, err = r.pool.Exec(ctx,
		"INSERT INTO playlists ("+playlistColumns+") VALUES ($1, $2, $3, $4, $5, $6)",
		playlist.ID, playlist.OwnerID, playlist.Name, playlist.Description, playlist.CreatedAt, playlist.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return models.Playlist{}, fmt.Errorf("user %s: %w", ownerID, ErrNotFound)
		}
		return models.Playlist{}, fmt.Errorf("insert playlist: %w", err)
	}
	return playlist, nil
}

func (r *postgresRepository) GetPlaylist(id string) (models.Playlist, bool) {
	ctx, cancel := r.opCtx()
	defer cancel()
	playlist, err := r.scanPlaylistWithVideos(ctx,
		r.pool.QueryRow(ctx, "SELECT "+playlistColumns+" FROM playlists WHERE id = $1", id))
	if err != nil {
		return models.Playlist{}, false
	}
	return playlist, true
}

func (r *postgresRepository) ListPlaylists(ownerID string) ([]models.Playlist, error) {
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
		"SELECT "+playlistColumns+" FROM playlists WHERE owner_id = $1 ORDER BY created_at DESC, id", ownerID)
	if err != nil {
		return nil, fmt.Errorf("list playlists: %w", err)
	}
	playlists := make([]models.Playlist, 0)
	for rows.Next() {
		var playlist models.Playlist
		if err := rows.Scan(&playlist.ID, &playlist.OwnerID, &playlist.Name, &playlist.Description,
			&playlist.CreatedAt, &playlist.UpdatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan playlist: %w", err)
		}
		playlist.VideoIDs = []string{}
		playlists = append(playlists, playlist)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate playlists: %w", err)
	}

	for i := range playlists {
		videoRows, err := r.pool.Query(ctx,
			"SELECT video_id FROM playlist_videos WHERE playlist_id = $1 ORDER BY position", playlists[i].ID)
		if err != nil {
			return nil, fmt.Errorf("list playlist videos: %w", err)
		}
		for videoRows.Next() {
			var videoID string
			if err := videoRows.Scan(&videoID); err != nil {
				videoRows.Close()
				return nil, fmt.Errorf("scan playlist video: %w", err)
			}
			playlists[i].VideoIDs = append(playlists[i].VideoIDs, videoID)
		}
		videoRows.Close()
		if err := videoRows.Err(); err != nil {
			return nil, fmt.Errorf("iterate playlist videos: %w", err)
		}
	}
	return playlists, nil
}

func (r *postgresRepository) UpdatePlaylist(id string, update PlaylistUpdate) (models.Playlist, error) {
	ctx, cancel := r.opCtx()
	defer cancel()

	playlist, err := r.scanPlaylistWithVideos(ctx,
		r.pool.QueryRow(ctx, "SELECT "+playlistColumns+" FROM playlists WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Playlist{}, fmt.Errorf("playlist %s: %w", id, ErrNotFound)
	} else if err != nil {
		return models.Playlist{}, fmt.Errorf("load playlist: %w", err)
	}

	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return models.Playlist{}, fmt.Errorf("%w: name cannot be empty", ErrInvalidInput)
		}
		playlist.Name = name
	}
	if update.Description != nil {
		if len(*update.Description) > MaxDescriptionLength {
			return models.Playlist{}, fmt.Errorf("%w: description exceeds %d characters", ErrInvalidInput, MaxDescriptionLength)
		}
		playlist.Description = strings.TrimSpace(*update.Description)
	}
	playlist.UpdatedAt = time.Now().UTC()

	_, err = r.pool.Exec(ctx,
		"UPDATE playlists SET name = $2, description = $3, updated_at = $4 WHERE id = $1",
		playlist.ID, playlist.Name, playlist.Description, playlist.UpdatedAt)
	if err != nil {
		return models.Playlist{}, fmt.Errorf("update playlist: %w", err)
	}
	return playlist, nil
}

func (r *postgresRepository) AddPlaylistVideo(playlistID, videoID string) (models.Playlist, error) {
	ctx, cancel := r.opCtx()
	defer cancel()

	tag, err := r.pool.Exec(ctx,
		`INSERT INTO playlist_videos (playlist_id, video_id, position)
		SELECT $1, $2, COALESCE(MAX(position) + 1, 0) FROM playlist_videos WHERE playlist_id = $1
		ON CONFLICT (playlist_id, video_id) DO NOTHING`,
		playlistID, videoID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return models.Playlist{}, fmt.Errorf("playlist %s or video %s: %w", playlistID, videoID, ErrNotFound)
		}
		return models.Playlist{}, fmt.Errorf("add playlist video: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.Playlist{}, fmt.Errorf("%w: video %s already in playlist", ErrConflict, videoID)
	}
	if _, err := r.pool.Exec(ctx,
		"UPDATE playlists SET updated_at = $2 WHERE id = $1", playlistID, time.Now().UTC()); err != nil {
		return models.Playlist{}, fmt.Errorf("touch playlist: %w", err)
	}

	playlist, ok := r.GetPlaylist(playlistID)
	if !ok {
		return models.Playlist{}, fmt.Errorf("playlist %s: %w", playlistID, ErrNotFound)
	}
	return playlist, nil
}

func (r *postgresRepository) RemovePlaylistVideo(playlistID, videoID string) (models.Playlist, error) {
	ctx, cancel := r.opCtx()
	defer cancel()

	var exists bool
	if err := r.pool.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM playlists WHERE id = $1)", playlistID).Scan(&exists); err != nil {
		return models.Playlist{}, fmt.Errorf("check playlist: %w", err)
	}
	if !exists {
		return models.Playlist{}, fmt.Errorf("playlist %s: %w", playlistID, ErrNotFound)
	}

	tag, err := r.pool.Exec(ctx,
		"DELETE FROM playlist_videos WHERE playlist_id = $1 AND video_id = $2", playlistID, videoID)
	if err != nil {
		return models.Playlist{}, fmt.Errorf("remove playlist video: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.Playlist{}, fmt.Errorf("video %s not in playlist: %w", videoID, ErrNotFound)
	}
	if _, err := r.pool.Exec(ctx,
		"UPDATE playlists SET updated_at = $2 WHERE id = $1", playlistID, time.Now().UTC()); err != nil {
		return models.Playlist{}, fmt.Errorf("touch playlist: %w", err)
	}

	playlist, ok := r.GetPlaylist(playlistID)
	if !ok {
		return models.Playlist{}, fmt.Errorf("playlist %s: %w", playlistID, ErrNotFound)
	}
	return playlist, nil
}

func (r *postgresRepository) DeletePlaylist(id string) error {
	ctx, cancel := r.opCtx()
	defer cancel()
	tag, err := r.pool.Exec(ctx, "DELETE FROM playlists WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete playlist: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("playlist %s: %w", id, ErrNotFound)
	}
	return nil
}

// Like operations
//
// The UNIQUE constraint on (liked_by, target_type, target_id) is the
// storage-level guarantee: a concurrent create for the same triple loses the
// insert race, which the toggle resolves as the liked state.

func (r *postgresRepository) likeTargetExists(ctx context.Context, target models.LikeTarget, targetID string) (bool, error) {
	var table string
	switch target {
	case models.LikeTargetVideo:
		table = "videos"
	case models.LikeTargetComment:
		table = "comments"
	case models.LikeTargetTweet:
		table = "tweets"
	default:
		return false, fmt.Errorf("%w: unknown like target %q", ErrInvalidInput, target)
	}
	var exists bool
	if err := r.pool.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM "+table+" WHERE id = $1)", targetID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check like target: %w", err)
	}
	return exists, nil
}

func (r *postgresRepository) ToggleLike(userID string, target models.LikeTarget, targetID string) (bool, error) {
	ctx, cancel := r.opCtx()
	defer cancel()

	var exists bool
	if err := r.pool.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)", userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check user: %w", err)
	}
	if !exists {
		return false, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	exists, err := r.likeTargetExists(ctx, target, targetID)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, fmt.Errorf("%s %s: %w", target, targetID, ErrNotFound)
	}

	tag, err := r.pool.Exec(ctx,
		"DELETE FROM likes WHERE liked_by = $1 AND target_type = $2 AND target_id = $3",
		userID, target, targetID)
	if err != nil {
		return false, fmt.Errorf("delete like: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return false, nil
	}

	id, err := generateID()
	if err != nil {
		return false, err
	}
	// A zero-row result means another request inserted the same triple
	// between our delete and insert; either way the triple ends liked.
	_, err = r.pool.Exec(ctx,
		`INSERT INTO likes (id, liked_by, target_type, target_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (liked_by, target_type, target_id) DO NOTHING`,
		id, userID, target, targetID, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("insert like: %w", err)
	}
	return true, nil
}

func (r *postgresRepository) CountLikes(target models.LikeTarget, targetID string) int {
	ctx, cancel := r.opCtx()
	defer cancel()
	var count int
	if err := r.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM likes WHERE target_type = $1 AND target_id = $2",
		target, targetID).Scan(&count); err != nil {
		return 0
	}
	return count
}

func (r *postgresRepository) IsLiked(userID string, target models.LikeTarget, targetID string) bool {
	ctx, cancel := r.opCtx()
	defer cancel()
	var exists bool
	if err := r.pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM likes WHERE liked_by = $1 AND target_type = $2 AND target_id = $3)",
		userID, target, targetID).Scan(&exists); err != nil {
		return false
	}
	return exists
}

func (r *postgresRepository) ListLikedVideos(userID string) ([]models.Video, error) {
	ctx, cancel := r.opCtx()
	defer cancel()

	var exists bool
	if err := r.pool.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)", userID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check user: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT v.id, v.owner_id, v.title, v.description, v.video_key, v.video_url,
			v.thumbnail_key, v.thumbnail_url, v.duration_seconds, v.views, v.is_published,
			v.created_at, v.updated_at
		FROM likes l JOIN videos v ON v.id = l.target_id
		WHERE l.liked_by = $1 AND l.target_type = $2
		ORDER BY l.created_at DESC, l.id`,
		userID, models.LikeTargetVideo)
	if err != nil {
		return nil, fmt.Errorf("list liked videos: %w", err)
	}
	return collectVideos(rows)
}

func (r *postgresRepository) ListLikedTweets(userID string) ([]models.Tweet, error) {
	ctx, cancel := r.opCtx()
	defer cancel()

	var exists bool
	if err := r.pool.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)", userID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check user: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT t.id, t.owner_id, t.content, t.created_at, t.updated_at
		FROM likes l JOIN tweets t ON t.id = l.target_id
		WHERE l.liked_by = $1 AND l.target_type = $2
		ORDER BY l.created_at DESC, l.id`,
		userID, models.LikeTargetTweet)
	if err != nil {
		return nil, fmt.Errorf("list liked tweets: %w", err)
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
