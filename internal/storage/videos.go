package storage

import (
	"fmt"
	"sort"
	"strings"

	"videotube/internal/models"
)

// Video operations

func (s *Storage) CreateVideo(params CreateVideoParams) (models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Users[params.OwnerID]; !ok {
		return models.Video{}, fmt.Errorf("user %s: %w", params.OwnerID, ErrNotFound)
	}
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

	now := s.now()
	video := models.Video{
		ID:              id,
		OwnerID:         params.OwnerID,
		Title:           title,
		Description:     strings.TrimSpace(params.Description),
		VideoFile:       params.VideoFile,
		Thumbnail:       params.Thumbnail,
		DurationSeconds: params.DurationSeconds,
		Views:           0,
		IsPublished:     true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	s.data.Videos[id] = video
	if err := s.persist(); err != nil {
		delete(s.data.Videos, id)
		return models.Video{}, err
	}

	return video, nil
}

func (s *Storage) GetVideo(id string) (models.Video, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	video, ok := s.data.Videos[id]
	return video, ok
}

func (s *Storage) ListVideos(params ListVideosParams) ([]models.Video, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	videos := make([]models.Video, 0, len(s.data.Videos))
	for _, video := range s.data.Videos {
		if params.OwnerID != "" && video.OwnerID != params.OwnerID {
			continue
		}
		if !video.IsPublished && !params.IncludeUnpublished {
			continue
		}
		videos = append(videos, video)
	}
	sort.Slice(videos, func(i, j int) bool {
		if videos[i].CreatedAt.Equal(videos[j].CreatedAt) {
			return videos[i].ID < videos[j].ID
		}
		return videos[i].CreatedAt.After(videos[j].CreatedAt)
	})
	return paginate(videos, params.Page, params.Limit), nil
}

func (s *Storage) UpdateVideo(id string, update VideoUpdate) (models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)

	video, ok := updatedData.Videos[id]
	if !ok {
		return models.Video{}, fmt.Errorf("video %s: %w", id, ErrNotFound)
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
	video.UpdatedAt = s.now()

	updatedData.Videos[id] = video
	if err := s.persistDataset(updatedData); err != nil {
		return models.Video{}, err
	}

	s.data = updatedData

	return video, nil
}

// TogglePublish flips the publish flag and returns the updated video.
func (s *Storage) TogglePublish(id string) (models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)

	video, ok := updatedData.Videos[id]
	if !ok {
		return models.Video{}, fmt.Errorf("video %s: %w", id, ErrNotFound)
	}

	video.IsPublished = !video.IsPublished
	video.UpdatedAt = s.now()

	updatedData.Videos[id] = video
	if err := s.persistDataset(updatedData); err != nil {
		return models.Video{}, err
	}

	s.data = updatedData

	return video, nil
}

// IncrementVideoViews bumps the view counter by one.
func (s *Storage) IncrementVideoViews(id string) (models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)

	video, ok := updatedData.Videos[id]
	if !ok {
		return models.Video{}, fmt.Errorf("video %s: %w", id, ErrNotFound)
	}

	video.Views++

	updatedData.Videos[id] = video
	if err := s.persistDataset(updatedData); err != nil {
		return models.Video{}, err
	}

	s.data = updatedData

	return video, nil
}

// DeleteVideo removes the video together with its likes, comments, comment
// likes, and playlist memberships. Remote asset deletion happens before this
// is called.
func (s *Storage) DeleteVideo(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)

	if _, ok := updatedData.Videos[id]; !ok {
		return fmt.Errorf("video %s: %w", id, ErrNotFound)
	}

	delete(updatedData.Videos, id)

	for commentID, comment := range updatedData.Comments {
		if comment.VideoID != id {
			continue
		}
		delete(updatedData.Comments, commentID)
		removeLikesForTarget(updatedData.Likes, models.LikeTargetComment, commentID)
	}
	removeLikesForTarget(updatedData.Likes, models.LikeTargetVideo, id)

	for playlistID, playlist := range updatedData.Playlists {
		filtered := playlist.VideoIDs[:0]
		for _, videoID := range playlist.VideoIDs {
			if videoID != id {
				filtered = append(filtered, videoID)
			}
		}
		if len(filtered) != len(playlist.VideoIDs) {
			playlist.VideoIDs = filtered
			playlist.UpdatedAt = s.now()
			updatedData.Playlists[playlistID] = playlist
		}
	}

	if err := s.persistDataset(updatedData); err != nil {
		return err
	}

	s.data = updatedData

	return nil
}

func removeLikesForTarget(likes map[string]models.Like, target models.LikeTarget, targetID string) {
	for likeID, like := range likes {
		if like.TargetType == target && like.TargetID == targetID {
			delete(likes, likeID)
		}
	}
}

func paginate[T any](items []T, page, limit int) []T {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if page <= 0 {
		page = 1
	}
	start := (page - 1) * limit
	if start >= len(items) {
		return []T{}
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
