package storage

import (
	"fmt"
	"sort"
	"strings"

	"videotube/internal/models"
)

// Comment operations

func (s *Storage) CreateComment(ownerID, videoID, content string) (models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Users[ownerID]; !ok {
		return models.Comment{}, fmt.Errorf("user %s: %w", ownerID, ErrNotFound)
	}
	if _, ok := s.data.Videos[videoID]; !ok {
		return models.Comment{}, fmt.Errorf("video %s: %w", videoID, ErrNotFound)
	}
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

	now := s.now()
	comment := models.Comment{
		ID:        id,
		OwnerID:   ownerID,
		VideoID:   videoID,
		Content:   trimmed,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.data.Comments[id] = comment
	if err := s.persist(); err != nil {
		delete(s.data.Comments, id)
		return models.Comment{}, err
	}

	return comment, nil
}

func (s *Storage) GetComment(id string) (models.Comment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	comment, ok := s.data.Comments[id]
	return comment, ok
}

func (s *Storage) ListComments(videoID string, page, limit int) ([]models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.data.Videos[videoID]; !ok {
		return nil, fmt.Errorf("video %s: %w", videoID, ErrNotFound)
	}

	comments := make([]models.Comment, 0)
	for _, comment := range s.data.Comments {
		if comment.VideoID == videoID {
			comments = append(comments, comment)
		}
	}
	sort.Slice(comments, func(i, j int) bool {
		if comments[i].CreatedAt.Equal(comments[j].CreatedAt) {
			return comments[i].ID < comments[j].ID
		}
		return comments[i].CreatedAt.After(comments[j].CreatedAt)
	})
	return paginate(comments, page, limit), nil
}

func (s *Storage) UpdateComment(id, content string) (models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)

	comment, ok := updatedData.Comments[id]
	if !ok {
		return models.Comment{}, fmt.Errorf("comment %s: %w", id, ErrNotFound)
	}

	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return models.Comment{}, fmt.Errorf("%w: content is required", ErrInvalidInput)
	}
	if len(trimmed) > MaxCommentLength {
		return models.Comment{}, fmt.Errorf("%w: content exceeds %d characters", ErrInvalidInput, MaxCommentLength)
	}

	comment.Content = trimmed
	comment.UpdatedAt = s.now()

	updatedData.Comments[id] = comment
	if err := s.persistDataset(updatedData); err != nil {
		return models.Comment{}, err
	}

	s.data = updatedData

	return comment, nil
}

// DeleteComment removes the comment and any likes pointing at it.
func (s *Storage) DeleteComment(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)

	if _, ok := updatedData.Comments[id]; !ok {
		return fmt.Errorf("comment %s: %w", id, ErrNotFound)
	}

	delete(updatedData.Comments, id)
	removeLikesForTarget(updatedData.Likes, models.LikeTargetComment, id)

	if err := s.persistDataset(updatedData); err != nil {
		return err
	}

	s.data = updatedData

	return nil
}
