package storage

import (
	"fmt"
	"sort"

	"videotube/internal/models"
)

// Like operations
//
// A like is keyed by (likedBy, targetType, targetId); the whole toggle runs
// inside a single critical section so concurrent requests for the same triple
// serialise and the store never holds more than one row per triple.

func (s *Storage) targetExistsLocked(target models.LikeTarget, targetID string) bool {
	switch target {
	case models.LikeTargetVideo:
		_, ok := s.data.Videos[targetID]
		return ok
	case models.LikeTargetComment:
		_, ok := s.data.Comments[targetID]
		return ok
	case models.LikeTargetTweet:
		_, ok := s.data.Tweets[targetID]
		return ok
	}
	return false
}

func findLikeLocked(likes map[string]models.Like, userID string, target models.LikeTarget, targetID string) (string, bool) {
	for likeID, like := range likes {
		if like.LikedBy == userID && like.TargetType == target && like.TargetID == targetID {
			return likeID, true
		}
	}
	return "", false
}

// ToggleLike removes the like when present and creates it otherwise. The
// returned flag reports the resulting state: true when the target is now
// liked by the user.
func (s *Storage) ToggleLike(userID string, target models.LikeTarget, targetID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Users[userID]; !ok {
		return false, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	if !s.targetExistsLocked(target, targetID) {
		return false, fmt.Errorf("%s %s: %w", target, targetID, ErrNotFound)
	}

	updatedData := cloneDataset(s.data)

	if likeID, ok := findLikeLocked(updatedData.Likes, userID, target, targetID); ok {
		delete(updatedData.Likes, likeID)
		if err := s.persistDataset(updatedData); err != nil {
			return false, err
		}
		s.data = updatedData
		return false, nil
	}

	id, err := generateID()
	if err != nil {
		return false, err
	}
	updatedData.Likes[id] = models.Like{
		ID:         id,
		LikedBy:    userID,
		TargetType: target,
		TargetID:   targetID,
		CreatedAt:  s.now(),
	}
	if err := s.persistDataset(updatedData); err != nil {
		return false, err
	}
	s.data = updatedData
	return true, nil
}

// CountLikes reports how many users currently like the target.
func (s *Storage) CountLikes(target models.LikeTarget, targetID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, like := range s.data.Likes {
		if like.TargetType == target && like.TargetID == targetID {
			count++
		}
	}
	return count
}

// IsLiked reports whether the user currently likes the target.
func (s *Storage) IsLiked(userID string, target models.LikeTarget, targetID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := findLikeLocked(s.data.Likes, userID, target, targetID)
	return ok
}

// ListLikedVideos returns the videos the user has liked, most recent like
// first. Videos deleted since the like was recorded are skipped.
func (s *Storage) ListLikedVideos(userID string) ([]models.Video, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.data.Users[userID]; !ok {
		return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}

	likes := make([]models.Like, 0)
	for _, like := range s.data.Likes {
		if like.LikedBy == userID && like.TargetType == models.LikeTargetVideo {
			likes = append(likes, like)
		}
	}
	sort.Slice(likes, func(i, j int) bool {
		if likes[i].CreatedAt.Equal(likes[j].CreatedAt) {
			return likes[i].ID < likes[j].ID
		}
		return likes[i].CreatedAt.After(likes[j].CreatedAt)
	})

	videos := make([]models.Video, 0, len(likes))
	for _, like := range likes {
		if video, ok := s.data.Videos[like.TargetID]; ok {
			videos = append(videos, video)
		}
	}
	return videos, nil
}

// ListLikedTweets returns the tweets the user has liked, most recent like
// first.
func (s *Storage) ListLikedTweets(userID string) ([]models.Tweet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.data.Users[userID]; !ok {
		return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}

	likes := make([]models.Like, 0)
	for _, like := range s.data.Likes {
		if like.LikedBy == userID && like.TargetType == models.LikeTargetTweet {
			likes = append(likes, like)
		}
	}
	sort.Slice(likes, func(i, j int) bool {
		if likes[i].CreatedAt.Equal(likes[j].CreatedAt) {
			return likes[i].ID < likes[j].ID
		}
		return likes[i].CreatedAt.After(likes[j].CreatedAt)
	})

	tweets := make([]models.Tweet, 0, len(likes))
	for _, like := range likes {
		if tweet, ok := s.data.Tweets[like.TargetID]; ok {
			tweets = append(tweets, tweet)
		}
	}
	return tweets, nil
}
