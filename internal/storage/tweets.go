package storage

import (
	"fmt"
	"sort"
	"strings"

	"videotube/internal/models"
)

// Tweet operations

func (s *Storage) CreateTweet(ownerID, content string) (models.Tweet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Users[ownerID]; !ok {
		return models.Tweet{}, fmt.Errorf("user %s: %w", ownerID, ErrNotFound)
	}
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

	now := s.now()
	tweet := models.Tweet{
		ID:        id,
		OwnerID:   ownerID,
		Content:   trimmed,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.data.Tweets[id] = tweet
	if err := s.persist(); err != nil {
		delete(s.data.Tweets, id)
		return models.Tweet{}, err
	}

	return tweet, nil
}

func (s *Storage) GetTweet(id string) (models.Tweet, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tweet, ok := s.data.Tweets[id]
	return tweet, ok
}

func (s *Storage) ListTweets(ownerID string) ([]models.Tweet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.data.Users[ownerID]; !ok {
		return nil, fmt.Errorf("user %s: %w", ownerID, ErrNotFound)
	}

	tweets := make([]models.Tweet, 0)
	for _, tweet := range s.data.Tweets {
		if tweet.OwnerID == ownerID {
			tweets = append(tweets, tweet)
		}
	}
	sort.Slice(tweets, func(i, j int) bool {
		if tweets[i].CreatedAt.Equal(tweets[j].CreatedAt) {
			return tweets[i].ID < tweets[j].ID
		}
		return tweets[i].CreatedAt.After(tweets[j].CreatedAt)
	})
	return tweets, nil
}

func (s *Storage) UpdateTweet(id, content string) (models.Tweet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)

	tweet, ok := updatedData.Tweets[id]
	if !ok {
		return models.Tweet{}, fmt.Errorf("tweet %s: %w", id, ErrNotFound)
	}

	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return models.Tweet{}, fmt.Errorf("%w: content is required", ErrInvalidInput)
	}
	if len(trimmed) > MaxTweetLength {
		return models.Tweet{}, fmt.Errorf("%w: content exceeds %d characters", ErrInvalidInput, MaxTweetLength)
	}

	tweet.Content = trimmed
	tweet.UpdatedAt = s.now()

	updatedData.Tweets[id] = tweet
	if err := s.persistDataset(updatedData); err != nil {
		return models.Tweet{}, err
	}

	s.data = updatedData

	return tweet, nil
}

// DeleteTweet removes the tweet and any likes pointing at it.
func (s *Storage) DeleteTweet(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)

	if _, ok := updatedData.Tweets[id]; !ok {
		return fmt.Errorf("tweet %s: %w", id, ErrNotFound)
	}

	delete(updatedData.Tweets, id)
	removeLikesForTarget(updatedData.Likes, models.LikeTargetTweet, id)

	if err := s.persistDataset(updatedData); err != nil {
		return err
	}

	s.data = updatedData

	return nil
}
