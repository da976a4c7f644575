package storage

import (
	"fmt"
	"sort"
	"strings"

	"videotube/internal/models"
)

// Playlist operations

func (s *Storage) CreatePlaylist(ownerID, name, description string) (models.Playlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Users[ownerID]; !ok {
		return models.Playlist{}, fmt.Errorf("user %s: %w", ownerID, ErrNotFound)
	}
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

	now := s.now()
	playlist := models.Playlist{
		ID:          id,
		OwnerID:     ownerID,
		Name:        trimmed,
		Description: strings.TrimSpace(description),
		VideoIDs:    []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	s.data.Playlists[id] = playlist
	if err := s.persist(); err != nil {
		delete(s.data.Playlists, id)
		return models.Playlist{}, err
	}

	return playlist, nil
}

func (s *Storage) GetPlaylist(id string) (models.Playlist, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	playlist, ok := s.data.Playlists[id]
	if ok && playlist.VideoIDs != nil {
		playlist.VideoIDs = append([]string(nil), playlist.VideoIDs...)
	}
	return playlist, ok
}

func (s *Storage) ListPlaylists(ownerID string) ([]models.Playlist, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.data.Users[ownerID]; !ok {
		return nil, fmt.Errorf("user %s: %w", ownerID, ErrNotFound)
	}

	playlists := make([]models.Playlist, 0)
	for _, playlist := range s.data.Playlists {
		if playlist.OwnerID != ownerID {
			continue
		}
		if playlist.VideoIDs != nil {
			playlist.VideoIDs = append([]string(nil), playlist.VideoIDs...)
		}
		playlists = append(playlists, playlist)
	}
	sort.Slice(playlists, func(i, j int) bool {
		if playlists[i].CreatedAt.Equal(playlists[j].CreatedAt) {
			return playlists[i].ID < playlists[j].ID
		}
		return playlists[i].CreatedAt.After(playlists[j].CreatedAt)
	})
	return playlists, nil
}

func (s *Storage) UpdatePlaylist(id string, update PlaylistUpdate) (models.Playlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)

	playlist, ok := updatedData.Playlists[id]
	if !ok {
		return models.Playlist{}, fmt.Errorf("playlist %s: %w", id, ErrNotFound)
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
	playlist.UpdatedAt = s.now()

	updatedData.Playlists[id] = playlist
	if err := s.persistDataset(updatedData); err != nil {
		return models.Playlist{}, err
	}

	s.data = updatedData

	return playlist, nil
}

// AddPlaylistVideo appends a video to the playlist. Duplicate additions are
// rejected so playlist order stays meaningful.
func (s *Storage) AddPlaylistVideo(playlistID, videoID string) (models.Playlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)

	playlist, ok := updatedData.Playlists[playlistID]
	if !ok {
		return models.Playlist{}, fmt.Errorf("playlist %s: %w", playlistID, ErrNotFound)
	}
	if _, ok := updatedData.Videos[videoID]; !ok {
		return models.Playlist{}, fmt.Errorf("video %s: %w", videoID, ErrNotFound)
	}
	for _, existing := range playlist.VideoIDs {
		if existing == videoID {
			return models.Playlist{}, fmt.Errorf("%w: video %s already in playlist", ErrConflict, videoID)
		}
	}

	playlist.VideoIDs = append(playlist.VideoIDs, videoID)
	playlist.UpdatedAt = s.now()

	updatedData.Playlists[playlistID] = playlist
	if err := s.persistDataset(updatedData); err != nil {
		return models.Playlist{}, err
	}

	s.data = updatedData

	return playlist, nil
}

// RemovePlaylistVideo drops a video from the playlist. Removing a video that
// is not present reports ErrNotFound.
func (s *Storage) RemovePlaylistVideo(playlistID, videoID string) (models.Playlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)

	playlist, ok := updatedData.Playlists[playlistID]
	if !ok {
		return models.Playlist{}, fmt.Errorf("playlist %s: %w", playlistID, ErrNotFound)
	}

	found := false
	filtered := make([]string, 0, len(playlist.VideoIDs))
	for _, existing := range playlist.VideoIDs {
		if existing == videoID {
			found = true
			continue
		}
		filtered = append(filtered, existing)
	}
	if !found {
		return models.Playlist{}, fmt.Errorf("video %s not in playlist: %w", videoID, ErrNotFound)
	}

	playlist.VideoIDs = filtered
	playlist.UpdatedAt = s.now()

	updatedData.Playlists[playlistID] = playlist
	if err := s.persistDataset(updatedData); err != nil {
		return models.Playlist{}, err
	}

	s.data = updatedData

	return playlist, nil
}

func (s *Storage) DeletePlaylist(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)

	if _, ok := updatedData.Playlists[id]; !ok {
		return fmt.Errorf("playlist %s: %w", id, ErrNotFound)
	}

	delete(updatedData.Playlists, id)

	if err := s.persistDataset(updatedData); err != nil {
		return err
	}

	s.data = updatedData

	return nil
}
