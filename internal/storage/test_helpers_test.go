package storage

import (
	"path/filepath"
	"testing"

	"videotube/internal/models"
)

func newTestStore(t *testing.T) *Storage {
	t.Helper()
	dir := t.TempDir()
	store, err := NewStorage(filepath.Join(dir, "store.json"))
	if err != nil {
		t.Fatalf("NewStorage error: %v", err)
	}
	return store
}

func seedUser(t *testing.T, store *Storage, username string) models.User {
	t.Helper()
	user, err := store.CreateUser(CreateUserParams{
		Username: username,
		Email:    username + "@example.com",
		FullName: "Test User",
		Password: "correct horse battery",
	})
	if err != nil {
		t.Fatalf("CreateUser %s: %v", username, err)
	}
	return user
}

func seedVideo(t *testing.T, store *Storage, ownerID, title string) models.Video {
	t.Helper()
	video, err := store.CreateVideo(CreateVideoParams{
		OwnerID:         ownerID,
		Title:           title,
		Description:     "uploaded in a test",
		VideoFile:       models.AssetRef{Key: "videos/" + title + ".mp4", URL: "https://cdn.example.com/videos/" + title + ".mp4"},
		Thumbnail:       models.AssetRef{Key: "thumbnails/" + title + ".jpg", URL: "https://cdn.example.com/thumbnails/" + title + ".jpg"},
		DurationSeconds: 42,
	})
	if err != nil {
		t.Fatalf("CreateVideo %s: %v", title, err)
	}
	return video
}
