package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"videotube/internal/assets"
	"videotube/internal/auth"
	"videotube/internal/media"
	"videotube/internal/models"
	"videotube/internal/storage"
)

var (
	errUploadRefused = fmt.Errorf("%w: refused", assets.ErrUploadFailed)
	errDeleteRefused = fmt.Errorf("%w: refused", assets.ErrDeleteFailed)
)

// stubAssetStore records remote calls and fails on demand.
type stubAssetStore struct {
	mu          sync.Mutex
	uploads     map[string][]byte
	deletes     []string
	failUploads bool
	failDeletes bool
}

func newStubAssetStore() *stubAssetStore {
	return &stubAssetStore{uploads: make(map[string][]byte)}
}

func (s *stubAssetStore) Enabled() bool { return true }

func (s *stubAssetStore) Upload(ctx context.Context, key, contentType string, body []byte) (models.AssetRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failUploads {
		return models.AssetRef{}, errUploadRefused
	}
	s.uploads[key] = append([]byte(nil), body...)
	return models.AssetRef{Key: key, URL: "https://cdn.example.com/" + key}, nil
}

func (s *stubAssetStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failDeletes {
		return errDeleteRefused
	}
	s.deletes = append(s.deletes, key)
	return nil
}

func (s *stubAssetStore) uploadedKeys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.uploads))
	for key := range s.uploads {
		keys = append(keys, key)
	}
	return keys
}

func (s *stubAssetStore) deletedKeys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.deletes...)
}

type testEnv struct {
	handler *Handler
	store   *storage.Storage
	assets  *stubAssetStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store, err := storage.NewStorage(filepath.Join(t.TempDir(), "store.json"))
	if err != nil {
		t.Fatalf("NewStorage: %v", err)
	}
	assetStore := newStubAssetStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	manager := media.NewManager(assetStore, logger, time.Second)
	handler := NewHandler(store, auth.NewSessionManager(time.Hour), manager)
	handler.StagingDir = t.TempDir()
	handler.Logger = logger
	return &testEnv{handler: handler, store: store, assets: assetStore}
}

func (env *testEnv) createUser(t *testing.T, username string) models.User {
	t.Helper()
	user, err := env.store.CreateUser(storage.CreateUserParams{
		Username: username,
		Email:    username + "@example.com",
		Password: "correct horse battery",
	})
	if err != nil {
		t.Fatalf("CreateUser %s: %v", username, err)
	}
	return user
}

func (env *testEnv) createVideo(t *testing.T, ownerID, title string) models.Video {
	t.Helper()
	video, err := env.store.CreateVideo(storage.CreateVideoParams{
		OwnerID:         ownerID,
		Title:           title,
		VideoFile:       models.AssetRef{Key: "videos/" + title + ".mp4"},
		Thumbnail:       models.AssetRef{Key: "thumbnails/" + title + ".jpg"},
		DurationSeconds: 10,
	})
	if err != nil {
		t.Fatalf("CreateVideo %s: %v", title, err)
	}
	return video
}

// as annotates the request the way the auth middleware would for an
// authenticated caller.
func as(r *http.Request, user models.User) *http.Request {
	return r.WithContext(ContextWithUser(r.Context(), user))
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(dest); err != nil {
		t.Fatalf("decode response body: %v (body %q)", err, rec.Body.String())
	}
}

type filePart struct {
	field       string
	name        string
	contentType string
	content     string
}

func multipartRequest(t *testing.T, method, target string, fields map[string]string, files ...filePart) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("write field %s: %v", key, err)
		}
	}
	for _, file := range files {
		header := make(map[string][]string)
		header["Content-Disposition"] = []string{`form-data; name="` + file.field + `"; filename="` + file.name + `"`}
		header["Content-Type"] = []string{file.contentType}
		part, err := writer.CreatePart(header)
		if err != nil {
			t.Fatalf("create part %s: %v", file.field, err)
		}
		if _, err := part.Write([]byte(file.content)); err != nil {
			t.Fatalf("write part %s: %v", file.field, err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	req := httptest.NewRequest(method, target, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}
