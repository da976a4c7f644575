package media

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/textproto"
	"os"
	"sync"
	"testing"
	"time"

	"videotube/internal/assets"
	"videotube/internal/models"
)

type memFile struct {
	*bytes.Reader
}

func (memFile) Close() error { return nil }

func stageFile(t *testing.T, name, contentType, content string) *assets.StagedFile {
	t.Helper()
	header := &multipart.FileHeader{
		Filename: name,
		Header:   textproto.MIMEHeader{"Content-Type": []string{contentType}},
	}
	staged, err := assets.Stage(memFile{bytes.NewReader([]byte(content))}, header, t.TempDir())
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}
	return staged
}

// fakeStore records calls and fails on demand.
type fakeStore struct {
	mu          sync.Mutex
	calls       []string
	uploads     map[string][]byte
	deletes     []string
	failUploads map[string]error
	failDeletes map[string]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		uploads:     make(map[string][]byte),
		failUploads: make(map[string]error),
		failDeletes: make(map[string]error),
	}
}

func (f *fakeStore) Enabled() bool { return true }

func (f *fakeStore) Upload(ctx context.Context, key, contentType string, body []byte) (models.AssetRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "upload "+key)
	if err := f.failUploads[key]; err != nil {
		return models.AssetRef{}, err
	}
	f.uploads[key] = append([]byte(nil), body...)
	return models.AssetRef{Key: key, URL: "https://cdn.example.com/" + key}, nil
}

func (f *fakeStore) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "delete "+key)
	if err := f.failDeletes[key]; err != nil {
		return err
	}
	f.deletes = append(f.deletes, key)
	return nil
}

func (f *fakeStore) deleted(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.deletes {
		if d == key {
			return true
		}
	}
	return false
}

func (f *fakeStore) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func newTestManager(store assets.Store) *Manager {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewManager(store, logger, time.Second)
}

func TestUploadPairStoresBothAndDiscardsStaging(t *testing.T) {
	store := newFakeStore()
	manager := newTestManager(store)

	video := stageFile(t, "clip.mp4", "video/mp4", "binary video")
	thumb := stageFile(t, "clip.jpg", "image/jpeg", "binary thumb")
	videoPath := video.Path()
	thumbPath := thumb.Path()

	videoRef, thumbRef, err := manager.UploadPair("videos/clip.mp4", video, "thumbnails/clip.jpg", thumb)
	if err != nil {
		t.Fatalf("UploadPair: %v", err)
	}
	if videoRef.Key != "videos/clip.mp4" || thumbRef.Key != "thumbnails/clip.jpg" {
		t.Fatalf("unexpected refs %+v / %+v", videoRef, thumbRef)
	}
	if string(store.uploads["videos/clip.mp4"]) != "binary video" {
		t.Fatal("video body not stored")
	}
	for _, path := range []string{videoPath, thumbPath} {
		if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
			t.Fatalf("expected staged file %s removed, stat err %v", path, err)
		}
	}
	if video.Path() != "" || thumb.Path() != "" {
		t.Fatal("expected staged files marked discarded")
	}
}

func TestUploadPairFailureReleasesTheSurvivor(t *testing.T) {
	store := newFakeStore()
	store.failUploads["videos/clip.mp4"] = errors.New("boom")
	manager := newTestManager(store)

	video := stageFile(t, "clip.mp4", "video/mp4", "binary video")
	thumb := stageFile(t, "clip.jpg", "image/jpeg", "binary thumb")

	videoRef, thumbRef, err := manager.UploadPair("videos/clip.mp4", video, "thumbnails/clip.jpg", thumb)
	if err == nil {
		t.Fatal("expected UploadPair to fail")
	}
	if !videoRef.IsZero() || !thumbRef.IsZero() {
		t.Fatalf("expected zero refs on failure, got %+v / %+v", videoRef, thumbRef)
	}

	manager.Wait()
	if !store.deleted("thumbnails/clip.jpg") {
		t.Fatal("expected the landed thumbnail to be released as an orphan")
	}
	if video.Path() != "" || thumb.Path() != "" {
		t.Fatal("expected staged files discarded even on failure")
	}
}

func TestUploadStagedMakesExactlyOneAttempt(t *testing.T) {
	store := newFakeStore()
	store.failUploads["videos/clip.mp4"] = errors.New("boom")
	manager := newTestManager(store)

	staged := stageFile(t, "clip.mp4", "video/mp4", "binary video")
	path := staged.Path()

	if _, err := manager.uploadStaged("videos/clip.mp4", staged); err == nil {
		t.Fatal("expected upload failure to surface")
	}

	attempts := 0
	for _, call := range store.callLog() {
		if call == "upload videos/clip.mp4" {
			attempts++
		}
	}
	if attempts != 1 {
		t.Fatalf("expected exactly one store attempt, got %d", attempts)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected staged file removed after the attempt, stat err %v", err)
	}
}

func TestReplaceUploadsNewBeforeDeletingOld(t *testing.T) {
	store := newFakeStore()
	manager := newTestManager(store)

	old := models.AssetRef{Key: "videos/old.mp4", URL: "https://cdn.example.com/videos/old.mp4"}
	staged := stageFile(t, "new.mp4", "video/mp4", "fresh")

	newRef, err := manager.Replace(old, "videos/new.mp4", staged)
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if newRef.Key != "videos/new.mp4" {
		t.Fatalf("unexpected new ref %+v", newRef)
	}

	calls := store.callLog()
	if len(calls) != 2 || calls[0] != "upload videos/new.mp4" || calls[1] != "delete videos/old.mp4" {
		t.Fatalf("expected upload before delete, got %v", calls)
	}
}

func TestReplaceKeepsNewRefWhenOldDeleteFails(t *testing.T) {
	store := newFakeStore()
	store.failDeletes["videos/old.mp4"] = errors.New("boom")
	manager := newTestManager(store)

	old := models.AssetRef{Key: "videos/old.mp4"}
	staged := stageFile(t, "new.mp4", "video/mp4", "fresh")

	newRef, err := manager.Replace(old, "videos/new.mp4", staged)
	if err != nil {
		t.Fatalf("Replace should tolerate old delete failure: %v", err)
	}
	if newRef.Key != "videos/new.mp4" {
		t.Fatalf("unexpected new ref %+v", newRef)
	}
}

func TestReplaceUploadFailureLeavesOldAlone(t *testing.T) {
	store := newFakeStore()
	store.failUploads["videos/new.mp4"] = errors.New("boom")
	manager := newTestManager(store)

	old := models.AssetRef{Key: "videos/old.mp4"}
	staged := stageFile(t, "new.mp4", "video/mp4", "fresh")

	if _, err := manager.Replace(old, "videos/new.mp4", staged); err == nil {
		t.Fatal("expected Replace to fail")
	}
	for _, call := range store.callLog() {
		if call == "delete videos/old.mp4" {
			t.Fatal("old binary must survive a failed replacement upload")
		}
	}
}

func TestReplaceWithZeroOldSkipsDelete(t *testing.T) {
	store := newFakeStore()
	manager := newTestManager(store)

	staged := stageFile(t, "new.mp4", "video/mp4", "fresh")
	if _, err := manager.Replace(models.AssetRef{}, "videos/new.mp4", staged); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	calls := store.callLog()
	if len(calls) != 1 || calls[0] != "upload videos/new.mp4" {
		t.Fatalf("expected a single upload call, got %v", calls)
	}
}

func TestDeleteStopsAtFirstFailure(t *testing.T) {
	store := newFakeStore()
	store.failDeletes["videos/a.mp4"] = errors.New("boom")
	manager := newTestManager(store)

	err := manager.Delete(
		models.AssetRef{},
		models.AssetRef{Key: "videos/a.mp4"},
		models.AssetRef{Key: "thumbnails/a.jpg"},
	)
	if err == nil {
		t.Fatal("expected Delete to fail")
	}
	for _, call := range store.callLog() {
		if call == "delete thumbnails/a.jpg" {
			t.Fatal("expected Delete to stop at the first failure")
		}
	}
}

func TestDeleteSucceedsAcrossAllRefs(t *testing.T) {
	store := newFakeStore()
	manager := newTestManager(store)

	err := manager.Delete(
		models.AssetRef{Key: "videos/a.mp4"},
		models.AssetRef{Key: "thumbnails/a.jpg"},
	)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if !store.deleted("videos/a.mp4") || !store.deleted("thumbnails/a.jpg") {
		t.Fatalf("expected both objects deleted, got %v", store.deletes)
	}
}

// contextObservingStore records the state of the context each remote call
// receives at the moment the call runs.
type contextObservingStore struct {
	inner *fakeStore
	mu    sync.Mutex
	seen  []callContext
}

type callContext struct {
	op          string
	errAtCall   error
	hasDeadline bool
}

func (c *contextObservingStore) observe(ctx context.Context, op string) {
	_, hasDeadline := ctx.Deadline()
	c.mu.Lock()
	c.seen = append(c.seen, callContext{op: op, errAtCall: ctx.Err(), hasDeadline: hasDeadline})
	c.mu.Unlock()
}

func (c *contextObservingStore) Enabled() bool { return true }

func (c *contextObservingStore) Upload(ctx context.Context, key, contentType string, body []byte) (models.AssetRef, error) {
	c.observe(ctx, "upload "+key)
	return c.inner.Upload(ctx, key, contentType, body)
}

func (c *contextObservingStore) Delete(ctx context.Context, key string) error {
	c.observe(ctx, "delete "+key)
	return c.inner.Delete(ctx, key)
}

func (c *contextObservingStore) observed() []callContext {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]callContext(nil), c.seen...)
}

func TestRemoteCallsOutliveCallerCancellation(t *testing.T) {
	store := &contextObservingStore{inner: newFakeStore()}
	manager := newTestManager(store)

	// The client behind this replace has already disconnected.
	requestCtx, cancel := context.WithCancel(context.Background())
	cancel()
	if requestCtx.Err() == nil {
		t.Fatal("request context must be cancelled for this scenario")
	}

	old := models.AssetRef{Key: "videos/old.mp4"}
	staged := stageFile(t, "new.mp4", "video/mp4", "fresh")

	newRef, err := manager.Replace(old, "videos/new.mp4", staged)
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if newRef.Key != "videos/new.mp4" {
		t.Fatalf("unexpected new ref %+v", newRef)
	}
	if !store.inner.deleted("videos/old.mp4") {
		t.Fatal("expected the old binary deleted despite the disconnect")
	}

	seen := store.observed()
	if len(seen) != 2 {
		t.Fatalf("expected an upload and a delete, got %v", seen)
	}
	for _, call := range seen {
		if call.errAtCall != nil {
			t.Fatalf("%s ran on a dead context: %v", call.op, call.errAtCall)
		}
		if !call.hasDeadline {
			t.Fatalf("%s must run under the transfer deadline", call.op)
		}
	}
}

func TestReleaseOrphanCleansUpInBackground(t *testing.T) {
	store := newFakeStore()
	manager := newTestManager(store)

	manager.ReleaseOrphan(models.AssetRef{Key: "videos/orphan.mp4"}, "document write failed")
	manager.Wait()
	if !store.deleted("videos/orphan.mp4") {
		t.Fatal("expected background delete of orphan")
	}

	// Zero refs are ignored.
	manager.ReleaseOrphan(models.AssetRef{}, "nothing")
	manager.Wait()
	calls := store.callLog()
	if len(calls) != 1 {
		t.Fatalf("expected a single delete call, got %v", calls)
	}
}
