// Package media coordinates the lifecycle of remote video binaries against
// the document store: uploads happen before documents are written, deletes
// happen before documents are removed, and anything left stranded in between
// is reported as an orphan.
package media

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"videotube/internal/assets"
	"videotube/internal/models"
)

const defaultCallTimeout = 30 * time.Second

// Manager owns every remote asset call. Calls run on deadlines derived from
// the background context so a client disconnect never abandons a transfer
// midway.
type Manager struct {
	store   assets.Store
	logger  *slog.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewManager(store assets.Store, logger *slog.Logger, timeout time.Duration) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	return &Manager{store: store, logger: logger, timeout: timeout}
}

func (m *Manager) callCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), m.timeout)
}

// uploadStaged makes exactly one store attempt for the staged file and
// removes the local copy whether or not the attempt succeeded.
func (m *Manager) uploadStaged(key string, staged *assets.StagedFile) (models.AssetRef, error) {
	defer staged.Discard()
	body, err := staged.ReadAll()
	if err != nil {
		return models.AssetRef{}, fmt.Errorf("%w: read staged file: %v", assets.ErrUploadFailed, err)
	}
	ctx, cancel := m.callCtx()
	defer cancel()
	return m.store.Upload(ctx, key, staged.ContentType, body)
}

// UploadPair stores the video binary and its thumbnail concurrently. If
// either upload fails the whole operation fails and any binary that did land
// is released as an orphan; the caller must not persist a document.
func (m *Manager) UploadPair(videoKey string, video *assets.StagedFile, thumbKey string, thumb *assets.StagedFile) (models.AssetRef, models.AssetRef, error) {
	var videoRef, thumbRef models.AssetRef
	var group errgroup.Group
	group.Go(func() error {
		ref, err := m.uploadStaged(videoKey, video)
		videoRef = ref
		return err
	})
	group.Go(func() error {
		ref, err := m.uploadStaged(thumbKey, thumb)
		thumbRef = ref
		return err
	})
	if err := group.Wait(); err != nil {
		m.ReleaseOrphan(videoRef, "upload pair aborted")
		m.ReleaseOrphan(thumbRef, "upload pair aborted")
		return models.AssetRef{}, models.AssetRef{}, err
	}
	return videoRef, thumbRef, nil
}

// Replace uploads the new binary first. Only once the replacement is safely
// stored is the old one deleted; a failed delete of the old binary is logged
// as an orphan and the replacement still wins.
func (m *Manager) Replace(old models.AssetRef, key string, staged *assets.StagedFile) (models.AssetRef, error) {
	newRef, err := m.uploadStaged(key, staged)
	if err != nil {
		return models.AssetRef{}, err
	}
	if !old.IsZero() {
		ctx, cancel := m.callCtx()
		err := m.store.Delete(ctx, old.Key)
		cancel()
		if err != nil {
			m.logger.Warn("orphaned asset left behind",
				"key", old.Key,
				"url", old.URL,
				"reason", "replaced asset delete failed",
				"error", err)
		}
	}
	return newRef, nil
}

// Delete removes the given binaries from the remote store. Every delete must
// succeed (an already absent object counts as success) or the error is
// returned and the caller must keep its document.
func (m *Manager) Delete(refs ...models.AssetRef) error {
	for _, ref := range refs {
		if ref.IsZero() {
			continue
		}
		ctx, cancel := m.callCtx()
		err := m.store.Delete(ctx, ref.Key)
		cancel()
		if err != nil {
			return err
		}
	}
	return nil
}

// ReleaseOrphan records a binary that no document references any more and
// kicks off one best-effort delete in the background. Cleanup failure is
// logged, never surfaced.
func (m *Manager) ReleaseOrphan(ref models.AssetRef, reason string) {
	if ref.IsZero() {
		return
	}
	m.logger.Warn("orphaned asset released", "key", ref.Key, "url", ref.URL, "reason", reason)
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ctx, cancel := m.callCtx()
		defer cancel()
		if err := m.store.Delete(ctx, ref.Key); err != nil {
			m.logger.Warn("orphan cleanup failed", "key", ref.Key, "error", err)
		}
	}()
}

// Wait blocks until outstanding orphan cleanups finish. Used on shutdown and
// by tests.
func (m *Manager) Wait() {
	m.wg.Wait()
}
