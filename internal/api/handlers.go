package api

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"videotube/internal/assets"
	"videotube/internal/auth"
	"videotube/internal/media"
	"videotube/internal/storage"
)

const (
	sessionCookieName = "videotube_session"

	// maxMultipartMemory bounds the in-memory portion of a multipart parse;
	// larger bodies spill to temp files.
	maxMultipartMemory = 32 << 20
)

type Handler struct {
	Store      storage.Repository
	Sessions   *auth.SessionManager
	Media      *media.Manager
	StagingDir string
	Logger     *slog.Logger
}

func NewHandler(store storage.Repository, sessions *auth.SessionManager, manager *media.Manager) *Handler {
	if sessions == nil {
		sessions = auth.NewSessionManager(24 * time.Hour)
	}
	if manager == nil {
		manager = media.NewManager(assets.NewStore(assets.Config{}), slog.Default(), 0)
	}
	return &Handler{Store: store, Sessions: sessions, Media: manager, Logger: slog.Default()}
}

func (h *Handler) sessionManager() *auth.SessionManager {
	if h.Sessions == nil {
		h.Sessions = auth.NewSessionManager(24 * time.Hour)
	}
	return h.Sessions
}

func (h *Handler) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	checks := map[string]string{}
	if h.Store != nil {
		if err := h.Store.Ping(r.Context()); err != nil {
			status = "degraded"
			checks["datastore"] = err.Error()
		} else {
			checks["datastore"] = "ok"
		}
	}
	if err := h.sessionManager().Ping(r.Context()); err != nil {
		status = "degraded"
		checks["sessions"] = err.Error()
	} else {
		checks["sessions"] = "ok"
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   status,
		"services": checks,
	})
}

func setSessionCookie(w http.ResponseWriter, r *http.Request, token string, expires time.Time) {
	if token == "" {
		return
	}
	maxAge := int(time.Until(expires).Seconds())
	if maxAge < 0 {
		maxAge = 0
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires.UTC(),
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		SameSite: http.SameSiteStrictMode,
	})
}

func clearSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0).UTC(),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		SameSite: http.SameSiteStrictMode,
	})
}

func isSecureRequest(r *http.Request) bool {
	if r == nil {
		return false
	}
	if r.TLS != nil {
		return true
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		for _, p := range strings.Split(proto, ",") {
			if strings.EqualFold(strings.TrimSpace(p), "https") {
				return true
			}
		}
	}
	return false
}

// assetKey builds a collision-free object key under prefix, preserving the
// original file extension for content-type inference downstream.
func assetKey(prefix, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return fmt.Sprintf("%s/%d%s", prefix, time.Now().UnixNano(), ext)
	}
	return fmt.Sprintf("%s/%s%s", prefix, hex.EncodeToString(buf[:]), ext)
}

// stageFormFile spools the named multipart field to local disk. The caller
// owns the returned staged file and must hand it to the media manager or
// discard it.
func (h *Handler) stageFormFile(r *http.Request, field string) (*assets.StagedFile, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, fmt.Errorf("%s file is required", field)
	}
	defer file.Close()
	return assets.Stage(file, header, h.StagingDir)
}

// pathSegments splits the request path after prefix into trimmed segments.
func pathSegments(r *http.Request, prefix string) []string {
	path := strings.TrimPrefix(r.URL.Path, prefix)
	parts := strings.Split(path, "/")
	for len(parts) > 0 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return parts
}
