package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"videotube/internal/models"
	"videotube/internal/storage"
)

type updateVideoRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

type videoResponse struct {
	ID              string          `json:"id"`
	OwnerID         string          `json:"ownerId"`
	Title           string          `json:"title"`
	Description     string          `json:"description,omitempty"`
	VideoFile       models.AssetRef `json:"videoFile"`
	Thumbnail       models.AssetRef `json:"thumbnail"`
	DurationSeconds float64         `json:"durationSeconds"`
	Views           int64           `json:"views"`
	IsPublished     bool            `json:"isPublished"`
	Likes           int             `json:"likes"`
	Liked           bool            `json:"liked"`
	CreatedAt       string          `json:"createdAt"`
	UpdatedAt       string          `json:"updatedAt"`
}

func (h *Handler) newVideoResponse(r *http.Request, video models.Video) videoResponse {
	resp := videoResponse{
		ID:              video.ID,
		OwnerID:         video.OwnerID,
		Title:           video.Title,
		Description:     video.Description,
		VideoFile:       video.VideoFile,
		Thumbnail:       video.Thumbnail,
		DurationSeconds: video.DurationSeconds,
		Views:           video.Views,
		IsPublished:     video.IsPublished,
		Likes:           h.Store.CountLikes(models.LikeTargetVideo, video.ID),
		CreatedAt:       video.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt:       video.UpdatedAt.Format(time.RFC3339Nano),
	}
	if actor, ok := UserFromContext(r.Context()); ok {
		resp.Liked = h.Store.IsLiked(actor.ID, models.LikeTargetVideo, video.ID)
	}
	return resp
}

func parseListQuery(r *http.Request) (page, limit int) {
	query := r.URL.Query()
	if value := strings.TrimSpace(query.Get("page")); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			page = parsed
		}
	}
	if value := strings.TrimSpace(query.Get("limit")); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			limit = parsed
		}
	}
	return page, limit
}

// Videos serves the video collection: listing on GET and multipart publish
// on POST.
func (h *Handler) Videos(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listVideos(w, r)
	case http.MethodPost:
		actor, ok := h.requireAuthenticatedUser(w, r)
		if !ok {
			return
		}
		h.createVideo(w, r, actor)
	default:
		WriteMethodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (h *Handler) listVideos(w http.ResponseWriter, r *http.Request) {
	page, limit := parseListQuery(r)
	params := storage.ListVideosParams{
		OwnerID: strings.TrimSpace(r.URL.Query().Get("owner")),
		Page:    page,
		Limit:   limit,
	}
	if actor, ok := UserFromContext(r.Context()); ok && params.OwnerID == actor.ID {
		params.IncludeUnpublished = true
	}
	videos, err := h.Store.ListVideos(params)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	response := make([]videoResponse, 0, len(videos))
	for _, video := range videos {
		response = append(response, h.newVideoResponse(r, video))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"videos": response})
}

// createVideo uploads the binary pair before any document exists. When either
// transfer fails nothing is persisted, and when the document write fails both
// stored binaries are released as orphans.
func (h *Handler) createVideo(w http.ResponseWriter, r *http.Request, actor models.User) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid multipart payload"))
		return
	}
	title := strings.TrimSpace(r.FormValue("title"))
	description := strings.TrimSpace(r.FormValue("description"))
	var duration float64
	if raw := strings.TrimSpace(r.FormValue("durationSeconds")); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid durationSeconds"))
			return
		}
		duration = parsed
	}

	stagedVideo, err := h.stageFormFile(r, "videoFile")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	stagedThumb, err := h.stageFormFile(r, "thumbnail")
	if err != nil {
		stagedVideo.Discard()
		writeError(w, http.StatusBadRequest, err)
		return
	}

	videoRef, thumbRef, err := h.Media.UploadPair(
		assetKey("videos", stagedVideo.Name), stagedVideo,
		assetKey("thumbnails", stagedThumb.Name), stagedThumb,
	)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	video, err := h.Store.CreateVideo(storage.CreateVideoParams{
		OwnerID:         actor.ID,
		Title:           title,
		Description:     description,
		VideoFile:       videoRef,
		Thumbnail:       thumbRef,
		DurationSeconds: duration,
	})
	if err != nil {
		h.Media.ReleaseOrphan(videoRef, "video document write failed")
		h.Media.ReleaseOrphan(thumbRef, "video document write failed")
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.newVideoResponse(r, video))
}

// VideoByID dispatches /api/videos/{id} and its subresources.
func (h *Handler) VideoByID(w http.ResponseWriter, r *http.Request) {
	parts := pathSegments(r, "/api/videos/")
	if len(parts) == 0 || parts[0] == "" {
		WriteError(w, http.StatusNotFound, fmt.Errorf("video id missing"))
		return
	}
	videoID := parts[0]

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			h.getVideo(w, r, videoID)
		case http.MethodPatch:
			h.updateVideo(w, r, videoID)
		case http.MethodDelete:
			h.deleteVideo(w, r, videoID)
		default:
			WriteMethodNotAllowed(w, r, http.MethodGet, http.MethodPatch, http.MethodDelete)
		}
		return
	}

	if len(parts) == 2 {
		switch parts[1] {
		case "publish":
			h.togglePublish(w, r, videoID)
			return
		case "thumbnail":
			h.replaceVideoAsset(w, r, videoID, "thumbnail")
			return
		case "file":
			h.replaceVideoAsset(w, r, videoID, "videoFile")
			return
		case "comments":
			h.videoComments(w, r, videoID)
			return
		}
	}

	WriteError(w, http.StatusNotFound, fmt.Errorf("unknown video resource"))
}

func (h *Handler) getVideo(w http.ResponseWriter, r *http.Request, videoID string) {
	video, ok := h.Store.GetVideo(videoID)
	if !ok {
		WriteError(w, http.StatusNotFound, fmt.Errorf("video %s not found", videoID))
		return
	}
	actor, authed := UserFromContext(r.Context())
	isOwner := authed && actor.ID == video.OwnerID
	if !video.IsPublished && !isOwner {
		// Unpublished videos are invisible to everyone but the owner.
		WriteError(w, http.StatusNotFound, fmt.Errorf("video %s not found", videoID))
		return
	}
	if !isOwner {
		// Owners previewing their own video do not count as an audience.
		counted, err := h.Store.IncrementVideoViews(videoID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		video = counted
	}
	writeJSON(w, http.StatusOK, h.newVideoResponse(r, video))
}

func (h *Handler) updateVideo(w http.ResponseWriter, r *http.Request, videoID string) {
	video, ok := h.Store.GetVideo(videoID)
	if !ok {
		WriteError(w, http.StatusNotFound, fmt.Errorf("video %s not found", videoID))
		return
	}
	if _, ok := h.ensureOwner(w, r, video); !ok {
		return
	}
	var req updateVideoRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	updated, err := h.Store.UpdateVideo(videoID, storage.VideoUpdate{
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.newVideoResponse(r, updated))
}

// deleteVideo removes the remote binaries first. The document survives any
// remote delete failure so no stored object is ever left unreferenced.
func (h *Handler) deleteVideo(w http.ResponseWriter, r *http.Request, videoID string) {
	video, ok := h.Store.GetVideo(videoID)
	if !ok {
		WriteError(w, http.StatusNotFound, fmt.Errorf("video %s not found", videoID))
		return
	}
	if _, ok := h.ensureOwner(w, r, video); !ok {
		return
	}
	if err := h.Media.Delete(video.VideoFile, video.Thumbnail); err != nil {
		writeDomainError(w, err)
		return
	}
	if err := h.Store.DeleteVideo(videoID); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) togglePublish(w http.ResponseWriter, r *http.Request, videoID string) {
	if r.Method != http.MethodPost {
		WriteMethodNotAllowed(w, r, http.MethodPost)
		return
	}
	video, ok := h.Store.GetVideo(videoID)
	if !ok {
		WriteError(w, http.StatusNotFound, fmt.Errorf("video %s not found", videoID))
		return
	}
	if _, ok := h.ensureOwner(w, r, video); !ok {
		return
	}
	updated, err := h.Store.TogglePublish(videoID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.newVideoResponse(r, updated))
}

// replaceVideoAsset swaps a single binary on an existing video. The new
// binary is stored before the old one is touched, and a replacement that
// cannot be persisted is released as an orphan.
func (h *Handler) replaceVideoAsset(w http.ResponseWriter, r *http.Request, videoID, field string) {
	if r.Method != http.MethodPut {
		WriteMethodNotAllowed(w, r, http.MethodPut)
		return
	}
	video, ok := h.Store.GetVideo(videoID)
	if !ok {
		WriteError(w, http.StatusNotFound, fmt.Errorf("video %s not found", videoID))
		return
	}
	if _, ok := h.ensureOwner(w, r, video); !ok {
		return
	}
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid multipart payload"))
		return
	}
	staged, err := h.stageFormFile(r, field)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	update := storage.VideoUpdate{}
	var old models.AssetRef
	var prefix string
	switch field {
	case "thumbnail":
		old, prefix = video.Thumbnail, "thumbnails"
	default:
		old, prefix = video.VideoFile, "videos"
		if raw := strings.TrimSpace(r.FormValue("durationSeconds")); raw != "" {
			parsed, parseErr := strconv.ParseFloat(raw, 64)
			if parseErr != nil || parsed < 0 {
				staged.Discard()
				writeError(w, http.StatusBadRequest, fmt.Errorf("invalid durationSeconds"))
				return
			}
			update.DurationSeconds = &parsed
		}
	}

	newRef, err := h.Media.Replace(old, assetKey(prefix, staged.Name), staged)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if field == "thumbnail" {
		update.Thumbnail = &newRef
	} else {
		update.VideoFile = &newRef
	}
	updated, err := h.Store.UpdateVideo(videoID, update)
	if err != nil {
		h.Media.ReleaseOrphan(newRef, "replacement not persisted")
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.newVideoResponse(r, updated))
}
