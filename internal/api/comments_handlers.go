package api

import (
	"fmt"
	"net/http"
	"time"

	"videotube/internal/models"
)

type commentRequest struct {
	Content string `json:"content"`
}

type commentResponse struct {
	ID        string `json:"id"`
	OwnerID   string `json:"ownerId"`
	VideoID   string `json:"videoId"`
	Content   string `json:"content"`
	Likes     int    `json:"likes"`
	Liked     bool   `json:"liked"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

func (h *Handler) newCommentResponse(r *http.Request, comment models.Comment) commentResponse {
	resp := commentResponse{
		ID:        comment.ID,
		OwnerID:   comment.OwnerID,
		VideoID:   comment.VideoID,
		Content:   comment.Content,
		Likes:     h.Store.CountLikes(models.LikeTargetComment, comment.ID),
		CreatedAt: comment.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt: comment.UpdatedAt.Format(time.RFC3339Nano),
	}
	if actor, ok := UserFromContext(r.Context()); ok {
		resp.Liked = h.Store.IsLiked(actor.ID, models.LikeTargetComment, comment.ID)
	}
	return resp
}

// videoComments serves the comment collection nested under a video.
func (h *Handler) videoComments(w http.ResponseWriter, r *http.Request, videoID string) {
	switch r.Method {
	case http.MethodGet:
		page, limit := parseListQuery(r)
		comments, err := h.Store.ListComments(videoID, page, limit)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		response := make([]commentResponse, 0, len(comments))
		for _, comment := range comments {
			response = append(response, h.newCommentResponse(r, comment))
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"comments": response})
	case http.MethodPost:
		actor, ok := h.requireAuthenticatedUser(w, r)
		if !ok {
			return
		}
		var req commentRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		comment, err := h.Store.CreateComment(actor.ID, videoID, req.Content)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, h.newCommentResponse(r, comment))
	default:
		WriteMethodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

// CommentByID handles updates and deletes of a single comment.
func (h *Handler) CommentByID(w http.ResponseWriter, r *http.Request) {
	parts := pathSegments(r, "/api/comments/")
	if len(parts) != 1 || parts[0] == "" {
		WriteError(w, http.StatusNotFound, fmt.Errorf("comment id missing"))
		return
	}
	commentID := parts[0]

	comment, ok := h.Store.GetComment(commentID)
	if !ok {
		WriteError(w, http.StatusNotFound, fmt.Errorf("comment %s not found", commentID))
		return
	}

	switch r.Method {
	case http.MethodPatch:
		if _, ok := h.ensureOwner(w, r, comment); !ok {
			return
		}
		var req commentRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		updated, err := h.Store.UpdateComment(commentID, req.Content)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, h.newCommentResponse(r, updated))
	case http.MethodDelete:
		if _, ok := h.ensureOwner(w, r, comment); !ok {
			return
		}
		if err := h.Store.DeleteComment(commentID); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		WriteMethodNotAllowed(w, r, http.MethodPatch, http.MethodDelete)
	}
}
