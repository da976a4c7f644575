package api

import (
	"fmt"
	"net/http"
	"strings"

	"videotube/internal/models"
)

type likeStateResponse struct {
	Liked bool `json:"liked"`
	Likes int  `json:"likes"`
}

// Likes dispatches /api/likes/{target}/{id} toggles and the liked-content
// listings at /api/likes/videos and /api/likes/tweets.
func (h *Handler) Likes(w http.ResponseWriter, r *http.Request) {
	parts := pathSegments(r, "/api/likes/")
	if len(parts) == 0 || parts[0] == "" {
		WriteError(w, http.StatusNotFound, fmt.Errorf("like target missing"))
		return
	}

	// Accept both singular and plural target segments.
	target, ok := models.ParseLikeTarget(strings.TrimSuffix(parts[0], "s"))
	if !ok {
		WriteError(w, http.StatusNotFound, fmt.Errorf("unknown like target %s", parts[0]))
		return
	}

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			WriteMethodNotAllowed(w, r, http.MethodGet)
			return
		}
		h.listLiked(w, r, target)
		return
	}

	if len(parts) == 2 && parts[1] != "" {
		if r.Method != http.MethodPost {
			WriteMethodNotAllowed(w, r, http.MethodPost)
			return
		}
		h.toggleLike(w, r, target, parts[1])
		return
	}

	WriteError(w, http.StatusNotFound, fmt.Errorf("unknown like resource"))
}

// toggleLike flips the caller's like on the target. The datastore resolves
// concurrent toggles for the same pair internally, so the handler only ever
// sees the settled state.
func (h *Handler) toggleLike(w http.ResponseWriter, r *http.Request, target models.LikeTarget, targetID string) {
	actor, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	liked, err := h.Store.ToggleLike(actor.ID, target, targetID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, likeStateResponse{
		Liked: liked,
		Likes: h.Store.CountLikes(target, targetID),
	})
}

func (h *Handler) listLiked(w http.ResponseWriter, r *http.Request, target models.LikeTarget) {
	actor, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	switch target {
	case models.LikeTargetVideo:
		videos, err := h.Store.ListLikedVideos(actor.ID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		response := make([]videoResponse, 0, len(videos))
		for _, video := range videos {
			response = append(response, h.newVideoResponse(r, video))
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"videos": response})
	case models.LikeTargetTweet:
		tweets, err := h.Store.ListLikedTweets(actor.ID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		response := make([]tweetResponse, 0, len(tweets))
		for _, tweet := range tweets {
			response = append(response, h.newTweetResponse(r, tweet))
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"tweets": response})
	default:
		WriteError(w, http.StatusNotFound, fmt.Errorf("no listing for target %s", target))
	}
}
