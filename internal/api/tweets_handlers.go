package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"videotube/internal/models"
)

type tweetRequest struct {
	Content string `json:"content"`
}

type tweetResponse struct {
	ID        string `json:"id"`
	OwnerID   string `json:"ownerId"`
	Content   string `json:"content"`
	Likes     int    `json:"likes"`
	Liked     bool   `json:"liked"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

func (h *Handler) newTweetResponse(r *http.Request, tweet models.Tweet) tweetResponse {
	resp := tweetResponse{
		ID:        tweet.ID,
		OwnerID:   tweet.OwnerID,
		Content:   tweet.Content,
		Likes:     h.Store.CountLikes(models.LikeTargetTweet, tweet.ID),
		CreatedAt: tweet.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt: tweet.UpdatedAt.Format(time.RFC3339Nano),
	}
	if actor, ok := UserFromContext(r.Context()); ok {
		resp.Liked = h.Store.IsLiked(actor.ID, models.LikeTargetTweet, tweet.ID)
	}
	return resp
}

// Tweets serves the tweet collection: an owner-scoped listing on GET and
// creation on POST.
func (h *Handler) Tweets(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		ownerID := strings.TrimSpace(r.URL.Query().Get("owner"))
		if ownerID == "" {
			if actor, ok := h.requireAuthenticatedUser(w, r); ok {
				ownerID = actor.ID
			} else {
				return
			}
		}
		tweets, err := h.Store.ListTweets(ownerID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		response := make([]tweetResponse, 0, len(tweets))
		for _, tweet := range tweets {
			response = append(response, h.newTweetResponse(r, tweet))
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"tweets": response})
	case http.MethodPost:
		actor, ok := h.requireAuthenticatedUser(w, r)
		if !ok {
			return
		}
		var req tweetRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		tweet, err := h.Store.CreateTweet(actor.ID, req.Content)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, h.newTweetResponse(r, tweet))
	default:
		WriteMethodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

// TweetByID handles updates and deletes of a single tweet.
func (h *Handler) TweetByID(w http.ResponseWriter, r *http.Request) {
	parts := pathSegments(r, "/api/tweets/")
	if len(parts) != 1 || parts[0] == "" {
		WriteError(w, http.StatusNotFound, fmt.Errorf("tweet id missing"))
		return
	}
	tweetID := parts[0]

	tweet, ok := h.Store.GetTweet(tweetID)
	if !ok {
		WriteError(w, http.StatusNotFound, fmt.Errorf("tweet %s not found", tweetID))
		return
	}

	switch r.Method {
	case http.MethodPatch:
		if _, ok := h.ensureOwner(w, r, tweet); !ok {
			return
		}
		var req tweetRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		updated, err := h.Store.UpdateTweet(tweetID, req.Content)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, h.newTweetResponse(r, updated))
	case http.MethodDelete:
		if _, ok := h.ensureOwner(w, r, tweet); !ok {
			return
		}
		if err := h.Store.DeleteTweet(tweetID); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		WriteMethodNotAllowed(w, r, http.MethodPatch, http.MethodDelete)
	}
}
