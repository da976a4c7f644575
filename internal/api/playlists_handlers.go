package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"videotube/internal/models"
	"videotube/internal/storage"
)

type createPlaylistRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type updatePlaylistRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type playlistResponse struct {
	ID          string   `json:"id"`
	OwnerID     string   `json:"ownerId"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	VideoIDs    []string `json:"videoIds"`
	CreatedAt   string   `json:"createdAt"`
	UpdatedAt   string   `json:"updatedAt"`
}

func newPlaylistResponse(playlist models.Playlist) playlistResponse {
	return playlistResponse{
		ID:          playlist.ID,
		OwnerID:     playlist.OwnerID,
		Name:        playlist.Name,
		Description: playlist.Description,
		VideoIDs:    append([]string{}, playlist.VideoIDs...),
		CreatedAt:   playlist.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt:   playlist.UpdatedAt.Format(time.RFC3339Nano),
	}
}

// Playlists serves the playlist collection.
func (h *Handler) Playlists(w http.ResponseWriter, r *http.Request) {
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
		playlists, err := h.Store.ListPlaylists(ownerID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		response := make([]playlistResponse, 0, len(playlists))
		for _, playlist := range playlists {
			response = append(response, newPlaylistResponse(playlist))
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"playlists": response})
	case http.MethodPost:
		actor, ok := h.requireAuthenticatedUser(w, r)
		if !ok {
			return
		}
		var req createPlaylistRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		playlist, err := h.Store.CreatePlaylist(actor.ID, req.Name, req.Description)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, newPlaylistResponse(playlist))
	default:
		WriteMethodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

// PlaylistByID dispatches /api/playlists/{id} and the nested video
// membership resource /api/playlists/{id}/videos/{videoID}.
func (h *Handler) PlaylistByID(w http.ResponseWriter, r *http.Request) {
	parts := pathSegments(r, "/api/playlists/")
	if len(parts) == 0 || parts[0] == "" {
		WriteError(w, http.StatusNotFound, fmt.Errorf("playlist id missing"))
		return
	}
	playlistID := parts[0]

	playlist, ok := h.Store.GetPlaylist(playlistID)
	if !ok {
		WriteError(w, http.StatusNotFound, fmt.Errorf("playlist %s not found", playlistID))
		return
	}

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, newPlaylistResponse(playlist))
		case http.MethodPatch:
			if _, ok := h.ensureOwner(w, r, playlist); !ok {
				return
			}
			var req updatePlaylistRequest
			if err := decodeJSON(r, &req); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			updated, err := h.Store.UpdatePlaylist(playlistID, storage.PlaylistUpdate{
				Name:        req.Name,
				Description: req.Description,
			})
			if err != nil {
				writeDomainError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, newPlaylistResponse(updated))
		case http.MethodDelete:
			if _, ok := h.ensureOwner(w, r, playlist); !ok {
				return
			}
			if err := h.Store.DeletePlaylist(playlistID); err != nil {
				writeDomainError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			WriteMethodNotAllowed(w, r, http.MethodGet, http.MethodPatch, http.MethodDelete)
		}
		return
	}

	if len(parts) == 3 && parts[1] == "videos" && parts[2] != "" {
		videoID := parts[2]
		if _, ok := h.ensureOwner(w, r, playlist); !ok {
			return
		}
		switch r.Method {
		case http.MethodPut:
			updated, err := h.Store.AddPlaylistVideo(playlistID, videoID)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, newPlaylistResponse(updated))
		case http.MethodDelete:
			updated, err := h.Store.RemovePlaylistVideo(playlistID, videoID)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, newPlaylistResponse(updated))
		default:
			WriteMethodNotAllowed(w, r, http.MethodPut, http.MethodDelete)
		}
		return
	}

	WriteError(w, http.StatusNotFound, fmt.Errorf("unknown playlist resource"))
}
