package api

import (
	"fmt"
	"net/http"

	"videotube/internal/models"
	"videotube/internal/storage"
)

// CurrentUser dispatches /api/users/me and its avatar and cover image
// subresources.
func (h *Handler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	parts := pathSegments(r, "/api/users/me")
	for len(parts) > 0 && parts[0] == "" {
		parts = parts[1:]
	}

	actor, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}

	if len(parts) == 0 {
		if r.Method != http.MethodGet {
			WriteMethodNotAllowed(w, r, http.MethodGet)
			return
		}
		writeJSON(w, http.StatusOK, newUserResponse(actor))
		return
	}

	if len(parts) == 1 {
		switch parts[0] {
		case "avatar":
			h.replaceUserAsset(w, r, actor, "avatar")
			return
		case "cover":
			h.replaceUserAsset(w, r, actor, "cover")
			return
		}
	}

	WriteError(w, http.StatusNotFound, fmt.Errorf("unknown user resource"))
}

// replaceUserAsset swaps the caller's avatar or cover image. The new image
// is stored before the old one is deleted; a replacement that cannot be
// persisted is released as an orphan.
func (h *Handler) replaceUserAsset(w http.ResponseWriter, r *http.Request, actor models.User, kind string) {
	if r.Method != http.MethodPatch {
		WriteMethodNotAllowed(w, r, http.MethodPatch)
		return
	}
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid multipart payload"))
		return
	}
	staged, err := h.stageFormFile(r, kind)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var old models.AssetRef
	var prefix string
	if kind == "avatar" {
		old, prefix = actor.Avatar, "avatars"
	} else {
		old, prefix = actor.CoverImage, "covers"
	}

	newRef, err := h.Media.Replace(old, assetKey(prefix, staged.Name), staged)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	update := storage.UserAssetUpdate{}
	if kind == "avatar" {
		update.Avatar = &newRef
	} else {
		update.CoverImage = &newRef
	}
	updated, err := h.Store.UpdateUserAssets(actor.ID, update)
	if err != nil {
		h.Media.ReleaseOrphan(newRef, "replacement not persisted")
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(updated))
}
