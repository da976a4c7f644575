package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestPlaylistsCreateAndList(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "owner")

	rec := httptest.NewRecorder()
	env.handler.Playlists(rec, as(httptest.NewRequest(http.MethodPost, "/api/playlists", strings.NewReader(`{"name":"Watch Later","description":"queue"}`)), owner))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created playlistResponse
	decodeBody(t, rec, &created)
	if created.Name != "Watch Later" || created.OwnerID != owner.ID {
		t.Fatalf("unexpected playlist %+v", created)
	}
	if created.VideoIDs == nil {
		t.Fatal("expected empty, non-null video list")
	}

	rec = httptest.NewRecorder()
	env.handler.Playlists(rec, httptest.NewRequest(http.MethodGet, "/api/playlists?owner="+owner.ID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var listing struct {
		Playlists []playlistResponse `json:"playlists"`
	}
	decodeBody(t, rec, &listing)
	if len(listing.Playlists) != 1 {
		t.Fatalf("expected 1 playlist, got %d", len(listing.Playlists))
	}
}

func TestPlaylistAuthorisationOrder(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "owner")
	stranger := env.createUser(t, "stranger")

	playlist, err := env.store.CreatePlaylist(owner.ID, "mix", "")
	if err != nil {
		t.Fatalf("CreatePlaylist: %v", err)
	}

	rec := httptest.NewRecorder()
	env.handler.PlaylistByID(rec, httptest.NewRequest(http.MethodDelete, "/api/playlists/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 first, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	env.handler.PlaylistByID(rec, httptest.NewRequest(http.MethodDelete, "/api/playlists/"+playlist.ID, nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without credentials, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	env.handler.PlaylistByID(rec, as(httptest.NewRequest(http.MethodDelete, "/api/playlists/"+playlist.ID, nil), stranger))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-owner, got %d", rec.Code)
	}

	// Reads stay public.
	rec = httptest.NewRecorder()
	env.handler.PlaylistByID(rec, httptest.NewRequest(http.MethodGet, "/api/playlists/"+playlist.ID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for public read, got %d", rec.Code)
	}
}

func TestPlaylistVideoMembershipEndpoints(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "owner")
	stranger := env.createUser(t, "stranger")
	video := env.createVideo(t, owner.ID, "clip")

	playlist, err := env.store.CreatePlaylist(owner.ID, "mix", "")
	if err != nil {
		t.Fatalf("CreatePlaylist: %v", err)
	}
	target := "/api/playlists/" + playlist.ID + "/videos/" + video.ID

	rec := httptest.NewRecorder()
	env.handler.PlaylistByID(rec, as(httptest.NewRequest(http.MethodPut, target, nil), stranger))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-owner add, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	env.handler.PlaylistByID(rec, as(httptest.NewRequest(http.MethodPut, target, nil), owner))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for owner add, got %d: %s", rec.Code, rec.Body.String())
	}
	var updated playlistResponse
	decodeBody(t, rec, &updated)
	if len(updated.VideoIDs) != 1 || updated.VideoIDs[0] != video.ID {
		t.Fatalf("expected video in playlist, got %v", updated.VideoIDs)
	}

	// Duplicate add conflicts.
	rec = httptest.NewRecorder()
	env.handler.PlaylistByID(rec, as(httptest.NewRequest(http.MethodPut, target, nil), owner))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate add, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	env.handler.PlaylistByID(rec, as(httptest.NewRequest(http.MethodDelete, target, nil), owner))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for remove, got %d", rec.Code)
	}
	decodeBody(t, rec, &updated)
	if len(updated.VideoIDs) != 0 {
		t.Fatalf("expected empty playlist, got %v", updated.VideoIDs)
	}

	// Removing an absent membership reports 404.
	rec = httptest.NewRecorder()
	env.handler.PlaylistByID(rec, as(httptest.NewRequest(http.MethodDelete, target, nil), owner))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for absent membership, got %d", rec.Code)
	}
}

func TestUpdatePlaylist(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "owner")

	playlist, err := env.store.CreatePlaylist(owner.ID, "mix", "")
	if err != nil {
		t.Fatalf("CreatePlaylist: %v", err)
	}

	rec := httptest.NewRecorder()
	env.handler.PlaylistByID(rec, as(httptest.NewRequest(http.MethodPatch, "/api/playlists/"+playlist.ID, strings.NewReader(`{"name":"renamed"}`)), owner))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var updated playlistResponse
	decodeBody(t, rec, &updated)
	if updated.Name != "renamed" {
		t.Fatalf("expected renamed playlist, got %q", updated.Name)
	}
}
