package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"videotube/internal/models"
)

func TestToggleLikeEndpoint(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "owner")
	viewer := env.createUser(t, "viewer")
	video := env.createVideo(t, owner.ID, "clip")

	target := "/api/likes/videos/" + video.ID

	rec := httptest.NewRecorder()
	env.handler.Likes(rec, httptest.NewRequest(http.MethodPost, target, nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for anonymous toggle, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	env.handler.Likes(rec, as(httptest.NewRequest(http.MethodPost, target, nil), viewer))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var state likeStateResponse
	decodeBody(t, rec, &state)
	if !state.Liked || state.Likes != 1 {
		t.Fatalf("expected liked with count 1, got %+v", state)
	}

	rec = httptest.NewRecorder()
	env.handler.Likes(rec, as(httptest.NewRequest(http.MethodPost, target, nil), viewer))
	decodeBody(t, rec, &state)
	if state.Liked || state.Likes != 0 {
		t.Fatalf("expected unliked with count 0, got %+v", state)
	}

	// Singular target segments work too.
	rec = httptest.NewRecorder()
	env.handler.Likes(rec, as(httptest.NewRequest(http.MethodPost, "/api/likes/video/"+video.ID, nil), viewer))
	decodeBody(t, rec, &state)
	if !state.Liked {
		t.Fatalf("expected singular segment toggle to like, got %+v", state)
	}

	rec = httptest.NewRecorder()
	env.handler.Likes(rec, as(httptest.NewRequest(http.MethodPost, "/api/likes/videos/missing", nil), viewer))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown target id, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	env.handler.Likes(rec, as(httptest.NewRequest(http.MethodPost, "/api/likes/channels/x", nil), viewer))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown target type, got %d", rec.Code)
	}
}

func TestToggleLikeOnCommentsAndTweets(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "owner")
	viewer := env.createUser(t, "viewer")
	video := env.createVideo(t, owner.ID, "clip")

	comment, err := env.store.CreateComment(owner.ID, video.ID, "first!")
	if err != nil {
		t.Fatalf("CreateComment: %v", err)
	}
	tweet, err := env.store.CreateTweet(owner.ID, "hello")
	if err != nil {
		t.Fatalf("CreateTweet: %v", err)
	}

	for _, target := range []string{
		"/api/likes/comments/" + comment.ID,
		"/api/likes/tweets/" + tweet.ID,
	} {
		rec := httptest.NewRecorder()
		env.handler.Likes(rec, as(httptest.NewRequest(http.MethodPost, target, nil), viewer))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200 for %s, got %d: %s", target, rec.Code, rec.Body.String())
		}
	}
	if env.store.CountLikes(models.LikeTargetComment, comment.ID) != 1 {
		t.Fatal("expected comment like recorded")
	}
	if env.store.CountLikes(models.LikeTargetTweet, tweet.ID) != 1 {
		t.Fatal("expected tweet like recorded")
	}
}

func TestListLikedContent(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "owner")
	viewer := env.createUser(t, "viewer")
	video := env.createVideo(t, owner.ID, "clip")

	tweet, err := env.store.CreateTweet(owner.ID, "hello")
	if err != nil {
		t.Fatalf("CreateTweet: %v", err)
	}
	if _, err := env.store.ToggleLike(viewer.ID, models.LikeTargetVideo, video.ID); err != nil {
		t.Fatalf("ToggleLike video: %v", err)
	}
	if _, err := env.store.ToggleLike(viewer.ID, models.LikeTargetTweet, tweet.ID); err != nil {
		t.Fatalf("ToggleLike tweet: %v", err)
	}

	rec := httptest.NewRecorder()
	env.handler.Likes(rec, httptest.NewRequest(http.MethodGet, "/api/likes/videos", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for anonymous listing, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	env.handler.Likes(rec, as(httptest.NewRequest(http.MethodGet, "/api/likes/videos", nil), viewer))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var videos struct {
		Videos []videoResponse `json:"videos"`
	}
	decodeBody(t, rec, &videos)
	if len(videos.Videos) != 1 || videos.Videos[0].ID != video.ID {
		t.Fatalf("unexpected liked videos %+v", videos.Videos)
	}
	if !videos.Videos[0].Liked {
		t.Fatal("expected liked flag set for the caller")
	}

	rec = httptest.NewRecorder()
	env.handler.Likes(rec, as(httptest.NewRequest(http.MethodGet, "/api/likes/tweets", nil), viewer))
	var tweets struct {
		Tweets []tweetResponse `json:"tweets"`
	}
	decodeBody(t, rec, &tweets)
	if len(tweets.Tweets) != 1 || tweets.Tweets[0].ID != tweet.ID {
		t.Fatalf("unexpected liked tweets %+v", tweets.Tweets)
	}

	// Comments have no liked-content listing.
	rec = httptest.NewRecorder()
	env.handler.Likes(rec, as(httptest.NewRequest(http.MethodGet, "/api/likes/comments", nil), viewer))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for comment listing, got %d", rec.Code)
	}
}
