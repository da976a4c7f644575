package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestTweetsCreateAndList(t *testing.T) {
	env := newTestEnv(t)
	author := env.createUser(t, "author")

	rec := httptest.NewRecorder()
	env.handler.Tweets(rec, httptest.NewRequest(http.MethodPost, "/api/tweets", strings.NewReader(`{"content":"anon"}`)))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for anonymous tweet, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	env.handler.Tweets(rec, as(httptest.NewRequest(http.MethodPost, "/api/tweets", strings.NewReader(`{"content":"hello"}`)), author))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created tweetResponse
	decodeBody(t, rec, &created)
	if created.Content != "hello" || created.OwnerID != author.ID {
		t.Fatalf("unexpected tweet %+v", created)
	}

	// Without an owner filter the listing requires a session and scopes to
	// the caller.
	rec = httptest.NewRecorder()
	env.handler.Tweets(rec, httptest.NewRequest(http.MethodGet, "/api/tweets", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for anonymous unscoped listing, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	env.handler.Tweets(rec, as(httptest.NewRequest(http.MethodGet, "/api/tweets", nil), author))
	var own struct {
		Tweets []tweetResponse `json:"tweets"`
	}
	decodeBody(t, rec, &own)
	if len(own.Tweets) != 1 {
		t.Fatalf("expected 1 tweet, got %d", len(own.Tweets))
	}

	// An explicit owner filter is public.
	rec = httptest.NewRecorder()
	env.handler.Tweets(rec, httptest.NewRequest(http.MethodGet, "/api/tweets?owner="+author.ID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for scoped public listing, got %d", rec.Code)
	}
}

func TestTweetAuthorisationOrder(t *testing.T) {
	env := newTestEnv(t)
	author := env.createUser(t, "author")
	stranger := env.createUser(t, "stranger")

	tweet, err := env.store.CreateTweet(author.ID, "mine")
	if err != nil {
		t.Fatalf("CreateTweet: %v", err)
	}

	rec := httptest.NewRecorder()
	env.handler.TweetByID(rec, httptest.NewRequest(http.MethodDelete, "/api/tweets/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 first, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	env.handler.TweetByID(rec, httptest.NewRequest(http.MethodDelete, "/api/tweets/"+tweet.ID, nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without credentials, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	env.handler.TweetByID(rec, as(httptest.NewRequest(http.MethodPatch, "/api/tweets/"+tweet.ID, strings.NewReader(`{"content":"hijack"}`)), stranger))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-owner, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	env.handler.TweetByID(rec, as(httptest.NewRequest(http.MethodPatch, "/api/tweets/"+tweet.ID, strings.NewReader(`{"content":"edited"}`)), author))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for author, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	env.handler.TweetByID(rec, as(httptest.NewRequest(http.MethodDelete, "/api/tweets/"+tweet.ID, nil), author))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}
