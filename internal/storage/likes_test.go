package storage

import (
	"errors"
	"sync"
	"testing"
	"time"

	"videotube/internal/models"
)

func TestToggleLikeFlipsState(t *testing.T) {
	store := newTestStore(t)
	alice := seedUser(t, store, "alice")
	bob := seedUser(t, store, "bob")
	video := seedVideo(t, store, alice.ID, "intro")

	liked, err := store.ToggleLike(bob.ID, models.LikeTargetVideo, video.ID)
	if err != nil {
		t.Fatalf("ToggleLike on: %v", err)
	}
	if !liked {
		t.Fatal("expected first toggle to like")
	}
	if !store.IsLiked(bob.ID, models.LikeTargetVideo, video.ID) {
		t.Fatal("expected IsLiked true after toggle on")
	}
	if got := store.CountLikes(models.LikeTargetVideo, video.ID); got != 1 {
		t.Fatalf("expected 1 like, got %d", got)
	}

	liked, err = store.ToggleLike(bob.ID, models.LikeTargetVideo, video.ID)
	if err != nil {
		t.Fatalf("ToggleLike off: %v", err)
	}
	if liked {
		t.Fatal("expected second toggle to unlike")
	}
	if got := store.CountLikes(models.LikeTargetVideo, video.ID); got != 0 {
		t.Fatalf("expected 0 likes, got %d", got)
	}
}

func TestToggleLikeValidatesReferences(t *testing.T) {
	store := newTestStore(t)
	alice := seedUser(t, store, "alice")
	video := seedVideo(t, store, alice.ID, "intro")

	if _, err := store.ToggleLike("missing", models.LikeTargetVideo, video.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown user, got %v", err)
	}
	if _, err := store.ToggleLike(alice.ID, models.LikeTargetVideo, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown video, got %v", err)
	}
	if _, err := store.ToggleLike(alice.ID, models.LikeTarget("channel"), video.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown target type, got %v", err)
	}
}

// Concurrent toggles for the same (user, target) pair must serialise so the
// store ends up with at most one like row and every caller sees a settled
// answer.
func TestToggleLikeConcurrentTogglesKeepSingleRow(t *testing.T) {
	store := newTestStore(t)
	alice := seedUser(t, store, "alice")
	bob := seedUser(t, store, "bob")
	video := seedVideo(t, store, alice.ID, "intro")

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.ToggleLike(bob.ID, models.LikeTargetVideo, video.ID); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent ToggleLike: %v", err)
	}

	count := store.CountLikes(models.LikeTargetVideo, video.ID)
	if count != 0 && count != 1 {
		t.Fatalf("expected 0 or 1 likes after %d toggles, got %d", workers, count)
	}
	// Even worker count: the toggles cancel out.
	if count != 0 {
		t.Fatalf("expected even toggle count to settle at 0 likes, got %d", count)
	}
	if store.IsLiked(bob.ID, models.LikeTargetVideo, video.ID) != (count == 1) {
		t.Fatal("IsLiked disagrees with CountLikes")
	}
}

func TestToggleLikePersistFailureLeavesStateUntouched(t *testing.T) {
	store := newTestStore(t)
	alice := seedUser(t, store, "alice")
	video := seedVideo(t, store, alice.ID, "intro")

	store.persistOverride = func(dataset) error { return errors.New("disk full") }
	if _, err := store.ToggleLike(alice.ID, models.LikeTargetVideo, video.ID); err == nil {
		t.Fatal("expected persist failure to surface")
	}
	store.persistOverride = nil

	if store.CountLikes(models.LikeTargetVideo, video.ID) != 0 {
		t.Fatal("expected no like after failed persist")
	}
}

func TestListLikedVideosOrdersByLikeTime(t *testing.T) {
	store := newTestStore(t)
	alice := seedUser(t, store, "alice")
	bob := seedUser(t, store, "bob")

	first := seedVideo(t, store, alice.ID, "first")
	second := seedVideo(t, store, alice.ID, "second")

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	store.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	if _, err := store.ToggleLike(bob.ID, models.LikeTargetVideo, first.ID); err != nil {
		t.Fatalf("ToggleLike first: %v", err)
	}
	if _, err := store.ToggleLike(bob.ID, models.LikeTargetVideo, second.ID); err != nil {
		t.Fatalf("ToggleLike second: %v", err)
	}

	videos, err := store.ListLikedVideos(bob.ID)
	if err != nil {
		t.Fatalf("ListLikedVideos: %v", err)
	}
	if len(videos) != 2 {
		t.Fatalf("expected 2 liked videos, got %d", len(videos))
	}
	if videos[0].ID != second.ID || videos[1].ID != first.ID {
		t.Fatalf("expected most recent like first, got %s then %s", videos[0].ID, videos[1].ID)
	}

	// A video deleted after the like is skipped, not surfaced as a hole.
	if err := store.DeleteVideo(second.ID); err != nil {
		t.Fatalf("DeleteVideo: %v", err)
	}
	videos, err = store.ListLikedVideos(bob.ID)
	if err != nil {
		t.Fatalf("ListLikedVideos after delete: %v", err)
	}
	if len(videos) != 1 || videos[0].ID != first.ID {
		t.Fatalf("expected only %s to remain, got %v", first.ID, videos)
	}

	if _, err := store.ListLikedVideos("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown user, got %v", err)
	}
}

func TestListLikedTweets(t *testing.T) {
	store := newTestStore(t)
	alice := seedUser(t, store, "alice")
	bob := seedUser(t, store, "bob")

	tweet, err := store.CreateTweet(alice.ID, "hello world")
	if err != nil {
		t.Fatalf("CreateTweet: %v", err)
	}
	if _, err := store.ToggleLike(bob.ID, models.LikeTargetTweet, tweet.ID); err != nil {
		t.Fatalf("ToggleLike tweet: %v", err)
	}

	tweets, err := store.ListLikedTweets(bob.ID)
	if err != nil {
		t.Fatalf("ListLikedTweets: %v", err)
	}
	if len(tweets) != 1 || tweets[0].ID != tweet.ID {
		t.Fatalf("expected liked tweet %s, got %v", tweet.ID, tweets)
	}

	none, err := store.ListLikedTweets(alice.ID)
	if err != nil {
		t.Fatalf("ListLikedTweets empty: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no liked tweets, got %d", len(none))
	}
}
