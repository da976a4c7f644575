package storage

import (
	"context"

	"videotube/internal/models"
)

// Repository exposes the datastore operations required by API handlers. Two
// implementations exist: the JSON file store and the Postgres repository.
type Repository interface {
	Ping(ctx context.Context) error

	CreateUser(params CreateUserParams) (models.User, error)
	AuthenticateUser(identifier, password string) (models.User, error)
	GetUser(id string) (models.User, bool)
	FindUserByLogin(identifier string) (models.User, bool)
	UpdateUserAssets(id string, update UserAssetUpdate) (models.User, error)

	CreateVideo(params CreateVideoParams) (models.Video, error)
	GetVideo(id string) (models.Video, bool)
	ListVideos(params ListVideosParams) ([]models.Video, error)
	UpdateVideo(id string, update VideoUpdate) (models.Video, error)
	TogglePublish(id string) (models.Video, error)
	IncrementVideoViews(id string) (models.Video, error)
	DeleteVideo(id string) error

	CreateComment(ownerID, videoID, content string) (models.Comment, error)
	GetComment(id string) (models.Comment, bool)
	ListComments(videoID string, page, limit int) ([]models.Comment, error)
	UpdateComment(id, content string) (models.Comment, error)
	DeleteComment(id string) error

	CreateTweet(ownerID, content string) (models.Tweet, error)
	GetTweet(id string) (models.Tweet, bool)
	ListTweets(ownerID string) ([]models.Tweet, error)
	UpdateTweet(id, content string) (models.Tweet, error)
	DeleteTweet(id string) error

	CreatePlaylist(ownerID, name, description string) (models.Playlist, error)
	GetPlaylist(id string) (models.Playlist, bool)
	ListPlaylists(ownerID string) ([]models.Playlist, error)
	UpdatePlaylist(id string, update PlaylistUpdate) (models.Playlist, error)
	AddPlaylistVideo(playlistID, videoID string) (models.Playlist, error)
	RemovePlaylistVideo(playlistID, videoID string) (models.Playlist, error)
	DeletePlaylist(id string) error

	ToggleLike(userID string, target models.LikeTarget, targetID string) (bool, error)
	CountLikes(target models.LikeTarget, targetID string) int
	IsLiked(userID string, target models.LikeTarget, targetID string) bool
	ListLikedVideos(userID string) ([]models.Video, error)
	ListLikedTweets(userID string) ([]models.Tweet, error)
}

var _ Repository = (*Storage)(nil)
