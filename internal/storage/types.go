package storage

import (
	"errors"
	"sync"
	"time"

	"videotube/internal/models"
)

const (
	passwordHashSaltLength = 16
	passwordHashKeyLength  = 32
	passwordHashIterations = 120000

	// MaxTitleLength bounds video titles.
	MaxTitleLength = 200
	// MaxDescriptionLength bounds video and playlist descriptions.
	MaxDescriptionLength = 2000
	// MaxCommentLength bounds comment bodies.
	MaxCommentLength = 1000
	// MaxTweetLength bounds tweet bodies.
	MaxTweetLength = 280

	// DefaultPageSize is applied when a listing request omits a limit.
	DefaultPageSize = 20
	// MaxPageSize caps a single listing page.
	MaxPageSize = 100
)

var (
	// ErrNotFound indicates the addressed resource does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput indicates a validation failure on caller-supplied data.
	ErrInvalidInput = errors.New("invalid input")
	// ErrConflict indicates a uniqueness violation such as a duplicate email.
	ErrConflict = errors.New("conflict")

	ErrInvalidCredentials = errors.New("invalid credentials")
)

type dataset struct {
	Users     map[string]models.User     `json:"users"`
	Videos    map[string]models.Video    `json:"videos"`
	Comments  map[string]models.Comment  `json:"comments"`
	Tweets    map[string]models.Tweet    `json:"tweets"`
	Playlists map[string]models.Playlist `json:"playlists"`
	Likes     map[string]models.Like     `json:"likes"`
}

type Storage struct {
	mu       sync.RWMutex
	filePath string
	data     dataset
	// persistOverride allows tests to intercept persist operations.
	persistOverride func(dataset) error
	now             func() time.Time
}

// CreateUserParams captures the attributes required to register a user.
type CreateUserParams struct {
	Username string
	Email    string
	FullName string
	Password string
}

// UserAssetUpdate carries replacement avatar or cover references. Nil fields
// are left unchanged.
type UserAssetUpdate struct {
	Avatar     *models.AssetRef
	CoverImage *models.AssetRef
}

// CreateVideoParams captures a fully uploaded video ready to be persisted.
type CreateVideoParams struct {
	OwnerID         string
	Title           string
	Description     string
	VideoFile       models.AssetRef
	Thumbnail       models.AssetRef
	DurationSeconds float64
}

// VideoUpdate represents the mutable fields of a video. Nil fields are left
// unchanged.
type VideoUpdate struct {
	Title           *string
	Description     *string
	VideoFile       *models.AssetRef
	Thumbnail       *models.AssetRef
	DurationSeconds *float64
	IsPublished     *bool
}

// ListVideosParams filters and paginates video listings.
type ListVideosParams struct {
	OwnerID            string
	IncludeUnpublished bool
	Page               int
	Limit              int
}

// PlaylistUpdate represents the mutable fields of a playlist. Nil fields are
// left unchanged.
type PlaylistUpdate struct {
	Name        *string
	Description *string
}
