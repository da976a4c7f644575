package models

import (
	"strings"
	"time"
)

// LikeTarget identifies the kind of resource a like points at.
type LikeTarget string

const (
	LikeTargetVideo   LikeTarget = "video"
	LikeTargetComment LikeTarget = "comment"
	LikeTargetTweet   LikeTarget = "tweet"
)

// ParseLikeTarget normalises a client-supplied target type.
func ParseLikeTarget(value string) (LikeTarget, bool) {
	switch LikeTarget(strings.ToLower(strings.TrimSpace(value))) {
	case LikeTargetVideo:
		return LikeTargetVideo, true
	case LikeTargetComment:
		return LikeTargetComment, true
	case LikeTargetTweet:
		return LikeTargetTweet, true
	}
	return "", false
}

// AssetRef points at a binary stored in the remote object store. The zero
// value means no asset is attached.
type AssetRef struct {
	Key string `json:"key,omitempty"`
	URL string `json:"url,omitempty"`
}

// IsZero reports whether the reference is empty.
func (a AssetRef) IsZero() bool {
	return a.Key == "" && a.URL == ""
}

// Owned is implemented by every resource that belongs to a single user.
// Mutation handlers authorise against it without knowing the concrete type.
type Owned interface {
	OwnedBy() string
}

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FullName     string    `json:"fullName"`
	PasswordHash string    `json:"passwordHash,omitempty"`
	Avatar       AssetRef  `json:"avatar,omitempty"`
	CoverImage   AssetRef  `json:"coverImage,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

type Video struct {
	ID              string    `json:"id"`
	OwnerID         string    `json:"ownerId"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	VideoFile       AssetRef  `json:"videoFile"`
	Thumbnail       AssetRef  `json:"thumbnail"`
	DurationSeconds float64   `json:"durationSeconds"`
	Views           int64     `json:"views"`
	IsPublished     bool      `json:"isPublished"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func (v Video) OwnedBy() string { return v.OwnerID }

type Comment struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	VideoID   string    `json:"videoId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (c Comment) OwnedBy() string { return c.OwnerID }

type Tweet struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (t Tweet) OwnedBy() string { return t.OwnerID }

type Playlist struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"ownerId"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	VideoIDs    []string  `json:"videoIds"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (p Playlist) OwnedBy() string { return p.OwnerID }

type Like struct {
	ID         string     `json:"id"`
	LikedBy    string     `json:"likedBy"`
	TargetType LikeTarget `json:"targetType"`
	TargetID   string     `json:"targetId"`
	CreatedAt  time.Time  `json:"createdAt"`
}
