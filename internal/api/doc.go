// Package api implements the VideoTube HTTP handlers.
//
// Handlers authenticate via session tokens, authorise mutations against the
// owning user, and coordinate remote asset transfers through the media
// manager before any document is persisted or removed.
package api
