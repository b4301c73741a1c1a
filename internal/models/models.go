// Package models holds the data model of the link store together with the
// request/response shapes of the HTTP API and the sentinel errors shared
// between the storage, service and router layers.
package models

import "errors"

// Visit is a single recorded redirect dispatch.
// VisitedAt is stored verbatim as formatted by the caller.
type Visit struct {
	VisitedAt string `json:"visited_at"`
	VisitorID string `json:"visitor_id"`
}

// Link is a shortened link record. ShortCode and OwnerUserID never change
// after creation; DestinationURL may be updated by the owner; the analytics
// fields are touched only by visit recording.
type Link struct {
	ShortCode      string
	DestinationURL string
	OwnerUserID    string
	VisitCount     int
	UniqueVisitors map[string]struct{}
	VisitLog       []Visit
}

type RegisterRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type RegisterResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type ShortenRequest struct {
	URL string `json:"url" validate:"required,url"`
}

type ShortenResponse struct {
	Result string `json:"result"`
}

type UpdateURLRequest struct {
	URL string `json:"url" validate:"required,url"`
}

type UserURL struct {
	ShortURL    string `json:"short_url" validate:"required,url"`
	OriginalURL string `json:"original_url" validate:"required,url"`
}

type UserUrls []UserURL

// URLFormatter turns a bare short key into an absolute short URL.
type URLFormatter func(shortKey string) string

type LinkStatsResponse struct {
	ShortURL       string  `json:"short_url"`
	OriginalURL    string  `json:"original_url"`
	VisitCount     int     `json:"visit_count"`
	UniqueVisitors int     `json:"unique_visitors"`
	Visits         []Visit `json:"visits"`
}

type InternalStatsResponse struct {
	URLs  int64 `json:"urls"`
	Users int64 `json:"users"`
}

type DeleteURLsRequest []string

// URLDeleteJob is a unit of work for the background URLs remover.
type URLDeleteJob struct {
	UserID       string
	URLsToDelete DeleteURLsRequest
}

// ErrEmptyField is returned when a required field is empty after trimming.
var ErrEmptyField = errors.New("required field is empty")

// ErrEmailTaken is returned on registration with an already used email.
var ErrEmailTaken = errors.New("email already registered")

// ErrLinkNotFound is returned when the referenced short code is absent.
var ErrLinkNotFound = errors.New("link not found")

// ErrNotLinkOwner is returned when a requester tries to modify a link
// owned by another user.
var ErrNotLinkOwner = errors.New("link belongs to another user")
