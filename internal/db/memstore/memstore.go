// Package memstore implements the in-memory storage backend: the user
// directory, the link store with its ownership checks, the per-user
// ownership filter and the visit recorder.
//
// All state lives in process memory and is lost on restart. A single
// RWMutex guards the maps because the HTTP server dispatches handlers
// concurrently; every operation is one critical section, so no operation
// can leave partially applied state behind.
package memstore

import (
	"context"
	"strings"
	"sync"

	"github.com/patric-chuzhbe/tinylink/internal/models"
	"github.com/patric-chuzhbe/tinylink/internal/random"
	"github.com/patric-chuzhbe/tinylink/internal/user"
)

// Storage is the in-memory database. The zero value is not usable -
// construct it with New.
type Storage struct {
	mu    sync.RWMutex
	users map[string]*user.User
	links map[string]*models.Link

	// newKey produces short codes and user IDs. Overridable in tests.
	newKey func() string
}

type Option func(*Storage)

// WithKeyGenerator replaces the random key generator. Used by tests that
// need deterministic short codes and user IDs.
func WithKeyGenerator(newKey func() string) Option {
	return func(s *Storage) {
		s.newKey = newKey
	}
}

func New(options ...Option) *Storage {
	theStorage := &Storage{
		users:  map[string]*user.User{},
		links:  map[string]*models.Link{},
		newKey: random.Key,
	}
	for _, option := range options {
		option(theStorage)
	}

	return theStorage
}

// CreateUser registers a new account. The email must be non-empty after
// trimming surrounding whitespace and unique among registered accounts
// (exact, case-sensitive match); the password hash must be non-empty and is
// stored verbatim - hashing happens before this call.
func (s *Storage) CreateUser(ctx context.Context, email, passwordHash string) (*user.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || passwordHash == "" {
		return nil, models.ErrEmptyField
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, usr := range s.users {
		if usr.Email == email {
			return nil, models.ErrEmailTaken
		}
	}

	usr := &user.User{
		ID:           s.newKey(),
		Email:        email,
		PasswordHash: passwordHash,
	}
	s.users[usr.ID] = usr

	return copyUser(usr), nil
}

// FindUserByEmail performs an exact, case-sensitive match against the
// stored emails. A missing user is reported via the boolean, never as an
// error; the empty string never matches.
func (s *Storage) FindUserByEmail(ctx context.Context, email string) (*user.User, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, usr := range s.users {
		if usr.Email == email {
			return copyUser(usr), true, nil
		}
	}

	return nil, false, nil
}

func (s *Storage) FindUserByID(ctx context.Context, userID string) (*user.User, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	usr, found := s.users[userID]
	if !found {
		return nil, false, nil
	}

	return copyUser(usr), true, nil
}

// CreateLink stores a new link record with zeroed analytics and returns its
// short code. The code is not checked against existing ones: a collision of
// two 62^6 keys would silently overwrite, a risk the design accepts.
func (s *Storage) CreateLink(ctx context.Context, destinationURL, ownerID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	short := s.newKey()
	s.links[short] = &models.Link{
		ShortCode:      short,
		DestinationURL: destinationURL,
		OwnerUserID:    ownerID,
		UniqueVisitors: map[string]struct{}{},
	}

	return short, nil
}

func (s *Storage) FindLinkByShort(ctx context.Context, short string) (models.Link, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	link, found := s.links[short]
	if !found {
		return models.Link{}, false, nil
	}

	return copyLink(link), true, nil
}

// UpdateLinkDestination replaces the destination URL of an existing link.
// Only the owner may update; the analytics fields are left untouched.
func (s *Storage) UpdateLinkDestination(ctx context.Context, short, newURL, requesterID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	link, found := s.links[short]
	if !found {
		return models.ErrLinkNotFound
	}
	if link.OwnerUserID != requesterID {
		return models.ErrNotLinkOwner
	}

	link.DestinationURL = newURL

	return nil
}

// DeleteLink removes a link. The same ownership rule as for updates applies,
// so a careless handler cannot bypass it.
func (s *Storage) DeleteLink(ctx context.Context, short, requesterID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	link, found := s.links[short]
	if !found {
		return models.ErrLinkNotFound
	}
	if link.OwnerUserID != requesterID {
		return models.ErrNotLinkOwner
	}

	delete(s.links, short)

	return nil
}

// RemoveUserLinks deletes, per user, every listed link that the user
// actually owns. Unknown codes and links owned by somebody else are skipped
// silently - the batch remover treats them as already gone.
func (s *Storage) RemoveUserLinks(ctx context.Context, usersLinks map[string][]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for userID, shorts := range usersLinks {
		for _, short := range shorts {
			link, found := s.links[short]
			if !found || link.OwnerUserID != userID {
				continue
			}
			delete(s.links, short)
		}
	}

	return nil
}

// GetUserLinks returns a snapshot of exactly the links owned by the given
// user, keyed by short code. A user without links gets an empty map.
func (s *Storage) GetUserLinks(ctx context.Context, userID string) (map[string]models.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := map[string]models.Link{}
	for short, link := range s.links {
		if link.OwnerUserID == userID {
			result[short] = copyLink(link)
		}
	}

	return result, nil
}

// RecordVisit registers one redirect dispatch: the visit counter grows
// unconditionally, the visitor joins the unique-visitor set (a no-op for a
// returning visitor) and an entry is appended to the visit log. The
// timestamp is an opaque caller-formatted string stored verbatim.
// The destination URL is returned so the redirect handler needs no second
// lookup.
func (s *Storage) RecordVisit(ctx context.Context, short, visitorID, visitedAt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	link, found := s.links[short]
	if !found {
		return "", models.ErrLinkNotFound
	}

	link.VisitCount++
	link.UniqueVisitors[visitorID] = struct{}{}
	link.VisitLog = append(link.VisitLog, models.Visit{
		VisitedAt: visitedAt,
		VisitorID: visitorID,
	})

	return link.DestinationURL, nil
}

func (s *Storage) GetNumberOfLinks(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(s.links)), nil
}

func (s *Storage) GetNumberOfUsers(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(s.users)), nil
}

func (s *Storage) Ping(ctx context.Context) error {
	return nil
}

func (s *Storage) Close() error {
	return nil
}

func copyUser(usr *user.User) *user.User {
	userCopy := *usr
	return &userCopy
}

func copyLink(link *models.Link) models.Link {
	linkCopy := *link

	linkCopy.UniqueVisitors = make(map[string]struct{}, len(link.UniqueVisitors))
	for visitorID := range link.UniqueVisitors {
		linkCopy.UniqueVisitors[visitorID] = struct{}{}
	}

	linkCopy.VisitLog = make([]models.Visit, len(link.VisitLog))
	copy(linkCopy.VisitLog, link.VisitLog)

	return linkCopy
}
