// Package service contains the application logic sitting between the HTTP
// handlers and the storage: account registration and authentication,
// link shortening, ownership-scoped listing, visit recording and stats.
package service

import (
	"context"
	"errors"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/thoas/go-funk"

	"github.com/patric-chuzhbe/tinylink/internal/models"
	"github.com/patric-chuzhbe/tinylink/internal/user"
)

type userKeeper interface {
	CreateUser(ctx context.Context, email, passwordHash string) (*user.User, error)

	FindUserByEmail(ctx context.Context, email string) (*user.User, bool, error)

	FindUserByID(ctx context.Context, userID string) (*user.User, bool, error)
}

type linksKeeper interface {
	CreateLink(ctx context.Context, destinationURL, ownerID string) (string, error)

	FindLinkByShort(ctx context.Context, short string) (models.Link, bool, error)

	UpdateLinkDestination(ctx context.Context, short, newURL, requesterID string) error

	DeleteLink(ctx context.Context, short, requesterID string) error

	GetUserLinks(ctx context.Context, userID string) (map[string]models.Link, error)
}

type visitsRecorder interface {
	RecordVisit(ctx context.Context, short, visitorID, visitedAt string) (string, error)
}

type statsKeeper interface {
	GetNumberOfLinks(ctx context.Context) (int64, error)

	GetNumberOfUsers(ctx context.Context) (int64, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

type storage interface {
	userKeeper
	linksKeeper
	visitsRecorder
	statsKeeper
	pinger
}

type hasher interface {
	Hash(ctx context.Context, password string) (string, error)
	Compare(ctx context.Context, hash, password string) error
}

type urlsRemover interface {
	EnqueueJob(job *models.URLDeleteJob)
}

// ErrInvalidCredentials is returned on login with an unknown email or a
// wrong password. The two cases are deliberately indistinguishable.
var ErrInvalidCredentials = errors.New("invalid email or password")

// ErrInvalidURLInRequest is returned when the request contains no valid URL substring.
var ErrInvalidURLInRequest = errors.New("there is no valid URL substring in the request")

var urlPattern = regexp.MustCompile(`\bhttps?://\S+\b`)

type Service struct {
	db           storage
	passwords    hasher
	urlsRemover  urlsRemover
	shortURLBase string
}

func New(
	db storage,
	passwords hasher,
	urlsRemover urlsRemover,
	shortURLBase string,
) *Service {
	return &Service{
		db:           db,
		passwords:    passwords,
		urlsRemover:  urlsRemover,
		shortURLBase: shortURLBase,
	}
}

// RegisterUser creates an account for the given email/password pair.
// The password is hashed before anything is stored; the directory itself
// never sees the plaintext. Field validation happens up front so an empty
// password is rejected before the costly hashing step.
func (s *Service) RegisterUser(ctx context.Context, email, password string) (*user.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, models.ErrEmptyField
	}

	passwordHash, err := s.passwords.Hash(ctx, password)
	if err != nil {
		return nil, err
	}

	return s.db.CreateUser(ctx, email, passwordHash)
}

// Authenticate resolves an email/password pair to the matching account or
// fails with ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*user.User, error) {
	usr, found, err := s.db.FindUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrInvalidCredentials
	}

	if err := s.passwords.Compare(ctx, usr.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}

	return usr, nil
}

// ShortenURL extracts the first URL substring from the request text,
// shortens it on behalf of the given user and returns the absolute short URL.
func (s *Service) ShortenURL(ctx context.Context, urlToShort, userID string) (string, error) {
	urlToShort, err := s.ExtractFirstURL(urlToShort)
	if err != nil {
		return "", err
	}

	short, err := s.db.CreateLink(ctx, urlToShort, userID)
	if err != nil {
		return "", err
	}

	return s.GetShortURL(short), nil
}

func (s *Service) GetOriginalURL(ctx context.Context, short string) (string, bool, error) {
	link, found, err := s.db.FindLinkByShort(ctx, short)
	if err != nil || !found {
		return "", false, err
	}

	return link.DestinationURL, true, nil
}

// RecordVisit registers a redirect dispatch against a link and returns the
// destination to redirect to. The timestamp is formatted here - the
// recorder stores it verbatim.
func (s *Service) RecordVisit(ctx context.Context, short, visitorID string) (string, error) {
	visitedAt := time.Now().UTC().Format(time.RFC3339)

	return s.db.RecordVisit(ctx, short, visitorID, visitedAt)
}

// GetUserURLs lists the caller's links with absolute short URLs, ordered by
// short code for stable output.
func (s *Service) GetUserURLs(ctx context.Context, userID string) (models.UserUrls, error) {
	links, err := s.db.GetUserLinks(ctx, userID)
	if err != nil {
		return nil, err
	}

	shorts := funk.Keys(links).([]string)
	sort.Strings(shorts)

	result := make(models.UserUrls, 0, len(shorts))
	for _, short := range shorts {
		result = append(result, models.UserURL{
			ShortURL:    s.GetShortURL(short),
			OriginalURL: links[short].DestinationURL,
		})
	}

	return result, nil
}

func (s *Service) UpdateURL(ctx context.Context, short, newURL, requesterID string) error {
	return s.db.UpdateLinkDestination(ctx, short, newURL, requesterID)
}

func (s *Service) DeleteURL(ctx context.Context, short, requesterID string) error {
	return s.db.DeleteLink(ctx, short, requesterID)
}

// DeleteURLsAsync enqueues a bulk deletion job for background processing.
func (s *Service) DeleteURLsAsync(ctx context.Context, userID string, shorts models.DeleteURLsRequest) {
	s.urlsRemover.EnqueueJob(&models.URLDeleteJob{
		UserID:       userID,
		URLsToDelete: funk.UniqString(shorts),
	})
}

// GetLinkStats returns the visit analytics of a link. Only the owner may
// read them, mirroring the ownership rule for updates and deletes.
func (s *Service) GetLinkStats(ctx context.Context, short, requesterID string) (models.LinkStatsResponse, error) {
	link, found, err := s.db.FindLinkByShort(ctx, short)
	if err != nil {
		return models.LinkStatsResponse{}, err
	}
	if !found {
		return models.LinkStatsResponse{}, models.ErrLinkNotFound
	}
	if link.OwnerUserID != requesterID {
		return models.LinkStatsResponse{}, models.ErrNotLinkOwner
	}

	return models.LinkStatsResponse{
		ShortURL:       s.GetShortURL(short),
		OriginalURL:    link.DestinationURL,
		VisitCount:     link.VisitCount,
		UniqueVisitors: len(link.UniqueVisitors),
		Visits:         link.VisitLog,
	}, nil
}

// GetInternalStats returns totals such as shortened URLs and user count.
func (s *Service) GetInternalStats(ctx context.Context) (models.InternalStatsResponse, error) {
	urls, err := s.db.GetNumberOfLinks(ctx)
	if err != nil {
		return models.InternalStatsResponse{}, err
	}

	users, err := s.db.GetNumberOfUsers(ctx)
	if err != nil {
		return models.InternalStatsResponse{}, err
	}

	return models.InternalStatsResponse{
		URLs:  urls,
		Users: users,
	}, nil
}

// Ping checks the health of the storage layer.
func (s *Service) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *Service) GetShortURL(shortKey string) string {
	return s.shortURLBase + "/" + shortKey
}

func (s *Service) GetShortURLKey(shortURL string) string {
	if shortURL == "" || s.shortURLBase == "" {
		return ""
	}
	base := strings.TrimRight(s.shortURLBase, "/")
	key := strings.TrimPrefix(shortURL, base)
	return strings.TrimPrefix(key, "/")
}

// ExtractFirstURL finds the first http(s) URL substring in the given text.
func (s *Service) ExtractFirstURL(urlToShort string) (string, error) {
	match := urlPattern.FindString(urlToShort)
	if match == "" {
		return "", ErrInvalidURLInRequest
	}

	if !isValidURL(match) {
		return "", ErrInvalidURLInRequest
	}

	return match, nil
}

func isValidURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil &&
		(u.Scheme == "http" || u.Scheme == "https") &&
		u.Host != ""
}
