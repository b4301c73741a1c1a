package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/patric-chuzhbe/tinylink/internal/db/memstore"
	"github.com/patric-chuzhbe/tinylink/internal/models"
	"github.com/patric-chuzhbe/tinylink/internal/passhash"
)

const testShortURLBase = "http://localhost:8080"

type recordingRemover struct {
	jobs []*models.URLDeleteJob
}

func (r *recordingRemover) EnqueueJob(job *models.URLDeleteJob) {
	r.jobs = append(r.jobs, job)
}

func newTestService(t *testing.T) (*Service, *memstore.Storage, *recordingRemover) {
	t.Helper()

	theStorage := memstore.New()
	remover := &recordingRemover{}
	theService := New(theStorage, passhash.New(bcrypt.MinCost), remover, testShortURLBase)

	return theService, theStorage, remover
}

func TestRegisterUserAndAuthenticate(t *testing.T) {
	theService, theStorage, _ := newTestService(t)

	usr, err := theService.RegisterUser(context.Background(), "  user@example.com  ", "purple-monkey-dinosaur")
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", usr.Email, "the email should be trimmed before storing")

	stored, found, err := theStorage.FindUserByEmail(context.Background(), "user@example.com")
	require.NoError(t, err)
	require.True(t, found)
	assert.NotEqual(t, "purple-monkey-dinosaur", stored.PasswordHash, "the plaintext password should never be stored")

	authenticated, err := theService.Authenticate(context.Background(), "user@example.com", "purple-monkey-dinosaur")
	require.NoError(t, err)
	assert.Equal(t, usr.ID, authenticated.ID)

	_, err = theService.Authenticate(context.Background(), "user@example.com", "dishwasher-funk")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = theService.Authenticate(context.Background(), "unknown@example.com", "purple-monkey-dinosaur")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegisterUserValidation(t *testing.T) {
	theService, _, _ := newTestService(t)

	_, err := theService.RegisterUser(context.Background(), "", "pw")
	assert.ErrorIs(t, err, models.ErrEmptyField)

	_, err = theService.RegisterUser(context.Background(), "user@example.com", "")
	assert.ErrorIs(t, err, models.ErrEmptyField)

	_, err = theService.RegisterUser(context.Background(), "user@example.com", "pw")
	require.NoError(t, err)

	_, err = theService.RegisterUser(context.Background(), "user@example.com", "another-pw")
	assert.ErrorIs(t, err, models.ErrEmailTaken)
}

func TestShortenURLAndResolve(t *testing.T) {
	theService, _, _ := newTestService(t)

	shortURL, err := theService.ShortenURL(context.Background(), "https://ru.wikipedia.org/wiki/Go", "owner")
	require.NoError(t, err)

	short := theService.GetShortURLKey(shortURL)
	require.Len(t, short, 6)

	original, found, err := theService.GetOriginalURL(context.Background(), short)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "https://ru.wikipedia.org/wiki/Go", original)

	_, found, err = theService.GetOriginalURL(context.Background(), "NONEXISTENT")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestShortenURLRejectsTextWithoutURL(t *testing.T) {
	theService, _, _ := newTestService(t)

	_, err := theService.ShortenURL(context.Background(), "h t t p s://ru.wikipedia.org/wiki/Go", "owner")
	assert.ErrorIs(t, err, ErrInvalidURLInRequest)
}

func TestGetUserURLs(t *testing.T) {
	theService, theStorage, _ := newTestService(t)

	first, err := theStorage.CreateLink(context.Background(), "http://example.com/1", "owner")
	require.NoError(t, err)
	second, err := theStorage.CreateLink(context.Background(), "http://example.com/2", "owner")
	require.NoError(t, err)
	_, err = theStorage.CreateLink(context.Background(), "http://example.com/3", "somebody else")
	require.NoError(t, err)

	urls, err := theService.GetUserURLs(context.Background(), "owner")
	require.NoError(t, err)
	require.Len(t, urls, 2)

	expectedShorts := map[string]string{
		first:  "http://example.com/1",
		second: "http://example.com/2",
	}
	for _, userURL := range urls {
		short := theService.GetShortURLKey(userURL.ShortURL)
		assert.Equal(t, expectedShorts[short], userURL.OriginalURL)
	}

	urls, err = theService.GetUserURLs(context.Background(), "user without links")
	require.NoError(t, err)
	assert.Empty(t, urls)
}

func TestRecordVisitFormatsTimestamp(t *testing.T) {
	theService, theStorage, _ := newTestService(t)

	short, err := theStorage.CreateLink(context.Background(), "http://example.com", "owner")
	require.NoError(t, err)

	destination, err := theService.RecordVisit(context.Background(), short, "v1")
	require.NoError(t, err)
	assert.Equal(t, "http://example.com", destination)

	link, found, err := theStorage.FindLinkByShort(context.Background(), short)
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, link.VisitLog, 1)
	assert.NotEmpty(t, link.VisitLog[0].VisitedAt)
	assert.Equal(t, "v1", link.VisitLog[0].VisitorID)

	_, err = theService.RecordVisit(context.Background(), "NONEXISTENT", "v1")
	assert.ErrorIs(t, err, models.ErrLinkNotFound)
}

func TestGetLinkStats(t *testing.T) {
	theService, theStorage, _ := newTestService(t)

	short, err := theStorage.CreateLink(context.Background(), "http://example.com", "owner")
	require.NoError(t, err)

	_, err = theService.RecordVisit(context.Background(), short, "v1")
	require.NoError(t, err)
	_, err = theService.RecordVisit(context.Background(), short, "v1")
	require.NoError(t, err)

	stats, err := theService.GetLinkStats(context.Background(), short, "owner")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.VisitCount)
	assert.Equal(t, 1, stats.UniqueVisitors)
	assert.Len(t, stats.Visits, 2)
	assert.Equal(t, "http://example.com", stats.OriginalURL)

	_, err = theService.GetLinkStats(context.Background(), short, "somebody else")
	assert.ErrorIs(t, err, models.ErrNotLinkOwner)

	_, err = theService.GetLinkStats(context.Background(), "NONEXISTENT", "owner")
	assert.ErrorIs(t, err, models.ErrLinkNotFound)
}

func TestDeleteURLsAsync(t *testing.T) {
	theService, _, remover := newTestService(t)

	theService.DeleteURLsAsync(
		context.Background(),
		"owner",
		models.DeleteURLsRequest{"abc123", "abc123", "def456"},
	)

	require.Len(t, remover.jobs, 1)
	assert.Equal(t, "owner", remover.jobs[0].UserID)
	assert.ElementsMatch(t, []string{"abc123", "def456"}, remover.jobs[0].URLsToDelete)
}

func TestGetInternalStats(t *testing.T) {
	theService, theStorage, _ := newTestService(t)

	_, err := theStorage.CreateUser(context.Background(), "user@example.com", "some hash")
	require.NoError(t, err)
	_, err = theStorage.CreateLink(context.Background(), "http://example.com", "owner")
	require.NoError(t, err)
	_, err = theStorage.CreateLink(context.Background(), "http://example.org", "owner")
	require.NoError(t, err)

	stats, err := theService.GetInternalStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.URLs)
	assert.Equal(t, int64(1), stats.Users)
}
