// Package mockstore provides a testify-based mock of the storage interface
// consumed by the service layer. Tests use it to simulate storage failures
// that the in-memory backend never produces.
package mockstore

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/patric-chuzhbe/tinylink/internal/models"
	"github.com/patric-chuzhbe/tinylink/internal/user"
)

// StorageMock implements the user directory, link store, visit recorder and
// stats interfaces against testify expectations.
type StorageMock struct {
	mock.Mock
}

func (m *StorageMock) CreateUser(ctx context.Context, email, passwordHash string) (*user.User, error) {
	args := m.Called(ctx, email, passwordHash)
	usr, _ := args.Get(0).(*user.User)
	return usr, args.Error(1)
}

func (m *StorageMock) FindUserByEmail(ctx context.Context, email string) (*user.User, bool, error) {
	args := m.Called(ctx, email)
	usr, _ := args.Get(0).(*user.User)
	return usr, args.Bool(1), args.Error(2)
}

func (m *StorageMock) FindUserByID(ctx context.Context, userID string) (*user.User, bool, error) {
	args := m.Called(ctx, userID)
	usr, _ := args.Get(0).(*user.User)
	return usr, args.Bool(1), args.Error(2)
}

func (m *StorageMock) CreateLink(ctx context.Context, destinationURL, ownerID string) (string, error) {
	args := m.Called(ctx, destinationURL, ownerID)
	return args.String(0), args.Error(1)
}

func (m *StorageMock) FindLinkByShort(ctx context.Context, short string) (models.Link, bool, error) {
	args := m.Called(ctx, short)
	link, _ := args.Get(0).(models.Link)
	return link, args.Bool(1), args.Error(2)
}

func (m *StorageMock) UpdateLinkDestination(ctx context.Context, short, newURL, requesterID string) error {
	args := m.Called(ctx, short, newURL, requesterID)
	return args.Error(0)
}

func (m *StorageMock) DeleteLink(ctx context.Context, short, requesterID string) error {
	args := m.Called(ctx, short, requesterID)
	return args.Error(0)
}

func (m *StorageMock) RemoveUserLinks(ctx context.Context, usersLinks map[string][]string) error {
	args := m.Called(ctx, usersLinks)
	return args.Error(0)
}

func (m *StorageMock) GetUserLinks(ctx context.Context, userID string) (map[string]models.Link, error) {
	args := m.Called(ctx, userID)
	links, _ := args.Get(0).(map[string]models.Link)
	return links, args.Error(1)
}

func (m *StorageMock) RecordVisit(ctx context.Context, short, visitorID, visitedAt string) (string, error) {
	args := m.Called(ctx, short, visitorID, visitedAt)
	return args.String(0), args.Error(1)
}

func (m *StorageMock) GetNumberOfLinks(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *StorageMock) GetNumberOfUsers(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *StorageMock) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *StorageMock) Close() error {
	args := m.Called()
	return args.Error(0)
}
