// Package user defines the user model used throughout the application,
// particularly for authentication and user-owned link storage.
package user

// User represents a registered account.
//
// ID is assigned once by the user directory and never changes. Email is
// unique across all accounts (exact, case-sensitive comparison).
// PasswordHash holds whatever credential the caller stored - the directory
// never inspects or compares it.
type User struct {
	ID           string
	Email        string
	PasswordHash string
}
