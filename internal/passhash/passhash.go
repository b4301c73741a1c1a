// Package passhash wraps bcrypt behind a small result-or-error interface so
// the rest of the application never assumes how (or how fast) credential
// hashing completes.
package passhash

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrMismatch is returned by Compare when the password does not match the
// stored hash.
var ErrMismatch = errors.New("password does not match")

// Hasher produces and verifies bcrypt password hashes with a fixed cost.
type Hasher struct {
	cost int
}

func New(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}

	return &Hasher{cost: cost}
}

// Hash derives a one-way hash of the password. The context is honored
// before the (potentially slow) derivation starts.
func (h *Hasher) Hash(ctx context.Context, password string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("error hashing the password: %w", err)
	}

	return string(hash), nil
}

// Compare checks the password against a stored hash.
func (h *Hasher) Compare(ctx context.Context, hash, password string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrMismatch
	}

	return err
}
