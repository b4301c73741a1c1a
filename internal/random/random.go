// Package random generates the short alphanumeric keys used as short codes
// and user identifiers.
package random

import (
	"crypto/rand"
	"math/big"
	"strings"
)

const symbols = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// KeyLength is the fixed length of every generated key. Changing it would
// break URL compatibility with already issued short links.
const KeyLength = 6

// String returns a random string of the given length, each character drawn
// independently and uniformly from the 62-character alphanumeric alphabet.
func String(length int) string {
	var result strings.Builder
	result.Grow(length)

	for i := 0; i < length; i++ {
		randomIndex, _ := rand.Int(rand.Reader, big.NewInt(int64(len(symbols))))
		result.WriteByte(symbols[randomIndex.Int64()])
	}

	return result.String()
}

// Key returns a new KeyLength-sized key. Uniqueness against previously
// issued keys is not guaranteed - callers accept the collision risk.
func Key() string {
	return String(KeyLength)
}
