// Package hostcode generates the short join codes printed on club invitations.
package hostcode

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"
)

// Alphabet omits I, O, 0 and 1 so codes survive being read aloud.
const Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Length of every generated code.
const Length = 8

// MaxAttempts bounds regeneration after a uniqueness collision.
const MaxAttempts = 5

// ErrExhausted is returned when every attempt collided.
var ErrExhausted = errors.New("could not allocate a unique host code")

var codePattern = regexp.MustCompile(`^[A-Z0-9]{8}$`)

// Generate returns a random code drawn from Alphabet.
func Generate() (string, error) {
	var b strings.Builder
	b.Grow(Length)
	max := big.NewInt(int64(len(Alphabet)))
	for i := 0; i < Length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("read random: %w", err)
		}
		b.WriteByte(Alphabet[n.Int64()])
	}
	return b.String(), nil
}

// Normalize trims and upper-cases user input.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Valid reports whether code has the shape of a host code.
func Valid(code string) bool {
	return codePattern.MatchString(code)
}

// Allocate calls insert with fresh codes until it succeeds, retrying while
// isCollision reports the error as a code clash.
func Allocate(insert func(code string) error, isCollision func(error) bool) (string, error) {
	for attempt := 0; attempt < MaxAttempts; attempt++ {
		code, err := Generate()
		if err != nil {
			return "", err
		}
		err = insert(code)
		if err == nil {
			return code, nil
		}
		if !isCollision(err) {
			return "", err
		}
	}
	return "", ErrExhausted
}
