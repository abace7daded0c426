// Package uniqid generates collision-free identifiers used for attachment
// filenames and storage keys.
package uniqid

import (
	"crypto/sha1"
	"encoding/hex"

	"github.com/google/uuid"
)

// Generator produces a new unique identifier on every call.
type Generator interface {
	Next() string
}

// Func adapts a plain function to the Generator interface.
type Func func() string

// Next calls f.
func (f Func) Next() string { return f() }

// UUID returns a generator of random (version 4) UUID strings.
func UUID() Generator {
	return Func(func() string { return uuid.New().String() })
}

// Hashed returns a generator of 40-char hex strings: the SHA-1 of a fresh UUID.
// Useful where the id ends up in a filename and dashes are unwanted.
func Hashed() Generator {
	return Func(func() string {
		id := uuid.New()
		sum := sha1.Sum(id[:])
		return hex.EncodeToString(sum[:])
	})
}

// Prefixed prepends prefix to every id produced by g.
func Prefixed(prefix string, g Generator) Generator {
	if g == nil {
		g = UUID()
	}
	return Func(func() string { return prefix + g.Next() })
}
