// Package credentials turns plaintext passwords into stored digests and
// checks candidates against them.
package credentials

import "errors"

// ErrUnknownScheme is returned by Verify for digests no hasher recognizes.
var ErrUnknownScheme = errors.New("unknown password hash scheme")

// Hasher produces and checks password digests.
//
// Verify returns (false, nil) for a well-formed digest that does not match;
// errors are reserved for malformed or unrecognized digests.
type Hasher interface {
	Hash(plain string) (string, error)
	Verify(stored, plain string) (bool, error)
	NeedsRehash(stored string) bool
}

// scheme is a Hasher that can tell whether a digest is its own.
type scheme interface {
	Hasher
	Recognizes(stored string) bool
}
