package credentials

import "fmt"

// MultiHasher hashes with a preferred scheme and verifies digests of any
// scheme it knows, so accounts migrate to the preferred scheme on login.
type MultiHasher struct {
	preferred scheme
	legacy    []scheme
}

// NewMultiHasher returns a MultiHasher. Nil legacy entries are skipped.
func NewMultiHasher(preferred scheme, legacy ...scheme) *MultiHasher {
	m := &MultiHasher{preferred: preferred}
	for _, l := range legacy {
		if l != nil {
			m.legacy = append(m.legacy, l)
		}
	}
	return m
}

func (m *MultiHasher) Hash(plain string) (string, error) {
	return m.preferred.Hash(plain)
}

func (m *MultiHasher) Verify(stored, plain string) (bool, error) {
	if s := m.schemeFor(stored); s != nil {
		return s.Verify(stored, plain)
	}
	return false, ErrUnknownScheme
}

// NeedsRehash is true for legacy digests and for preferred-scheme digests
// with outdated parameters.
func (m *MultiHasher) NeedsRehash(stored string) bool {
	if m.preferred.Recognizes(stored) {
		return m.preferred.NeedsRehash(stored)
	}
	return true
}

func (m *MultiHasher) schemeFor(stored string) scheme {
	if m.preferred.Recognizes(stored) {
		return m.preferred
	}
	for _, l := range m.legacy {
		if l.Recognizes(stored) {
			return l
		}
	}
	return nil
}

// New builds the Hasher for a configured scheme name. The HMAC scheme is
// always available for verification when hmacKey is set.
func New(preferred string, hmacKey string) (*MultiHasher, error) {
	argon := NewArgon2Hasher(DefaultArgon2Params)

	var legacy *HMACHasher
	if hmacKey != "" {
		legacy = NewHMACHasher(hmacKey)
	}

	switch preferred {
	case "argon2id", "":
		if legacy == nil {
			return NewMultiHasher(argon), nil
		}
		return NewMultiHasher(argon, legacy), nil
	case "hmac-sha256":
		if legacy == nil {
			return nil, fmt.Errorf("password hasher %s requires a key", preferred)
		}
		return NewMultiHasher(legacy, argon), nil
	default:
		return nil, fmt.Errorf("unknown password hasher %q", preferred)
	}
}
