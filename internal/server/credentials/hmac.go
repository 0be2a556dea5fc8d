package credentials

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"regexp"
)

var hexDigestRe = regexp.MustCompile(`^[0-9a-f]{64}$`)

// HMACHasher is the legacy unsalted scheme: lower-case hex of
// HMAC-SHA256 keyed with an application secret over the password.
// Hash is deterministic, so equal passwords give equal digests.
type HMACHasher struct {
	key []byte
}

func NewHMACHasher(key string) *HMACHasher {
	return &HMACHasher{key: []byte(key)}
}

func (h *HMACHasher) Hash(plain string) (string, error) {
	return hex.EncodeToString(h.sum(plain)), nil
}

func (h *HMACHasher) Verify(stored, plain string) (bool, error) {
	want, err := hex.DecodeString(stored)
	if err != nil || !h.Recognizes(stored) {
		return false, ErrUnknownScheme
	}
	return hmac.Equal(h.sum(plain), want), nil
}

func (h *HMACHasher) NeedsRehash(stored string) bool {
	return !h.Recognizes(stored)
}

func (h *HMACHasher) Recognizes(stored string) bool {
	return hexDigestRe.MatchString(stored)
}

func (h *HMACHasher) sum(plain string) []byte {
	mac := hmac.New(sha256.New, h.key)
	mac.Write([]byte(plain))
	return mac.Sum(nil)
}
