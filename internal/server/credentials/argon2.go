package credentials

import (
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"golang.org/x/crypto/argon2"
)

const argon2Prefix = "$argon2id$"

// Argon2Params are the argon2id cost settings. Memory is in KiB.
type Argon2Params struct {
	Time    uint32
	Memory  uint32
	Threads uint8
	SaltLen int
	KeyLen  uint32
}

// DefaultArgon2Params are the cost settings used when none are configured.
var DefaultArgon2Params = Argon2Params{Time: 1, Memory: 64 * 1024, Threads: 4, SaltLen: 16, KeyLen: 32}

// Argon2Hasher salts every password and encodes digests as
//
//	$argon2id$v=19$m=65536,t=1,p=4$<salt>$<key>
//
// with unpadded standard base64 salt and key.
type Argon2Hasher struct {
	params Argon2Params
}

func NewArgon2Hasher(params Argon2Params) *Argon2Hasher {
	return &Argon2Hasher{params: params}
}

func (h *Argon2Hasher) Hash(plain string) (string, error) {
	salt := common.GenerateRandByteArray(h.params.SaltLen)
	key := argon2.IDKey([]byte(plain), salt, h.params.Time, h.params.Memory, h.params.Threads, h.params.KeyLen)

	b64 := base64.RawStdEncoding
	return fmt.Sprintf("%sv=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2Prefix, argon2.Version, h.params.Memory, h.params.Time, h.params.Threads,
		b64.EncodeToString(salt), b64.EncodeToString(key)), nil
}

func (h *Argon2Hasher) Verify(stored, plain string) (bool, error) {
	p, salt, key, err := decodeArgon2(stored)
	if err != nil {
		return false, err
	}
	candidate := argon2.IDKey([]byte(plain), salt, p.Time, p.Memory, p.Threads, uint32(len(key)))
	return subtle.ConstantTimeCompare(candidate, key) == 1, nil
}

// NeedsRehash reports digests from another scheme or with different costs.
func (h *Argon2Hasher) NeedsRehash(stored string) bool {
	p, _, key, err := decodeArgon2(stored)
	if err != nil {
		return true
	}
	return p.Time != h.params.Time || p.Memory != h.params.Memory ||
		p.Threads != h.params.Threads || uint32(len(key)) != h.params.KeyLen
}

func (h *Argon2Hasher) Recognizes(stored string) bool {
	return strings.HasPrefix(stored, argon2Prefix)
}

func decodeArgon2(stored string) (Argon2Params, []byte, []byte, error) {
	var p Argon2Params

	// "", "argon2id", "v=19", "m=..,t=..,p=..", salt, key
	parts := strings.Split(stored, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return p, nil, nil, ErrUnknownScheme
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return p, nil, nil, fmt.Errorf("argon2 version: %w", err)
	}
	if version != argon2.Version {
		return p, nil, nil, fmt.Errorf("argon2 version %d not supported", version)
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Time, &p.Threads); err != nil {
		return p, nil, nil, fmt.Errorf("argon2 params: %w", err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return p, nil, nil, fmt.Errorf("argon2 salt: %w", err)
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return p, nil, nil, fmt.Errorf("argon2 key: %w", err)
	}
	if len(key) == 0 {
		return p, nil, nil, fmt.Errorf("argon2 key: empty")
	}

	p.SaltLen = len(salt)
	p.KeyLen = uint32(len(key))
	return p, salt, key, nil
}
