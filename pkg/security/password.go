package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/supplyhub/marketplace-backend/pkg/config"
)

var (
	ErrInvalidHash   = errors.New("invalid argon2id hash")
	ErrEmptyPassword = errors.New("password cannot be empty")
)

// Params are the Argon2id cost settings encoded into every PHC hash string.
type Params struct {
	MemoryKB uint32
	Passes   uint32
	Threads  uint8
	SaltLen  uint32
	KeyLen   uint32
}

// Hasher produces and checks "$argon2id$v=19$m=..,t=..,p=..$salt$key" strings.
type Hasher struct {
	params Params
}

// NewHasher clamps cfg into sane Argon2id bounds.
func NewHasher(cfg config.PasswordConfig) Hasher {
	return Hasher{params: Params{
		MemoryKB: uint32(clamp(cfg.ArgonMemoryKB, 8, 512*1024)),
		Passes:   uint32(clamp(cfg.ArgonTime, 1, 10)),
		Threads:  uint8(clamp(cfg.ArgonParallelism, 1, 255)),
		SaltLen:  uint32(clamp(cfg.ArgonSaltLen, 8, 64)),
		KeyLen:   uint32(clamp(cfg.ArgonKeyLen, 16, 64)),
	}}
}

func (h Hasher) Params() Params { return h.params }

func (h Hasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	salt := make([]byte, h.params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	p := h.params
	key := argon2.IDKey([]byte(password), salt, p.Passes, p.MemoryKB, p.Threads, p.KeyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.MemoryKB, p.Passes, p.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether password matches encoded. stale is true when the
// match succeeded but the hash was produced with different cost settings and
// should be replaced.
func (h Hasher) Verify(password, encoded string) (ok, stale bool, err error) {
	stored, salt, key, err := parseHash(encoded)
	if err != nil {
		return false, false, err
	}
	computed := argon2.IDKey([]byte(password), salt, stored.Passes, stored.MemoryKB, stored.Threads, stored.KeyLen)
	if subtle.ConstantTimeCompare(key, computed) != 1 {
		return false, false, nil
	}
	return true, stored != h.params, nil
}

func parseHash(encoded string) (Params, []byte, []byte, error) {
	// "", "argon2id", "v=19", "m=..,t=..,p=..", salt, key
	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[0] != "" || fields[1] != "argon2id" {
		return Params{}, nil, nil, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(fields[2], "v=%d", &version); err != nil || version != argon2.Version {
		return Params{}, nil, nil, ErrInvalidHash
	}
	var p Params
	if _, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d", &p.MemoryKB, &p.Passes, &p.Threads); err != nil {
		return Params{}, nil, nil, ErrInvalidHash
	}
	if p.MemoryKB == 0 || p.Passes == 0 || p.Threads == 0 {
		return Params{}, nil, nil, ErrInvalidHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(fields[4])
	if err != nil || len(salt) == 0 {
		return Params{}, nil, nil, ErrInvalidHash
	}
	key, err := base64.RawStdEncoding.DecodeString(fields[5])
	if err != nil || len(key) == 0 {
		return Params{}, nil, nil, ErrInvalidHash
	}
	p.SaltLen = uint32(len(salt))
	p.KeyLen = uint32(len(key))
	return p, salt, key, nil
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
