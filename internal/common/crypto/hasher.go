package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrPasswordMismatch    = errors.New("password does not match")
	ErrUnsupportedHash     = errors.New("unsupported password hash format")
	ErrInvalidHash         = errors.New("invalid password hash")
	ErrUnknownHasher       = errors.New("unknown password hasher")
	ErrInvalidArgon2Params = errors.New("invalid argon2 parameters")
)

const (
	HasherArgon2id = "argon2id"
	HasherBcrypt   = "bcrypt"

	argon2Prefix = "$argon2id$"
)

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash string, password string) error
}

type BcryptHasher struct {
	Cost int
}

func (h *BcryptHasher) Hash(password string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = 12
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (h *BcryptHasher) Compare(hash string, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}
	return err
}

type Argon2Config struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

var DefaultArgon2Config = Argon2Config{
	Memory:      64 * 1024,
	Time:        1,
	Parallelism: 2,
	SaltLength:  16,
	KeyLength:   32,
}

// Argon2Hasher produces PHC strings:
// $argon2id$v=19$m=<KiB>,t=<passes>,p=<lanes>$<salt>$<key>
type Argon2Hasher struct {
	config Argon2Config
}

func NewArgon2Hasher(cfg Argon2Config) (*Argon2Hasher, error) {
	if cfg.Memory < 8*1024 || cfg.Time < 1 || cfg.Parallelism < 1 || cfg.SaltLength < 16 || cfg.KeyLength < 16 {
		return nil, ErrInvalidArgon2Params
	}
	return &Argon2Hasher{config: cfg}, nil
}

func (h *Argon2Hasher) Hash(password string) (string, error) {
	salt := make([]byte, h.config.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	key := argon2.IDKey([]byte(password), salt, h.config.Time, h.config.Memory, h.config.Parallelism, h.config.KeyLength)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.config.Memory,
		h.config.Time,
		h.config.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

func (h *Argon2Hasher) Compare(hash string, password string) error {
	p, err := parseArgon2(hash)
	if err != nil {
		return err
	}

	computed := argon2.IDKey([]byte(password), p.salt, p.time, p.memory, p.parallelism, uint32(len(p.key)))
	if subtle.ConstantTimeCompare(computed, p.key) != 1 {
		return ErrPasswordMismatch
	}
	return nil
}

type argon2Params struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

func parseArgon2(encoded string) (argon2Params, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != HasherArgon2id {
		return argon2Params{}, ErrInvalidHash
	}

	if parts[2] != fmt.Sprintf("v=%d", argon2.Version) {
		return argon2Params{}, fmt.Errorf("%w: version %q", ErrInvalidHash, parts[2])
	}

	var p argon2Params
	for _, pair := range strings.Split(parts[3], ",") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			return argon2Params{}, ErrInvalidHash
		}
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil || n == 0 {
			return argon2Params{}, ErrInvalidHash
		}
		switch k {
		case "m":
			p.memory = uint32(n)
		case "t":
			p.time = uint32(n)
		case "p":
			if n > 255 {
				return argon2Params{}, ErrInvalidHash
			}
			p.parallelism = uint8(n)
		default:
			return argon2Params{}, ErrInvalidHash
		}
	}
	if p.memory == 0 || p.time == 0 || p.parallelism == 0 {
		return argon2Params{}, ErrInvalidHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return argon2Params{}, ErrInvalidHash
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return argon2Params{}, ErrInvalidHash
	}
	p.salt = salt
	p.key = key

	return p, nil
}

// AdaptiveHasher hashes new passwords with its primary algorithm and verifies
// whichever supported format a stored hash is in.
type AdaptiveHasher struct {
	primary PasswordHasher
	argon2  *Argon2Hasher
	bcrypt  *BcryptHasher
}

func NewPasswordHasher(name string) (*AdaptiveHasher, error) {
	argon, err := NewArgon2Hasher(DefaultArgon2Config)
	if err != nil {
		return nil, err
	}
	return newAdaptiveHasher(name, argon, &BcryptHasher{})
}

func newAdaptiveHasher(name string, argon *Argon2Hasher, bc *BcryptHasher) (*AdaptiveHasher, error) {
	h := &AdaptiveHasher{argon2: argon, bcrypt: bc}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", HasherArgon2id:
		h.primary = argon
	case HasherBcrypt:
		h.primary = bc
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownHasher, name)
	}
	return h, nil
}

func (h *AdaptiveHasher) Hash(password string) (string, error) {
	return h.primary.Hash(password)
}

func (h *AdaptiveHasher) Compare(hash string, password string) error {
	switch {
	case strings.HasPrefix(hash, argon2Prefix):
		return h.argon2.Compare(hash, password)
	case strings.HasPrefix(hash, "$2a$"), strings.HasPrefix(hash, "$2b$"), strings.HasPrefix(hash, "$2y$"):
		return h.bcrypt.Compare(hash, password)
	default:
		return ErrUnsupportedHash
	}
}
