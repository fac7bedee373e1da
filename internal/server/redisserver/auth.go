package redisserver

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	defaultUser  = "default"
	errWrongPass = "WRONGPASS invalid username-password pair or user is disabled."
)

// Argon2id parameters used to digest a plain-text requirepass.
const (
	argon2Memory      uint32 = 16384
	argon2Time        uint32 = 2
	argon2Parallelism uint8  = 2
	argon2KeyLen      uint32 = 32
	argon2SaltLen            = 16
)

var errBadPHC = errors.New("malformed argon2id hash")

// authenticator holds only the argon2id digest of the configured password.
type authenticator struct {
	salt        []byte
	digest      []byte
	memory      uint32
	time        uint32
	parallelism uint8
}

// newAuthenticator accepts either a plain password or an argon2id PHC
// string and keeps only a digest.
func newAuthenticator(requirepass string) (*authenticator, error) {
	if strings.HasPrefix(requirepass, "$argon2id$") {
		return parsePHC(requirepass)
	}

	salt := make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}

	a := &authenticator{
		salt:        salt,
		memory:      argon2Memory,
		time:        argon2Time,
		parallelism: argon2Parallelism,
	}
	a.digest = a.hash([]byte(requirepass), argon2KeyLen)
	return a, nil
}

// parsePHC parses $argon2id$v=19$m=16384,t=2,p=2$<salt>$<hash>.
func parsePHC(s string) (*authenticator, error) {
	parts := strings.Split(s, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return nil, errBadPHC
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return nil, fmt.Errorf("%w: unsupported version %q", errBadPHC, parts[2])
	}

	a := &authenticator{}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &a.memory, &a.time, &a.parallelism); err != nil {
		return nil, fmt.Errorf("%w: %v", errBadPHC, err)
	}
	if a.time == 0 || a.parallelism == 0 {
		return nil, fmt.Errorf("%w: zero cost parameter", errBadPHC)
	}

	var err error
	if a.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return nil, fmt.Errorf("%w: salt: %v", errBadPHC, err)
	}
	if a.digest, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil {
		return nil, fmt.Errorf("%w: hash: %v", errBadPHC, err)
	}
	if len(a.digest) == 0 {
		return nil, fmt.Errorf("%w: empty hash", errBadPHC)
	}
	return a, nil
}

// HashPassword returns the argon2id PHC string of password, suitable as a
// requirepass value.
func HashPassword(password string) (string, error) {
	a, err := newAuthenticator(password)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, a.memory, a.time, a.parallelism,
		base64.RawStdEncoding.EncodeToString(a.salt),
		base64.RawStdEncoding.EncodeToString(a.digest),
	), nil
}

func (a *authenticator) hash(password []byte, keyLen uint32) []byte {
	return argon2.IDKey(password, a.salt, a.time, a.memory, a.parallelism, keyLen)
}

// check compares password with the configured one in constant time.
func (a *authenticator) check(password []byte) bool {
	return subtle.ConstantTimeCompare(a.hash(password, uint32(len(a.digest))), a.digest) == 1
}
