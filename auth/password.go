package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	passwordScheme     = "pbkdf2_sha256"
	passwordIterations = 210000
	passwordSaltBytes  = 16
	passwordKeyBytes   = 32
)

var ErrInvalidPasswordHash = errors.New("invalid password hash")

var b64 = base64.URLEncoding.WithPadding(base64.NoPadding)

// HashPassword returns "pbkdf2_sha256$<iters>$<salt>$<hash>" with URL-safe unpadded base64.
func HashPassword(password string) (string, error) {
	salt := make([]byte, passwordSaltBytes)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	key := pbkdf2.Key([]byte(password), salt, passwordIterations, passwordKeyBytes, sha256.New)
	return fmt.Sprintf("%s$%d$%s$%s", passwordScheme, passwordIterations, b64.EncodeToString(salt), b64.EncodeToString(key)), nil
}

// VerifyPassword checks password against a stored hash. Unknown formats never match.
func VerifyPassword(password, stored string) bool {
	ok, err := verifyPassword(password, stored)
	return err == nil && ok
}

func verifyPassword(password, stored string) (bool, error) {
	parts := strings.Split(stored, "$")
	if len(parts) != 4 || parts[0] != passwordScheme {
		return false, ErrInvalidPasswordHash
	}
	iters, err := strconv.Atoi(parts[1])
	if err != nil || iters <= 0 {
		return false, ErrInvalidPasswordHash
	}
	salt, err := b64.DecodeString(parts[2])
	if err != nil {
		return false, ErrInvalidPasswordHash
	}
	want, err := b64.DecodeString(parts[3])
	if err != nil || len(want) == 0 {
		return false, ErrInvalidPasswordHash
	}
	got := pbkdf2.Key([]byte(password), salt, iters, len(want), sha256.New)
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

// SecretsEqual compares two secrets in constant time.
func SecretsEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
