package internal

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"
)

const (
	resetEntropySize  = 40
	rememberTokenSize = 24
	appKeyPrefix      = "base64:"
)

// NewResetToken derives the plaintext reset token: hex-encoded HMAC-SHA256
// over 40 fresh random bytes, keyed by the application key. The result is
// what gets mailed to the user; it is never persisted.
func NewResetToken(key []byte) (string, error) {
	if len(key) == 0 {
		return "", errors.New("empty application key")
	}

	var entropy [resetEntropySize]byte
	if _, err := rand.Read(entropy[:]); err != nil {
		return "", err
	}

	mac := hmac.New(sha256.New, key)
	mac.Write(entropy[:])
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// NewRememberToken generates the opaque session-invalidation nonce rotated on
// every successful password reset.
func NewRememberToken() (string, error) {
	var raw [rememberTokenSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// DecodeAppKey applies the configured-key encoding rule: keys starting with
// "base64:" carry a base64 payload, everything else is used verbatim.
func DecodeAppKey(key string) ([]byte, error) {
	if key == "" {
		return nil, errors.New("empty application key")
	}
	if strings.HasPrefix(key, appKeyPrefix) {
		decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(key, appKeyPrefix))
		if err != nil {
			return nil, errors.New("invalid base64 application key")
		}
		if len(decoded) == 0 {
			return nil, errors.New("empty application key")
		}
		return decoded, nil
	}
	return []byte(key), nil
}
