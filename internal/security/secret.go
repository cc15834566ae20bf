package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"strings"
	"unicode"
)

// MatchSecret reports whether submitted equals secret exactly. An empty
// secret never matches, so a missing configuration cannot unlock anything.
func MatchSecret(submitted, secret string) bool {
	if secret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(submitted), []byte(secret)) == 1
}

// ValidateSecret rejects secrets that cannot be typed into the gate reliably.
func ValidateSecret(secret string) error {
	if secret == "" {
		return errors.New("secret must not be empty")
	}
	if strings.TrimSpace(secret) != secret {
		return errors.New("secret must not start or end with whitespace")
	}
	for _, r := range secret {
		if unicode.IsControl(r) {
			return errors.New("secret must not contain control characters")
		}
	}
	return nil
}

func RandomToken(bytesLen int) (string, error) {
	buf := make([]byte, bytesLen)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
