package config

import (
	"crypto/rand"
	"encoding/base64"
)

// KeyGenerator produces API keys for services that require one.
type KeyGenerator func() string

// RandomKeyGenerator returns URL-safe keys with 32 bytes of entropy.
func RandomKeyGenerator() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms
		panic("config: read random bytes: " + err.Error())
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}
