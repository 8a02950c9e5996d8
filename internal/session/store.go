// Package session builds the gin-contrib session store.
package session

import (
	"crypto/sha256"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/yukikurage/task-tracker/internal/config"
	"github.com/yukikurage/task-tracker/internal/constants"
	"golang.org/x/crypto/hkdf"
)

// Redis pool size
const redisPoolSize = 10

// NewStore returns the store selected by cfg.SessionStore. Cookie sessions
// are signed and encrypted with keys derived from the session secret.
func NewStore(cfg *config.Config) (sessions.Store, error) {
	authKey, encKey, err := deriveKeys(cfg.SessionSecret)
	if err != nil {
		return nil, err
	}

	var store sessions.Store
	switch cfg.SessionStore {
	case "cookie":
		store = cookie.NewStore(authKey, encKey)
	case "redis":
		store, err = redisStore.NewStore(
			redisPoolSize,
			"tcp",
			cfg.RedisAddr(),
			cfg.RedisPassword, // password (empty = no password)
			authKey,
			encKey,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create Redis store: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown session store %q", cfg.SessionStore)
	}

	store.Options(Options(cfg.IsProduction()))
	return store, nil
}

// Options returns the cookie options. Secure cookies are only set in
// production where the app is served over HTTPS.
func Options(production bool) sessions.Options {
	return sessions.Options{
		Path:     "/",
		MaxAge:   constants.SessionMaxAge,
		HttpOnly: true,
		Secure:   production,
		SameSite: http.SameSiteLaxMode,
	}
}

// deriveKeys expands the secret into a 64 byte signing key and a 32 byte
// AES key.
func deriveKeys(secret string) (authKey, encKey []byte, err error) {
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte(constants.SessionCookieName))

	authKey = make([]byte, 64)
	encKey = make([]byte, 32)
	if _, err := io.ReadFull(r, authKey); err != nil {
		return nil, nil, fmt.Errorf("failed to derive session keys: %w", err)
	}
	if _, err := io.ReadFull(r, encKey); err != nil {
		return nil, nil, fmt.Errorf("failed to derive session keys: %w", err)
	}
	return authKey, encKey, nil
}
