package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
)

// SessionOptions configures the UI session, which carries flash messages
// between a form post and the page it redirects to.
type SessionOptions struct {
	Secret string
	Secure bool // mark the cookie Secure (behind TLS)

	// RedisAddr keeps session data server-side in Redis instead of in the
	// cookie itself.
	RedisAddr string
	RedisDB   int
}

// Session attaches a "sid" session to every request.
func Session(opts SessionOptions) (gin.HandlerFunc, error) {
	if len(opts.Secret) < 32 {
		return nil, fmt.Errorf("session secret must be at least 32 bytes")
	}

	var store sessions.Store
	if opts.RedisAddr != "" {
		rs, err := redis.NewStoreWithDB(10, "tcp", opts.RedisAddr, "", "", fmt.Sprint(opts.RedisDB), []byte(opts.Secret))
		if err != nil {
			return nil, fmt.Errorf("new redis store: %w", err)
		}
		store = rs
	} else {
		store = cookie.NewStore([]byte(opts.Secret))
	}

	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   4 * 3600,
		Secure:   opts.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sessions.Sessions("sid", store), nil
}
