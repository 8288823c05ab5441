package httpserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/coursesell/internal/common"
	"github.com/dmitrijs2005/coursesell/internal/server/config"
)

type cookieConfig struct {
	name     string
	secure   bool
	sameSite http.SameSite
}

func newCookieConfig(c *config.Config) cookieConfig {
	cc := cookieConfig{name: c.CookieName, secure: c.CookieSecure, sameSite: parseSameSite(c.CookieSameSite)}
	if cc.name == "" {
		cc.name = common.SessionCookieName
	}
	// browsers drop SameSite=None cookies that are not Secure
	if cc.sameSite == http.SameSiteNoneMode {
		cc.secure = true
	}
	return cc
}

func parseSameSite(v string) http.SameSite {
	switch strings.ToLower(v) {
	case "lax":
		return http.SameSiteLaxMode
	case "strict":
		return http.SameSiteStrictMode
	default:
		return http.SameSiteNoneMode
	}
}

func (cc cookieConfig) set(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     cc.name,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   cc.secure,
		SameSite: cc.sameSite,
	})
}

func (cc cookieConfig) clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     cc.name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cc.secure,
		SameSite: cc.sameSite,
	})
}
