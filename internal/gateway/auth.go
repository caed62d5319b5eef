package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"github.com/soyeahso/thecafe/internal/config"
)

// AuthResult is the outcome of an authentication attempt.
type AuthResult struct {
	OK     bool   `json:"ok"`
	Method string `json:"method,omitempty"` // "cookie" | "password"
	Reason string `json:"reason,omitempty"`
}

// Gate is the site-wide shared-password check. The cookie holds a token
// derived from the password, never the password itself.
type Gate struct {
	password   string
	token      string
	cookieName string
	maxAge     time.Duration
	secure     bool
}

// NewGate builds the gate from config. secure marks the cookie Secure,
// which is set when the gateway serves TLS.
func NewGate(cfg config.AuthConfig, secure bool) *Gate {
	name := cfg.CookieName
	if name == "" {
		name = config.DefaultCookieName
	}
	days := cfg.MaxAgeDays
	if days <= 0 {
		days = config.DefaultCookieMaxAge
	}
	g := &Gate{
		password:   cfg.Password,
		cookieName: name,
		maxAge:     time.Duration(days) * 24 * time.Hour,
		secure:     secure,
	}
	if cfg.Password != "" {
		g.token = sessionToken(cfg.Password)
	}
	return g
}

func sessionToken(password string) string {
	mac := hmac.New(sha256.New, []byte(password))
	mac.Write([]byte("thecafe session v1"))
	return hex.EncodeToString(mac.Sum(nil))
}

// Configured reports whether a password is set. Without one every check
// fails.
func (g *Gate) Configured() bool { return g.password != "" }

// CheckPassword compares a submitted password in constant time.
func (g *Gate) CheckPassword(password string) AuthResult {
	switch {
	case !g.Configured():
		return AuthResult{Reason: "server password not configured"}
	case password == "":
		return AuthResult{Reason: "password required"}
	case !safeEqual(password, g.password):
		return AuthResult{Reason: "password_mismatch"}
	}
	return AuthResult{OK: true, Method: "password"}
}

// CheckRequest validates the gate cookie on r.
func (g *Gate) CheckRequest(r *http.Request) AuthResult {
	if !g.Configured() {
		return AuthResult{Reason: "server password not configured"}
	}
	c, err := r.Cookie(g.cookieName)
	if err != nil || c.Value == "" {
		return AuthResult{Reason: "no cookie"}
	}
	if !safeEqual(c.Value, g.token) {
		return AuthResult{Reason: "cookie_mismatch"}
	}
	return AuthResult{OK: true, Method: "cookie"}
}

// Authorize accepts either a valid cookie on the upgrade request or the
// password in the connect params.
func (g *Gate) Authorize(r *http.Request, auth *ConnectAuth) AuthResult {
	if res := g.CheckRequest(r); res.OK {
		return res
	}
	if auth == nil {
		return AuthResult{Reason: "no credentials provided"}
	}
	return g.CheckPassword(auth.Password)
}

// SetCookie issues the gate cookie.
func (g *Gate) SetCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     g.cookieName,
		Value:    g.token,
		Path:     "/",
		MaxAge:   int(g.maxAge.Seconds()),
		HttpOnly: true,
		Secure:   g.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie expires the gate cookie.
func (g *Gate) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     g.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   g.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// publicPaths are reachable without the cookie.
var publicPaths = []string{"/login", "/api/auth/login", "/api/auth/logout", "/health", "/favicon.ico"}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return strings.HasPrefix(path, "/assets/")
}

// Middleware redirects requests without a valid cookie to the login page.
// The WebSocket endpoint is let through so the handshake can accept a
// password from non-browser clients.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPublicPath(r.URL.Path) || r.URL.Path == "/ws" || g.CheckRequest(r).OK {
			next.ServeHTTP(w, r)
			return
		}
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	})
}

// safeEqual performs a constant-time string comparison to prevent timing attacks.
// It avoids early-return on length mismatch to prevent leaking secret length via timing.
func safeEqual(a, b string) bool {
	lenMatch := subtle.ConstantTimeEq(int32(len(a)), int32(len(b)))
	cmp := subtle.ConstantTimeCompare([]byte(a), []byte(b))
	return subtle.ConstantTimeSelect(lenMatch, cmp, 0) == 1
}
