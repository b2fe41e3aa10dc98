package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultCookieName is the login cookie read when none is configured.
const DefaultCookieName = "wdk_check_auth"

// defaultRememberAge is the lifetime of a refreshed "remember me" cookie.
const defaultRememberAge = 365 * 24 * time.Hour

// LoginConfig configures the login cookie check.
type LoginConfig struct {
	// CookieName is the name of the login cookie.
	CookieName string

	// SigningKey is the HMAC key login tokens are signed with.
	SigningKey []byte

	// Issuer is the expected issuer claim. Empty accepts any issuer.
	Issuer string

	// RememberAge is the max age of a refreshed remember-me cookie.
	RememberAge time.Duration
}

// LoginChecker validates login cookies.
type LoginChecker struct {
	cfg       LoginConfig
	extractor *ClaimsExtractor
}

// NewLoginChecker creates a login checker.
func NewLoginChecker(cfg LoginConfig) (*LoginChecker, error) {
	if len(cfg.SigningKey) == 0 {
		return nil, errors.New("login signing key is required")
	}
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultCookieName
	}
	if cfg.RememberAge == 0 {
		cfg.RememberAge = defaultRememberAge
	}
	return &LoginChecker{cfg: cfg, extractor: DefaultClaimsExtractor()}, nil
}

// CookieName returns the login cookie name.
func (c *LoginChecker) CookieName() string { return c.cfg.CookieName }

// Authenticate returns the user named by the request's login cookie.
// Returns nil, nil when the request has no login cookie.
func (c *LoginChecker) Authenticate(r *http.Request) (*UserContext, error) {
	cookie, err := r.Cookie(c.cfg.CookieName)
	if errors.Is(err, http.ErrNoCookie) {
		return nil, nil //nolint:nilnil // no cookie means guest, not an error
	}
	if err != nil {
		return nil, fmt.Errorf("reading login cookie: %w", err)
	}

	claims, err := c.parseAndValidateToken(cookie.Value)
	if err != nil {
		return nil, fmt.Errorf("invalid login cookie: %w", err)
	}
	return c.extractor.Extract(claims)
}

// parseAndValidateToken parses and validates the JWT.
func (c *LoginChecker) parseAndValidateToken(tokenString string) (map[string]any, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.cfg.SigningKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid claims type")
	}
	if c.cfg.Issuer != "" {
		iss, _ := claims["iss"].(string)
		if iss != c.cfg.Issuer {
			return nil, fmt.Errorf("invalid issuer: got %q, want %q", iss, c.cfg.Issuer)
		}
	}

	claimsMap := make(map[string]any, len(claims))
	maps.Copy(claimsMap, claims)
	return claimsMap, nil
}

// IssueToken signs a login token for uc that expires after ttl.
func (c *LoginChecker) IssueToken(uc *UserContext, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":      uc.UserID,
		"iat":      now.Unix(),
		"exp":      now.Add(ttl).Unix(),
		"remember": uc.Remember,
	}
	if c.cfg.Issuer != "" {
		claims["iss"] = c.cfg.Issuer
	}
	if uc.Email != "" {
		claims["email"] = uc.Email
	}
	if uc.Name != "" {
		claims["name"] = uc.Name
	}
	if len(uc.Roles) > 0 {
		claims["roles"] = uc.Roles
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.cfg.SigningKey)
	if err != nil {
		return "", fmt.Errorf("signing login token: %w", err)
	}
	return signed, nil
}

// CheckLogin resolves the request user from the login cookie. Requests
// without a cookie continue as the guest. An invalid cookie is deleted and
// the request continues as the guest. A valid remember-me cookie is
// re-sent with a long max age.
func (c *LoginChecker) CheckLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := c.Authenticate(r)
		switch {
		case err != nil:
			slog.Warn("deleting invalid login cookie", "error", err)
			http.SetCookie(w, &http.Cookie{
				Name:   c.cfg.CookieName,
				Value:  "",
				Path:   "/",
				MaxAge: -1,
			})
			user = Guest()
		case user == nil:
			user = Guest()
		case user.Remember:
			if cookie, cerr := r.Cookie(c.cfg.CookieName); cerr == nil {
				http.SetCookie(w, &http.Cookie{
					Name:     c.cfg.CookieName,
					Value:    cookie.Value,
					Path:     "/",
					MaxAge:   int(c.cfg.RememberAge.Seconds()),
					HttpOnly: true,
				})
			}
		}
		next.ServeHTTP(w, r.WithContext(WithUserContext(r.Context(), user)))
	})
}
