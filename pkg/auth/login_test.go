package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSigningKey = []byte("test-signing-key-at-least-32-bytes-long")

func newTestChecker(t *testing.T) *LoginChecker {
	t.Helper()
	c, err := NewLoginChecker(LoginConfig{SigningKey: testSigningKey, Issuer: "wdk"})
	require.NoError(t, err)
	return c
}

// runCheckLogin sends req through CheckLogin and returns the user the
// handler saw.
func runCheckLogin(t *testing.T, c *LoginChecker, req *http.Request) (*UserContext, *httptest.ResponseRecorder) {
	t.Helper()
	var seen *UserContext
	h := c.CheckLogin(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = GetUserContext(r.Context())
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.NotNil(t, seen)
	return seen, rec
}

func TestNewLoginChecker(t *testing.T) {
	_, err := NewLoginChecker(LoginConfig{})
	assert.Error(t, err)

	c := newTestChecker(t)
	assert.Equal(t, DefaultCookieName, c.CookieName())
}

func TestCheckLogin_NoCookie(t *testing.T) {
	user, rec := runCheckLogin(t, newTestChecker(t), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, user.Guest)
	assert.Empty(t, rec.Result().Cookies())
}

func TestCheckLogin_ValidCookie(t *testing.T) {
	c := newTestChecker(t)
	token, err := c.IssueToken(&UserContext{UserID: "u1", Email: "u1@example.org", Roles: []string{"curator"}}, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: token})
	user, rec := runCheckLogin(t, c, req)

	assert.False(t, user.Guest)
	assert.Equal(t, "u1", user.UserID)
	assert.Equal(t, "u1@example.org", user.Email)
	assert.True(t, user.HasRole("curator"))
	assert.Empty(t, rec.Result().Cookies(), "cookie is not refreshed without remember")
}

func TestCheckLogin_RememberRefreshesCookie(t *testing.T) {
	c := newTestChecker(t)
	token, err := c.IssueToken(&UserContext{UserID: "u1", Remember: true}, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: token})
	user, rec := runCheckLogin(t, c, req)

	assert.True(t, user.Remember)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, token, cookies[0].Value)
	assert.Equal(t, int(defaultRememberAge.Seconds()), cookies[0].MaxAge)
}

func TestCheckLogin_InvalidCookieDeleted(t *testing.T) {
	c := newTestChecker(t)

	other, err := NewLoginChecker(LoginConfig{SigningKey: []byte("another-key-another-key-another-key")})
	require.NoError(t, err)
	forged, err := other.IssueToken(&UserContext{UserID: "admin"}, time.Hour)
	require.NoError(t, err)

	expired, err := c.IssueToken(&UserContext{UserID: "u1"}, -time.Hour)
	require.NoError(t, err)

	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "admin", "iss": "wdk"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, value := range map[string]string{
		"garbage":      "not-a-token",
		"wrong key":    forged,
		"expired":      expired,
		"unsigned alg": noneAlg,
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: value})
			user, rec := runCheckLogin(t, c, req)

			assert.True(t, user.Guest)
			cookies := rec.Result().Cookies()
			require.Len(t, cookies, 1)
			assert.Equal(t, DefaultCookieName, cookies[0].Name)
			assert.Less(t, cookies[0].MaxAge, 0)
		})
	}
}

func TestAuthenticate_WrongIssuer(t *testing.T) {
	c := newTestChecker(t)
	other, err := NewLoginChecker(LoginConfig{SigningKey: testSigningKey, Issuer: "elsewhere"})
	require.NoError(t, err)
	token, err := other.IssueToken(&UserContext{UserID: "u1"}, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: token})
	_, err = c.Authenticate(req)
	assert.ErrorContains(t, err, "invalid issuer")
}
