package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/coworking-booking/internal/config"
	"github.com/iliyamo/coworking-booking/internal/utils"
)

const secret = "test-secret"

func whoami(c echo.Context) error {
	uid, ok := UserID(c)
	return c.JSON(http.StatusOK, echo.Map{"user_id": uid, "signed_in": ok, "role": Role(c)})
}

func do(e *echo.Echo, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func token(t *testing.T, uid uint64, role string) string {
	tok, err := utils.NewAccessToken(secret, uid, role, 5)
	require.NoError(t, err)
	return tok.Token
}

func TestJWTAuth(t *testing.T) {
	e := echo.New()
	e.GET("/me", whoami, JWTAuth(secret))

	assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodGet, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodGet, "/me", "garbage").Code)

	rec := do(e, http.MethodGet, "/me", token(t, 7, "CUSTOMER"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user_id":7,"signed_in":true,"role":"CUSTOMER"}`, rec.Body.String())
}

func TestOptionalJWT(t *testing.T) {
	e := echo.New()
	e.GET("/book", whoami, OptionalJWT(secret))

	rec := do(e, http.MethodGet, "/book", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user_id":0,"signed_in":false,"role":""}`, rec.Body.String())

	rec = do(e, http.MethodGet, "/book", token(t, 3, "STAFF"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user_id":3,"signed_in":true,"role":"STAFF"}`, rec.Body.String())

	assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodGet, "/book", "expired-or-forged").Code)
}

func TestRequireRole(t *testing.T) {
	e := echo.New()
	e.GET("/staff", whoami, JWTAuth(secret), RequireRole("STAFF", "ADMIN"))

	assert.Equal(t, http.StatusForbidden, do(e, http.MethodGet, "/staff", token(t, 1, "CUSTOMER")).Code)
	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/staff", token(t, 1, "STAFF")).Code)
	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/staff", token(t, 1, "ADMIN")).Code)
}

func TestTokenBucket_LocalFallback(t *testing.T) {
	cfg := config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Minute,
		TTL:            10 * time.Minute,
		KeyStrategy:    "ip_user_route",
		Prefix:         "rl",
	}
	e := echo.New()
	e.POST("/v1/bookings", whoami, OptionalJWT(secret), NewTokenBucket(cfg, nil))

	assert.Equal(t, http.StatusOK, do(e, http.MethodPost, "/v1/bookings", "").Code)
	rec := do(e, http.MethodPost, "/v1/bookings", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))

	rec = do(e, http.MethodPost, "/v1/bookings", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// A signed-in caller has its own bucket.
	assert.Equal(t, http.StatusOK, do(e, http.MethodPost, "/v1/bookings", token(t, 9, "CUSTOMER")).Code)
}

func TestTokenBucket_Disabled(t *testing.T) {
	e := echo.New()
	e.POST("/x", whoami, NewTokenBucket(config.RateLimitConfig{Enabled: false}, nil))
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, do(e, http.MethodPost, "/x", "").Code)
	}
}

func TestRedisCache_PassThroughWithoutRedis(t *testing.T) {
	calls := 0
	e := echo.New()
	e.GET("/v1/resources", func(c echo.Context) error {
		calls++
		return c.String(http.StatusOK, "ok")
	}, NewRedisCache(config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}}, nil))

	do(e, http.MethodGet, "/v1/resources", "")
	do(e, http.MethodGet, "/v1/resources", "")
	assert.Equal(t, 2, calls)
}

func TestCachePayload(t *testing.T) {
	h := http.Header{"Content-Type": []string{"application/json"}}
	bs, err := encodePayload(http.StatusOK, h, []byte(`{"a":1}`))
	require.NoError(t, err)

	status, hdr, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", hdr.Get("Content-Type"))
	assert.Equal(t, `{"a":1}`, string(body))

	_, _, _, ok = decodePayload([]byte{1, 2})
	assert.False(t, ok)
}

func TestCacheKeyIncludesPathParams(t *testing.T) {
	cfg := config.CacheConfig{Prefix: "cache", KeyStrategy: "route_query"}
	e := echo.New()
	key := func(id string) string {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/v1/resources/"+id+"/availability?date=2024-01-10", nil), httptest.NewRecorder())
		c.SetPath("/v1/resources/:id/availability")
		c.SetParamNames("id")
		c.SetParamValues(id)
		return cacheKeyFrom(cfg, c)
	}
	assert.NotEqual(t, key("1"), key("2"))
	assert.Equal(t, key("1"), key("1"))
}
