package middleware

import (
    "net/http"
    "net/http/httptest"
    "testing"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/tour-booking/internal/config"
    "github.com/iliyamo/tour-booking/internal/logging"
    "github.com/iliyamo/tour-booking/internal/model"
    "github.com/iliyamo/tour-booking/internal/utils"
)

const secret = "test-secret"

func whoami(c echo.Context) error {
    id, _ := UserID(c)
    return c.JSON(http.StatusOK, echo.Map{"user_id": id, "role": Role(c), "session": SessionID(c)})
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, req)
    return rec
}

func token(t *testing.T, id uint64, role string) string {
    tok, err := utils.NewAccessToken(secret, id, role, 5)
    require.NoError(t, err)
    return "Bearer " + tok.Token
}

func TestJWTAuth(t *testing.T) {
    e := echo.New()
    e.GET("/me", whoami, JWTAuth(secret))

    rec := serve(e, httptest.NewRequest(http.MethodGet, "/me", nil))
    assert.Equal(t, http.StatusUnauthorized, rec.Code)

    req := httptest.NewRequest(http.MethodGet, "/me", nil)
    req.Header.Set("Authorization", "Bearer not.a.token")
    assert.Equal(t, http.StatusUnauthorized, serve(e, req).Code)

    req = httptest.NewRequest(http.MethodGet, "/me", nil)
    req.Header.Set("Authorization", token(t, 42, model.RoleCustomer))
    rec = serve(e, req)
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.JSONEq(t, `{"user_id":42,"role":"CUSTOMER","session":""}`, rec.Body.String())
}

func TestOptionalJWT(t *testing.T) {
    e := echo.New()
    e.GET("/cart", whoami, OptionalJWT(secret))

    rec := serve(e, httptest.NewRequest(http.MethodGet, "/cart", nil))
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Contains(t, rec.Body.String(), `"user_id":0`)

    req := httptest.NewRequest(http.MethodGet, "/cart", nil)
    req.Header.Set("Authorization", "Bearer garbage")
    assert.Equal(t, http.StatusUnauthorized, serve(e, req).Code)
}

func TestRequireRole(t *testing.T) {
    e := echo.New()
    e.GET("/admin", whoami, JWTAuth(secret), RequireRole(model.RoleAdmin))

    req := httptest.NewRequest(http.MethodGet, "/admin", nil)
    req.Header.Set("Authorization", token(t, 1, model.RoleCustomer))
    assert.Equal(t, http.StatusForbidden, serve(e, req).Code)

    req = httptest.NewRequest(http.MethodGet, "/admin", nil)
    req.Header.Set("Authorization", token(t, 1, model.RoleAdmin))
    assert.Equal(t, http.StatusOK, serve(e, req).Code)
}

func TestCartSessionIssuesAndReusesCookie(t *testing.T) {
    e := echo.New()
    e.GET("/cart", whoami, CartSession(false))

    rec := serve(e, httptest.NewRequest(http.MethodGet, "/cart", nil))
    require.Equal(t, http.StatusOK, rec.Code)
    cookies := rec.Result().Cookies()
    require.Len(t, cookies, 1)
    assert.Equal(t, CartCookie, cookies[0].Name)
    assert.True(t, cookies[0].HttpOnly)
    issued := cookies[0].Value

    req := httptest.NewRequest(http.MethodGet, "/cart", nil)
    req.AddCookie(&http.Cookie{Name: CartCookie, Value: issued})
    rec = serve(e, req)
    assert.Empty(t, rec.Result().Cookies())
    assert.Contains(t, rec.Body.String(), issued)

    // a forged non-uuid cookie is replaced
    req = httptest.NewRequest(http.MethodGet, "/cart", nil)
    req.AddCookie(&http.Cookie{Name: CartCookie, Value: "../../etc"})
    rec = serve(e, req)
    require.Len(t, rec.Result().Cookies(), 1)
    assert.NotEqual(t, "../../etc", rec.Result().Cookies()[0].Value)
}

func TestTokenBucketFallsBackToLocalLimiter(t *testing.T) {
    cfg := config.RateLimitConfig{
        Enabled:        true,
        Capacity:       2,
        RefillTokens:   1,
        RefillInterval: time.Hour,
        TTL:            time.Hour,
        KeyStrategy:    "ip",
        Prefix:         "rl",
    }
    e := echo.New()
    e.POST("/checkout", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) },
        NewTokenBucket(cfg, nil, logging.Discard()))

    for i := 0; i < 2; i++ {
        rec := serve(e, httptest.NewRequest(http.MethodPost, "/checkout", nil))
        assert.Equal(t, http.StatusNoContent, rec.Code)
    }
    rec := serve(e, httptest.NewRequest(http.MethodPost, "/checkout", nil))
    assert.Equal(t, http.StatusTooManyRequests, rec.Code)
    assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestTokenBucketDisabled(t *testing.T) {
    e := echo.New()
    e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusOK) },
        NewTokenBucket(config.RateLimitConfig{}, nil, logging.Discard()))
    for i := 0; i < 10; i++ {
        assert.Equal(t, http.StatusOK, serve(e, httptest.NewRequest(http.MethodGet, "/x", nil)).Code)
    }
}

func TestCacheKeyDistinguishesPaths(t *testing.T) {
    e := echo.New()
    cfg := config.CacheConfig{Prefix: "slots"}
    key := func(target string) string {
        return cacheKeyFrom(cfg, e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder()))
    }
    assert.NotEqual(t, key("/v1/tours/1/slots?date=2026-11-01"), key("/v1/tours/2/slots?date=2026-11-01"))
    assert.NotEqual(t, key("/v1/tours/1/slots?date=2026-11-01"), key("/v1/tours/1/slots?date=2026-11-02"))
    assert.Equal(t, key("/v1/tours/1/slots?a=1&b=2"), key("/v1/tours/1/slots?b=2&a=1"))
}

func TestBodyRecorderSkipsOversizedBodies(t *testing.T) {
    w := httptest.NewRecorder()
    rec := &bodyRecorder{ResponseWriter: w, status: http.StatusOK, limit: 8}
    _, _ = rec.Write([]byte(`{"a":1}`))
    assert.False(t, rec.overflowed)
    assert.Equal(t, `{"a":1}`, rec.buf.String())

    _, _ = rec.Write([]byte(`,"b":2}`))
    assert.True(t, rec.overflowed)
    assert.Zero(t, rec.buf.Len())
    assert.Equal(t, `{"a":1},"b":2}`, w.Body.String(), "client still gets the full body")
}

func TestCachedResponseReplaysStatusAndType(t *testing.T) {
    e := echo.New()
    w := httptest.NewRecorder()
    c := e.NewContext(httptest.NewRequest(http.MethodGet, "/v1/tours/1/slots", nil), w)
    require.NoError(t, cachedResponse{Status: http.StatusOK, ContentType: echo.MIMEApplicationJSON, Body: []byte(`{"ok":true}`)}.write(c))
    assert.Equal(t, http.StatusOK, w.Code)
    assert.Equal(t, "HIT", w.Header().Get("X-Cache"))
    assert.Equal(t, echo.MIMEApplicationJSON, w.Header().Get(echo.HeaderContentType))
    assert.Equal(t, `{"ok":true}`, w.Body.String())
}

func TestRedisCacheDisabledPassesThrough(t *testing.T) {
    e := echo.New()
    e.GET("/x", func(c echo.Context) error { return c.String(http.StatusOK, "fresh") },
        NewRedisCache(config.CacheConfig{Enabled: true}, nil, logging.Discard()))
    rec := serve(e, httptest.NewRequest(http.MethodGet, "/x", nil))
    assert.Equal(t, "fresh", rec.Body.String())
    assert.Empty(t, rec.Header().Get("X-Cache"))
}
