package middleware

import (
    "bytes"
    "context"
    "crypto/sha1"
    "encoding/json"
    "errors"
    "fmt"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/tour-booking/internal/config"
)

// cachedResponse is what is stored per key.  Only the content type is kept
// from the headers; request ids and cookies must never be replayed.
type cachedResponse struct {
    Status      int    `json:"s"`
    ContentType string `json:"ct"`
    Body        []byte `json:"b"`
}

// bodyRecorder tees the handler's output.  Once the body passes limit it
// stops buffering and marks itself overflowed so the entry is skipped.
type bodyRecorder struct {
    http.ResponseWriter
    status     int
    buf        bytes.Buffer
    limit      int
    overflowed bool
}

func (r *bodyRecorder) WriteHeader(code int) {
    r.status = code
    r.ResponseWriter.WriteHeader(code)
}

func (r *bodyRecorder) Write(b []byte) (int, error) {
    if !r.overflowed {
        if r.limit > 0 && r.buf.Len()+len(b) > r.limit {
            r.overflowed = true
            r.buf.Reset()
        } else {
            r.buf.Write(b)
        }
    }
    return r.ResponseWriter.Write(b)
}

// cacheKeyFrom keys on the concrete path and query so /tours/1/slots and
// /tours/2/slots never share an entry.  Query parameters are sorted.
func cacheKeyFrom(cfg config.CacheConfig, c echo.Context) string {
    r := c.Request()
    sum := sha1.Sum([]byte(r.Method + " " + r.URL.Path + "?" + r.URL.Query().Encode()))
    return fmt.Sprintf("%s:%x", cfg.Prefix, sum)
}

func (cr cachedResponse) write(c echo.Context) error {
    h := c.Response().Header()
    if cr.ContentType != "" {
        h.Set(echo.HeaderContentType, cr.ContentType)
    }
    h.Set("X-Cache", "HIT")
    return c.Blob(cr.Status, cr.ContentType, cr.Body)
}

// NewRedisCache serves availability reads from Redis for cfg.TTL.  Only
// 200 responses are stored, so a 404 for an unknown tour is never pinned.
// Redis failures degrade to a plain pass-through.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client, log logrus.FieldLogger) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    ttl := cfg.TTL
    if ttl <= 0 {
        ttl = 5 * time.Second
    }

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if !cfg.Methods[strings.ToUpper(c.Request().Method)] {
                return next(c)
            }
            ctx := c.Request().Context()
            key := cacheKeyFrom(cfg, c)

            bs, err := rdb.Get(ctx, key).Bytes()
            switch {
            case err == nil:
                var cr cachedResponse
                if json.Unmarshal(bs, &cr) == nil && cr.Status != 0 {
                    return cr.write(c)
                }
            case !errors.Is(err, redis.Nil):
                log.WithError(err).Debug("response cache read failed")
            }

            rec := &bodyRecorder{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
            c.Response().Writer = rec
            c.Response().Header().Set("X-Cache", "MISS")
            if err := next(c); err != nil {
                return err
            }
            if rec.status != http.StatusOK || rec.overflowed {
                return nil
            }
            payload, err := json.Marshal(cachedResponse{
                Status:      rec.status,
                ContentType: c.Response().Header().Get(echo.HeaderContentType),
                Body:        rec.buf.Bytes(),
            })
            if err != nil {
                return nil
            }
            // The request context may already be done once the body is flushed.
            if err := rdb.Set(context.WithoutCancel(ctx), key, payload, ttl).Err(); err != nil {
                log.WithError(err).Debug("response cache write failed")
            }
            return nil
        }
    }
}
