package middleware

import (
    "net/http"
    "time"

    "github.com/google/uuid"
    "github.com/labstack/echo/v4"
)

// CartCookie is the cookie carrying the anonymous cart session id.
const CartCookie = "tour_cart"

const cartCookieTTL = 30 * 24 * time.Hour

// CartSession makes sure every request has a cart session id, issuing a new
// random one in a cookie when the client has none.  An X-Cart-Session
// header takes precedence for API clients that do not keep cookies.
func CartSession(secure bool) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            id := c.Request().Header.Get("X-Cart-Session")
            if _, err := uuid.Parse(id); err != nil {
                id = ""
                if ck, err := c.Cookie(CartCookie); err == nil {
                    if _, err := uuid.Parse(ck.Value); err == nil {
                        id = ck.Value
                    }
                }
            }
            if id == "" {
                id = uuid.NewString()
                c.SetCookie(&http.Cookie{
                    Name:     CartCookie,
                    Value:    id,
                    Path:     "/",
                    Expires:  time.Now().Add(cartCookieTTL),
                    HttpOnly: true,
                    Secure:   secure,
                    SameSite: http.SameSiteLaxMode,
                })
            }
            c.Set(ctxSession, id)
            c.Response().Header().Set("X-Cart-Session", id)
            return next(c)
        }
    }
}

// SessionID returns the cart session of the request.
func SessionID(c echo.Context) string {
    s, _ := c.Get(ctxSession).(string)
    return s
}
