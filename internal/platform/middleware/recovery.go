package middleware

import (
	"fmt"
	"net/http"
	"runtime"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Recovery turns a handler panic into a 500. It logs through the request
// logger installed by Logger, so the line carries request_id, and adds the
// authenticated actor when there is one. fallback is used when no request
// logger is bound.
func Recovery(fallback zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				var stack [4096]byte
				n := runtime.Stack(stack[:], false)

				log := zerolog.Ctx(c.Request().Context())
				if log.GetLevel() == zerolog.Disabled {
					l := fallback.With().Str("request_id", fmt.Sprintf("%v", c.Get("request_id"))).Logger()
					log = &l
				}
				evt := log.Error()
				if actorID, ok := c.Get("actor_id").(string); ok {
					evt = evt.Str("actor_id", actorID)
				}
				evt.
					Str("method", c.Request().Method).
					Str("path", c.Path()).
					Str("panic", fmt.Sprintf("%v", r)).
					Str("stack", string(stack[:n])).
					Msg("panic recovered")

				err = echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
			}()
			return next(c)
		}
	}
}
