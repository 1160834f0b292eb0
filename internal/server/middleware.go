package server

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

const requestIDKey = "request_id"

// requestLogger logs one event per request.
func requestLogger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			rid, _ := c.Get(requestIDKey).(string)

			err := next(c)
			if err != nil {
				// Let the error handler write the response so the status is final.
				c.Error(err)
			}

			status := c.Response().Status
			evt := logger.Info()
			switch {
			case status >= 500:
				evt = logger.Error().Err(err)
			case status >= 400:
				evt = logger.Warn().Err(err)
			}
			evt.
				Str("request_id", rid).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", status).
				Int64("bytes_in", req.ContentLength).
				Dur("latency", time.Since(start)).
				Str("remote_ip", c.RealIP()).
				Msg("request")

			return nil
		}
	}
}

// recovery turns a handler panic into a 500 and logs the stack.
func recovery(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					var stack [4096]byte
					n := runtime.Stack(stack[:], false)

					logger.Error().
						Str("request_id", fmt.Sprintf("%v", c.Get(requestIDKey))).
						Str("panic", fmt.Sprintf("%v", r)).
						Str("stack", string(stack[:n])).
						Msg("panic recovered")

					err = echo.NewHTTPError(http.StatusInternalServerError, "erro interno do servidor")
				}
			}()
			return next(c)
		}
	}
}

// errorHandler renders every error as {"error": message}.
func errorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		code := http.StatusInternalServerError
		msg := "erro interno do servidor"
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			msg = fmt.Sprintf("%v", he.Message)
		}
		if code == http.StatusRequestEntityTooLarge {
			msg = "Arquivo excede o tamanho máximo permitido"
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(code)
		} else {
			werr = c.JSON(code, errorResponse{Error: msg})
		}
		if werr != nil {
			logger.Error().Err(werr).Msg("write error response")
		}
	}
}

type errorResponse struct {
	Error string `json:"error"`
}
