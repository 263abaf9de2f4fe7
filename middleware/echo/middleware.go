package echomw

import (
	"github.com/labstack/echo/v4"

	"github.com/reoring/plasm/middleware"
)

// New returns an echo instance serving t.
func New(t *middleware.Table) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	Mount(e, t)
	return e
}

// Mount registers every route of t on e, plus a catch-all not-found reply.
func Mount(e *echo.Echo, t *middleware.Table) {
	for _, r := range t.Routes() {
		e.Add(r.Method, r.Path, Handler(t, r))
	}
	e.RouteNotFound("/*", func(c echo.Context) error {
		return write(c, t.NotFound(c.Request().Context()))
	})
}

// Handler adapts one route to an echo.HandlerFunc.
func Handler(t *middleware.Table, r middleware.Route) echo.HandlerFunc {
	return func(c echo.Context) error {
		names := c.ParamNames()
		params := make(map[string]string, len(names))
		for _, n := range names {
			params[n] = c.Param(n)
		}
		return write(c, t.Serve(c.Request().Context(), r, c.Request().Body, params))
	}
}

func write(c echo.Context, resp middleware.Response) error {
	return c.Blob(resp.Status, middleware.ContentType, resp.Body)
}
