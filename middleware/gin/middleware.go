package ginmw

import (
	"github.com/gin-gonic/gin"

	"github.com/reoring/plasm/middleware"
)

// New returns a gin engine with panic recovery serving t.
func New(t *middleware.Table) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	Mount(r, t)
	return r
}

// Mount registers every route of t on r, plus the not-found reply.
func Mount(r *gin.Engine, t *middleware.Table) {
	for _, rt := range t.Routes() {
		r.Handle(rt.Method, rt.Path, Handler(t, rt))
	}
	r.NoRoute(func(c *gin.Context) {
		write(c, t.NotFound(c.Request.Context()))
	})
}

// Handler adapts one route to a gin.HandlerFunc.
func Handler(t *middleware.Table, rt middleware.Route) gin.HandlerFunc {
	return func(c *gin.Context) {
		params := make(map[string]string, len(c.Params))
		for _, p := range c.Params {
			params[p.Key] = p.Value
		}
		write(c, t.Serve(c.Request.Context(), rt, c.Request.Body, params))
	}
}

func write(c *gin.Context, resp middleware.Response) {
	c.Data(resp.Status, middleware.ContentType, resp.Body)
}
