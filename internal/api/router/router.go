package router

import (
	"github.com/wb-go/wbf/ginext"

	"github.com/aliskhannn/newsflow/internal/api/handlers/render"
	"github.com/aliskhannn/newsflow/internal/api/middleware"
)

func Setup(h *render.Handler) *ginext.Engine {
	r := ginext.New()

	r.Use(middleware.CORSMiddleware())
	r.Use(ginext.Logger())
	r.Use(ginext.Recovery())

	r.GET("/health", h.Health)

	api := r.Group("/api")

	api.GET("/templates", h.Templates)       // listing templates
	api.POST("/render", h.Render)            // rendering synchronously
	api.POST("/render/async", h.RenderAsync) // enqueueing a render
	api.GET("/render/:id", h.Get)            // getting a stored render
	api.DELETE("/render/:id", h.Delete)      // deleting a stored render

	return r
}
