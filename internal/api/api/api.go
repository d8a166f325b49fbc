package api

import (
	"github.com/gin-contrib/cors"
	"github.com/wb-go/wbf/ginext"

	"registro/cmd/middleware"
	"registro/internal/service"
)

type Routers struct {
	Service service.Service
}

func NewRouters(r *Routers) *ginext.Engine {
	app := ginext.New("release")

	app.Use(middleware.RecoveryMiddleware())
	app.Use(middleware.LoggingMiddleware())
	app.Use(cors.Default())

	app.POST("/register/", r.Service.Register)
	app.GET("/participants/", r.Service.List)
	app.GET("/participants/export_csv/", r.Service.ExportCSV)
	app.GET("/participants/stats/", r.Service.Stats)
	app.GET("/participants/reprint/", r.Service.Reprint)

	app.GET("/", func(c *ginext.Context) {
		c.File("./frontend/index.html")
	})
	app.Static("/frontend", "./frontend")

	return app
}
