package httpserver

import (
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/sugarline/sweetshop/internal/handlers"
	authmw "github.com/sugarline/sweetshop/internal/middleware/auth"
)

type Deps struct {
	DB           *gorm.DB
	AuthHandler  *handlers.AuthHandler
	SweetHandler *handlers.SweetHandler
	AuthMW       *authmw.Middleware
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	api := e.Group("/api")

	auth := api.Group("/auth")
	auth.POST("/register", d.AuthHandler.Register)
	auth.POST("/login", d.AuthHandler.Login)

	sweets := api.Group("/sweets", d.AuthMW.RequireLogin)

	sweets.POST("", d.SweetHandler.CreateSweet)
	sweets.GET("", d.SweetHandler.ListSweets)
	sweets.GET("/search", d.SweetHandler.SearchSweets)
	sweets.PUT("/:id", d.SweetHandler.UpdateSweet)
	sweets.POST("/:id/purchase", d.SweetHandler.PurchaseSweet)

	sweets.DELETE("/:id", d.SweetHandler.DeleteSweet, d.AuthMW.AdminOnly)
	sweets.POST("/:id/restock", d.SweetHandler.RestockSweet, d.AuthMW.AdminOnly)
}
