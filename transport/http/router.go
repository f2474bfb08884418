package http

import (
	"github.com/gin-gonic/gin"
	"github.com/layer-3/garuda/service"
)

// SetupRouter sets up the Gin router for the provider endpoints.
func SetupRouter(provider *service.Provider, authorize CheckIDAuthorizer) *gin.Engine {
	router := gin.Default()

	handlers := NewProviderHandlers(provider, authorize)

	openid := router.Group("/openid")
	{
		openid.GET("", handlers.CheckID)
		openid.POST("", handlers.Backchannel)
	}

	return router
}
