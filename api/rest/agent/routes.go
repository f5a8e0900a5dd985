package agent

import (
	"github.com/gin-gonic/gin"

	"codeberg.org/scribe/server/internal/auth"
)

// registers the agent endpoints behind auth. extra middleware (rate limits)
// runs after authentication so it can key on the user
func RegisterRoutes(router *gin.RouterGroup, runner Runner, mirror MirrorFunc, middleware ...gin.HandlerFunc) {
	agentGroup := router.Group("/agent")
	agentGroup.Use(auth.AuthMiddleware())
	agentGroup.Use(middleware...)
	{
		agentGroup.POST("/chat", ChatHandler(runner, mirror))
		agentGroup.POST("/process", ProcessHandler(runner, mirror))
	}
}
