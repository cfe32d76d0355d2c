package api

import (
	"github.com/gin-gonic/gin"

	"pump-launcher/internal/observability"
)

func (s *Server) routes() {
	s.router.GET("/health", s.health)
	s.router.GET("/metrics", gin.WrapH(observability.Handler()))

	v1 := s.router.Group("/v1")
	v1.GET("/wallet", s.wallet)
	v1.POST("/launches", s.createLaunch)
}
