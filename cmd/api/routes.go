package main

import (
	"callintel/internal/httpapi"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, authMW gin.HandlerFunc, h httpapi.Handlers) {
	// public
	r.GET("/healthz", httpapi.Health)

	// protected API group
	v1 := r.Group("/v1")
	v1.Use(authMW)
	h.Register(v1)
}
