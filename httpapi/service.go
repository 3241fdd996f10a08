// Package httpapi provides the JSON API the QuizGenius frontend talks to.
//
// Each subpackage holds one Service. The backend mounts them all under /api;
// tests mount a single one.
package httpapi

import (
	"github.com/gin-gonic/gin"
)

// Prefix is the path every Service is mounted under.
const Prefix = "/api"

// Service is a group of endpoints. Register adds its routes relative to router
// and attaches the scope checks of each route.
type Service interface {
	Register(router gin.IRouter)
}

// Mount creates the Prefix group on router and registers the services in it.
func Mount(router gin.IRouter, services ...Service) *gin.RouterGroup {
	group := router.Group(Prefix)
	for _, service := range services {
		service.Register(group)
	}

	return group
}
