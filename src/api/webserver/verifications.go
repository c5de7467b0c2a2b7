package webserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stake-plus/civic-proposals/src/verifications"
)

type Verifications struct {
	registry *verifications.Registry
}

func NewVerifications(registry *verifications.Registry) Verifications {
	return Verifications{registry: registry}
}

// List reports every registered method; direct handlers first, then
// multistep workflows, each in registration order.
func (v Verifications) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"handlers":  v.registry.ListHandlers(),
		"workflows": v.registry.ListWorkflows(),
		"methods":   v.registry.Methods(),
	})
}
