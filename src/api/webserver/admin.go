package webserver

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stake-plus/civic-proposals/src/proposals"
)

type Admin struct {
	svc      ProposalService
	counters Counters
}

func NewAdmin(svc ProposalService, counters Counters) Admin {
	return Admin{svc: svc, counters: counters}
}

func (a Admin) Answer(c *gin.Context) {
	id, err := proposals.ParseID("id", c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	var req struct {
		State         string            `json:"state" binding:"required,oneof=accepted rejected"`
		Justification map[string]string `json:"justification"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	slog.InfoContext(c.Request.Context(), "admin answering proposal",
		"admin", userID(c), "proposal_id", id, "state", req.State)

	p, err := a.svc.Answer(c.Request.Context(), id, proposals.AnswerState(req.State), proposals.LocalizedText(req.Justification))
	if err != nil {
		respondError(c, err)
		return
	}
	a.counters.ProposalAnswered(req.State)
	c.JSON(http.StatusOK, p)
}

// AdminMiddleware requires the admin claim set by JWTMiddleware.
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !c.GetBool(ctxAdmin) {
			c.JSON(http.StatusForbidden, gin.H{"err": "admin access required"})
			c.Abort()
			return
		}
		c.Next()
	}
}
