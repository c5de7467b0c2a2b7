package webserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stake-plus/civic-proposals/src/proposals"
)

type Votes struct {
	svc      ProposalService
	counters Counters
}

func NewVotes(svc ProposalService, counters Counters) Votes {
	return Votes{svc: svc, counters: counters}
}

func (v Votes) Cast(c *gin.Context) {
	id, err := proposals.ParseID("id", c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	count, err := v.svc.Vote(c.Request.Context(), id, userID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	v.counters.VoteCast()
	c.JSON(http.StatusCreated, gin.H{"proposal_id": id, "vote_count": count})
}
