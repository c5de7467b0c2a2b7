package webserver

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stake-plus/civic-proposals/src/proposals"
	"github.com/stake-plus/civic-proposals/src/verifications"
)

func respondError(c *gin.Context, err error) {
	var (
		validation *proposals.ValidationError
		notFound   *proposals.NotFoundError
		authz      *proposals.AuthorizationError
		outOfRange *proposals.OutOfRangeError
		noHandler  *verifications.NotFoundError
	)
	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"err": validation.Error(), "field": validation.Field})
	case errors.As(err, &notFound), errors.As(err, &noHandler):
		c.JSON(http.StatusNotFound, gin.H{"err": err.Error()})
	case errors.As(err, &authz):
		c.JSON(http.StatusForbidden, gin.H{"err": "authorization required", "handler": authz.Handler, "reason": authz.Reason})
	case errors.As(err, &outOfRange):
		c.JSON(http.StatusBadRequest, gin.H{"err": outOfRange.Error()})
	case errors.Is(err, proposals.ErrCreationDisabled), errors.Is(err, proposals.ErrOfficialDisabled):
		c.JSON(http.StatusForbidden, gin.H{"err": err.Error()})
	case errors.Is(err, proposals.ErrVotingClosed), errors.Is(err, proposals.ErrAlreadyVoted):
		c.JSON(http.StatusConflict, gin.H{"err": err.Error()})
	default:
		slog.ErrorContext(c.Request.Context(), "request failed", "route", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"err": "internal error"})
	}
}
