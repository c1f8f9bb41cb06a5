package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/loopwork/loopwork/internal/apperror"
	timeentrydomain "github.com/loopwork/loopwork/internal/timeentry/domain"
)

func (s *Server) CreateTimeEntry(c *gin.Context) {
	issueID, err := pathID(c, "issueId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req timeentrydomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, apperror.Validation("request", "Invalid request body"))
		return
	}
	entry, err := s.timeEntrySvc.Create(c.Request.Context(), currentUserID(c), issueID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func (s *Server) ListTimeEntries(c *gin.Context) {
	issueID, err := pathID(c, "issueId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	entries, err := s.timeEntrySvc.ListByIssue(c.Request.Context(), currentUserID(c), issueID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (s *Server) SoftDeleteTimeEntry(c *gin.Context) {
	entryID, err := pathID(c, "entryId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.timeEntrySvc.SoftDelete(c.Request.Context(), currentUserID(c), entryID); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
