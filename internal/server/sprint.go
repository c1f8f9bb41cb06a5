package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/loopwork/loopwork/internal/apperror"
	sprintdomain "github.com/loopwork/loopwork/internal/sprint/domain"
)

func (s *Server) CreateSprint(c *gin.Context) {
	projectID, err := pathID(c, "projectId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req sprintdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, apperror.Validation("request", "Invalid request body"))
		return
	}
	sprint, err := s.sprintSvc.Create(c.Request.Context(), currentUserID(c), projectID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sprint)
}

func (s *Server) ListSprints(c *gin.Context) {
	projectID, err := pathID(c, "projectId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	sprints, err := s.sprintSvc.ListByProject(c.Request.Context(), currentUserID(c), projectID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, sprints)
}

func (s *Server) GetSprint(c *gin.Context) {
	sprintID, err := pathID(c, "sprintId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	sprint, err := s.sprintSvc.Get(c.Request.Context(), currentUserID(c), sprintID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, sprint)
}

func (s *Server) UpdateSprint(c *gin.Context) {
	sprintID, err := pathID(c, "sprintId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req sprintdomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, apperror.Validation("request", "Invalid request body"))
		return
	}
	sprint, err := s.sprintSvc.Update(c.Request.Context(), currentUserID(c), sprintID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, sprint)
}

func (s *Server) StartSprint(c *gin.Context) {
	sprintID, err := pathID(c, "sprintId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	sprint, err := s.sprintSvc.Start(c.Request.Context(), currentUserID(c), sprintID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, sprint)
}

func (s *Server) CompleteSprint(c *gin.Context) {
	sprintID, err := pathID(c, "sprintId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	sprint, err := s.sprintSvc.Complete(c.Request.Context(), currentUserID(c), sprintID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, sprint)
}

func (s *Server) SprintBurndown(c *gin.Context) {
	sprintID, err := pathID(c, "sprintId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	burndown, err := s.sprintSvc.Burndown(c.Request.Context(), currentUserID(c), sprintID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, burndown)
}
