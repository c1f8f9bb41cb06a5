package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/loopwork/loopwork/internal/apperror"
	workspacedomain "github.com/loopwork/loopwork/internal/workspace/domain"
)

func (s *Server) CreateWorkspace(c *gin.Context) {
	orgID, err := pathID(c, "orgId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req workspacedomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, apperror.Validation("request", "Invalid request body"))
		return
	}
	ws, err := s.workspaceSvc.Create(c.Request.Context(), currentUserID(c), orgID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ws)
}

func (s *Server) ListWorkspaces(c *gin.Context) {
	orgID, err := pathID(c, "orgId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	workspaces, err := s.workspaceSvc.ListByOrg(c.Request.Context(), currentUserID(c), orgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, workspaces)
}

func (s *Server) GetWorkspace(c *gin.Context) {
	workspaceID, err := pathID(c, "workspaceId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	ws, err := s.workspaceSvc.Get(c.Request.Context(), currentUserID(c), workspaceID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, ws)
}

func (s *Server) UpdateWorkspace(c *gin.Context) {
	workspaceID, err := pathID(c, "workspaceId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req workspacedomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, apperror.Validation("request", "Invalid request body"))
		return
	}
	ws, err := s.workspaceSvc.Update(c.Request.Context(), currentUserID(c), workspaceID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, ws)
}

func (s *Server) DeleteWorkspace(c *gin.Context) {
	workspaceID, err := pathID(c, "workspaceId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.workspaceSvc.Delete(c.Request.Context(), currentUserID(c), workspaceID); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) ListWorkspaceMembers(c *gin.Context) {
	workspaceID, err := pathID(c, "workspaceId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	members, err := s.workspaceSvc.ListMembers(c.Request.Context(), currentUserID(c), workspaceID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, members)
}

func (s *Server) AddWorkspaceMember(c *gin.Context) {
	workspaceID, err := pathID(c, "workspaceId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req memberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, apperror.Validation("request", "Invalid request body"))
		return
	}
	if err := s.workspaceSvc.AddMember(c.Request.Context(), currentUserID(c), workspaceID, snowflake.ID(req.UserID), req.Role); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) RemoveWorkspaceMember(c *gin.Context) {
	workspaceID, err := pathID(c, "workspaceId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	targetID, err := pathID(c, "userId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.workspaceSvc.RemoveMember(c.Request.Context(), currentUserID(c), workspaceID, targetID); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
