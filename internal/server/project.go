package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/loopwork/loopwork/internal/apperror"
	projectdomain "github.com/loopwork/loopwork/internal/project/domain"
)

func (s *Server) CreateProject(c *gin.Context) {
	orgID, err := pathID(c, "orgId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	workspaceID, err := pathID(c, "workspaceId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req projectdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, apperror.Validation("request", "Invalid request body"))
		return
	}
	project, err := s.projectSvc.Create(c.Request.Context(), currentUserID(c), orgID, workspaceID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, project)
}

func (s *Server) ListProjects(c *gin.Context) {
	orgID, err := pathID(c, "orgId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	projects, err := s.projectSvc.ListByOrg(c.Request.Context(), currentUserID(c), orgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, projects)
}

func (s *Server) GetProject(c *gin.Context) {
	projectID, err := pathID(c, "projectId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	project, err := s.projectSvc.Get(c.Request.Context(), currentUserID(c), projectID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

func (s *Server) UpdateProject(c *gin.Context) {
	projectID, err := pathID(c, "projectId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req projectdomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, apperror.Validation("request", "Invalid request body"))
		return
	}
	project, err := s.projectSvc.Update(c.Request.Context(), currentUserID(c), projectID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

func (s *Server) SoftDeleteProject(c *gin.Context) {
	projectID, err := pathID(c, "projectId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.projectSvc.SoftDelete(c.Request.Context(), currentUserID(c), projectID); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) RestoreProject(c *gin.Context) {
	projectID, err := pathID(c, "projectId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.projectSvc.Restore(c.Request.Context(), currentUserID(c), projectID); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) ListProjectMembers(c *gin.Context) {
	projectID, err := pathID(c, "projectId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	members, err := s.projectSvc.ListMembers(c.Request.Context(), currentUserID(c), projectID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, members)
}

func (s *Server) AddProjectMember(c *gin.Context) {
	projectID, err := pathID(c, "projectId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req memberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, apperror.Validation("request", "Invalid request body"))
		return
	}
	if err := s.projectSvc.AddMember(c.Request.Context(), currentUserID(c), projectID, snowflake.ID(req.UserID), req.Role); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) UpdateProjectMemberRole(c *gin.Context) {
	projectID, err := pathID(c, "projectId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	targetID, err := pathID(c, "userId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req memberRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, apperror.Validation("role", "Role is required"))
		return
	}
	if err := s.projectSvc.UpdateMemberRole(c.Request.Context(), currentUserID(c), projectID, targetID, req.Role); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) RemoveProjectMember(c *gin.Context) {
	projectID, err := pathID(c, "projectId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	targetID, err := pathID(c, "userId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.projectSvc.RemoveMember(c.Request.Context(), currentUserID(c), projectID, targetID); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
