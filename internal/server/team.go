package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/loopwork/loopwork/internal/apperror"
	teamdomain "github.com/loopwork/loopwork/internal/team/domain"
)

func (s *Server) CreateTeam(c *gin.Context) {
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
	var req teamdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, apperror.Validation("request", "Invalid request body"))
		return
	}
	team, err := s.teamSvc.Create(c.Request.Context(), currentUserID(c), orgID, workspaceID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, team)
}

func (s *Server) ListTeams(c *gin.Context) {
	workspaceID, err := pathID(c, "workspaceId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	teams, err := s.teamSvc.ListByWorkspace(c.Request.Context(), currentUserID(c), workspaceID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, teams)
}

func (s *Server) GetTeam(c *gin.Context) {
	teamID, err := pathID(c, "teamId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	team, err := s.teamSvc.Get(c.Request.Context(), currentUserID(c), teamID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, team)
}

func (s *Server) UpdateTeam(c *gin.Context) {
	teamID, err := pathID(c, "teamId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req teamdomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, apperror.Validation("request", "Invalid request body"))
		return
	}
	team, err := s.teamSvc.Update(c.Request.Context(), currentUserID(c), teamID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, team)
}

func (s *Server) DeleteTeam(c *gin.Context) {
	teamID, err := pathID(c, "teamId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.teamSvc.Delete(c.Request.Context(), currentUserID(c), teamID); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) ListTeamMembers(c *gin.Context) {
	teamID, err := pathID(c, "teamId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	members, err := s.teamSvc.ListMembers(c.Request.Context(), currentUserID(c), teamID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, members)
}

func (s *Server) AddTeamMember(c *gin.Context) {
	teamID, err := pathID(c, "teamId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req memberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, apperror.Validation("request", "Invalid request body"))
		return
	}
	if err := s.teamSvc.AddMember(c.Request.Context(), currentUserID(c), teamID, snowflake.ID(req.UserID), req.Role); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) UpdateTeamMemberRole(c *gin.Context) {
	teamID, err := pathID(c, "teamId")
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
	if err := s.teamSvc.UpdateMemberRole(c.Request.Context(), currentUserID(c), teamID, targetID, req.Role); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) RemoveTeamMember(c *gin.Context) {
	teamID, err := pathID(c, "teamId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	targetID, err := pathID(c, "userId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.teamSvc.RemoveMember(c.Request.Context(), currentUserID(c), teamID, targetID); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
