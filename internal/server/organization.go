package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/loopwork/loopwork/internal/apperror"
	organizationdomain "github.com/loopwork/loopwork/internal/organization/domain"
)

type createOrganizationRequest struct {
	Name string `json:"name" binding:"required"`
}

func (s *Server) CreateOrganization(c *gin.Context) {
	var req createOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, apperror.Validation("name", "Name is required"))
		return
	}
	org, err := s.organizationSvc.Create(c.Request.Context(), currentUserID(c), organizationdomain.CreateRequest{Name: req.Name})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, org)
}

func (s *Server) ListOrganizations(c *gin.Context) {
	orgs, err := s.organizationSvc.ListByUser(c.Request.Context(), currentUserID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, orgs)
}

func (s *Server) GetOrganization(c *gin.Context) {
	orgID, err := pathID(c, "orgId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	org, err := s.organizationSvc.Get(c.Request.Context(), currentUserID(c), orgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, org)
}

type updateOrganizationRequest struct {
	Name *string `json:"name,omitempty"`
}

func (s *Server) UpdateOrganization(c *gin.Context) {
	orgID, err := pathID(c, "orgId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req updateOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, apperror.Validation("request", "Invalid request body"))
		return
	}
	org, err := s.organizationSvc.Update(c.Request.Context(), currentUserID(c), orgID, organizationdomain.UpdateRequest{Name: req.Name})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, org)
}

func (s *Server) ListOrganizationMembers(c *gin.Context) {
	orgID, err := pathID(c, "orgId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	members, err := s.organizationSvc.ListMembers(c.Request.Context(), currentUserID(c), orgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, members)
}

type memberRequest struct {
	UserID int64  `json:"user_id" binding:"required"`
	Role   string `json:"role" binding:"required"`
}

func (s *Server) AddOrganizationMember(c *gin.Context) {
	orgID, err := pathID(c, "orgId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req memberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, apperror.Validation("request", "Invalid request body"))
		return
	}
	if err := s.organizationSvc.AddMember(c.Request.Context(), currentUserID(c), orgID, snowflake.ID(req.UserID), req.Role); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type memberRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

func (s *Server) UpdateOrganizationMemberRole(c *gin.Context) {
	orgID, err := pathID(c, "orgId")
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
	if err := s.organizationSvc.UpdateMemberRole(c.Request.Context(), currentUserID(c), orgID, targetID, req.Role); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) RemoveOrganizationMember(c *gin.Context) {
	orgID, err := pathID(c, "orgId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	targetID, err := pathID(c, "userId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.organizationSvc.RemoveMember(c.Request.Context(), currentUserID(c), orgID, targetID); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type inviteRequest struct {
	Invites []struct {
		Email string `json:"email" binding:"required,email"`
		Role  string `json:"role" binding:"required"`
	} `json:"invites" binding:"required,min=1"`
}

func (s *Server) InviteOrganizationMembers(c *gin.Context) {
	orgID, err := pathID(c, "orgId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req inviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, apperror.Validation("invites", "At least one invite is required"))
		return
	}
	invites := make([]organizationdomain.InviteRequest, 0, len(req.Invites))
	for _, inv := range req.Invites {
		invites = append(invites, organizationdomain.InviteRequest{Email: inv.Email, Role: inv.Role})
	}
	if err := s.organizationSvc.InviteMembers(c.Request.Context(), currentUserID(c), orgID, invites); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type acceptInviteRequest struct {
	Email string `json:"email" binding:"required,email"`
}

func (s *Server) AcceptOrganizationInvite(c *gin.Context) {
	inviteID, err := pathID(c, "inviteId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req acceptInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, apperror.Validation("email", "Email is required"))
		return
	}
	if err := s.organizationSvc.AcceptInvite(c.Request.Context(), currentUserID(c), inviteID, req.Email); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
