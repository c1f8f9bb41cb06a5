package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/loopwork/loopwork/internal/apperror"
	issuedomain "github.com/loopwork/loopwork/internal/issue/domain"
)

func (s *Server) CreateIssue(c *gin.Context) {
	projectID, err := pathID(c, "projectId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req issuedomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, apperror.Validation("request", "Invalid request body"))
		return
	}
	issue, err := s.issueSvc.Create(c.Request.Context(), currentUserID(c), projectID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, issue)
}

func (s *Server) ListIssues(c *gin.Context) {
	projectID, err := pathID(c, "projectId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	opts := issuedomain.ListOptions{
		IncludeDeleted: c.Query("include_deleted") == "true",
	}
	issues, err := s.issueSvc.ListByProject(c.Request.Context(), currentUserID(c), projectID, opts)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, issues)
}

func (s *Server) GetIssue(c *gin.Context) {
	issueID, err := pathID(c, "issueId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	issue, err := s.issueSvc.Get(c.Request.Context(), currentUserID(c), issueID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, issue)
}

func (s *Server) UpdateIssue(c *gin.Context) {
	issueID, err := pathID(c, "issueId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req issuedomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, apperror.Validation("request", "Invalid request body"))
		return
	}
	issue, err := s.issueSvc.Update(c.Request.Context(), currentUserID(c), issueID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, issue)
}

func (s *Server) SoftDeleteIssue(c *gin.Context) {
	issueID, err := pathID(c, "issueId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.issueSvc.SoftDelete(c.Request.Context(), currentUserID(c), issueID); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) RestoreIssue(c *gin.Context) {
	issueID, err := pathID(c, "issueId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.issueSvc.Restore(c.Request.Context(), currentUserID(c), issueID); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type moveIssueRequest struct {
	TargetProjectID int64 `json:"target_project_id" binding:"required"`
}

func (s *Server) MoveIssue(c *gin.Context) {
	issueID, err := pathID(c, "issueId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req moveIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, apperror.Validation("target_project_id", "Target project is required"))
		return
	}
	issue, err := s.issueSvc.Move(c.Request.Context(), currentUserID(c), issueID, snowflake.ID(req.TargetProjectID))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, issue)
}

type bulkStatusRequest struct {
	IssueIDs []int64 `json:"issue_ids" binding:"required,min=1"`
	Status   string  `json:"status" binding:"required"`
}

func (s *Server) BulkUpdateIssueStatus(c *gin.Context) {
	var req bulkStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, apperror.Validation("request", "Invalid request body"))
		return
	}
	updated, err := s.issueSvc.BulkUpdateStatus(c.Request.Context(), currentUserID(c), toSnowflakeIDs(req.IssueIDs), req.Status)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

type bulkAssignRequest struct {
	IssueIDs   []int64 `json:"issue_ids" binding:"required,min=1"`
	AssigneeID int64   `json:"assignee_id" binding:"required"`
}

func (s *Server) BulkAssignIssues(c *gin.Context) {
	var req bulkAssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, apperror.Validation("request", "Invalid request body"))
		return
	}
	updated, err := s.issueSvc.BulkAssign(c.Request.Context(), currentUserID(c), toSnowflakeIDs(req.IssueIDs), snowflake.ID(req.AssigneeID))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

type bulkLabelsRequest struct {
	IssueIDs []int64  `json:"issue_ids" binding:"required,min=1"`
	Labels   []string `json:"labels" binding:"required,min=1"`
}

func (s *Server) BulkAddIssueLabels(c *gin.Context) {
	var req bulkLabelsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, apperror.Validation("request", "Invalid request body"))
		return
	}
	updated, err := s.issueSvc.BulkAddLabels(c.Request.Context(), currentUserID(c), toSnowflakeIDs(req.IssueIDs), req.Labels)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

type bulkDeleteRequest struct {
	IssueIDs []int64 `json:"issue_ids" binding:"required,min=1"`
}

func (s *Server) BulkDeleteIssues(c *gin.Context) {
	var req bulkDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, apperror.Validation("request", "Invalid request body"))
		return
	}
	deleted, err := s.issueSvc.BulkDelete(c.Request.Context(), currentUserID(c), toSnowflakeIDs(req.IssueIDs))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

func toSnowflakeIDs(raw []int64) []snowflake.ID {
	ids := make([]snowflake.ID, 0, len(raw))
	for _, v := range raw {
		ids = append(ids, snowflake.ID(v))
	}
	return ids
}
