package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/loopwork/loopwork/internal/apperror"
	customfielddomain "github.com/loopwork/loopwork/internal/customfield/domain"
)

func (s *Server) CreateCustomField(c *gin.Context) {
	projectID, err := pathID(c, "projectId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req customfielddomain.CreateFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, apperror.Validation("request", "Invalid request body"))
		return
	}
	field, err := s.customFieldSvc.CreateField(c.Request.Context(), currentUserID(c), projectID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, field)
}

func (s *Server) ListCustomFields(c *gin.Context) {
	projectID, err := pathID(c, "projectId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	fields, err := s.customFieldSvc.ListFields(c.Request.Context(), currentUserID(c), projectID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, fields)
}

func (s *Server) UpdateCustomField(c *gin.Context) {
	fieldID, err := pathID(c, "fieldId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req customfielddomain.UpdateFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, apperror.Validation("request", "Invalid request body"))
		return
	}
	field, err := s.customFieldSvc.UpdateField(c.Request.Context(), currentUserID(c), fieldID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, field)
}

func (s *Server) SoftDeleteCustomField(c *gin.Context) {
	fieldID, err := pathID(c, "fieldId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.customFieldSvc.SoftDeleteField(c.Request.Context(), currentUserID(c), fieldID); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type setFieldValueRequest struct {
	Value string `json:"value"`
}

func (s *Server) SetCustomFieldValue(c *gin.Context) {
	issueID, err := pathID(c, "issueId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	fieldID, err := pathID(c, "fieldId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req setFieldValueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, apperror.Validation("request", "Invalid request body"))
		return
	}
	value, err := s.customFieldSvc.SetValue(c.Request.Context(), currentUserID(c), issueID, fieldID, req.Value)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, value)
}

func (s *Server) ListCustomFieldValues(c *gin.Context) {
	issueID, err := pathID(c, "issueId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	values, err := s.customFieldSvc.ListValues(c.Request.Context(), currentUserID(c), issueID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, values)
}
