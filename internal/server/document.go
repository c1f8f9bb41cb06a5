package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/loopwork/loopwork/internal/apperror"
	documentdomain "github.com/loopwork/loopwork/internal/document/domain"
)

func (s *Server) CreateDocument(c *gin.Context) {
	orgID, err := pathID(c, "orgId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req documentdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, apperror.Validation("request", "Invalid request body"))
		return
	}
	doc, err := s.documentSvc.Create(c.Request.Context(), currentUserID(c), orgID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, doc)
}

func (s *Server) ListDocuments(c *gin.Context) {
	orgID, err := pathID(c, "orgId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	docs, err := s.documentSvc.ListByOrg(c.Request.Context(), currentUserID(c), orgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, docs)
}

func (s *Server) GetDocument(c *gin.Context) {
	documentID, err := pathID(c, "documentId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	doc, err := s.documentSvc.Get(c.Request.Context(), currentUserID(c), documentID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (s *Server) UpdateDocument(c *gin.Context) {
	documentID, err := pathID(c, "documentId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req documentdomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, apperror.Validation("request", "Invalid request body"))
		return
	}
	doc, err := s.documentSvc.Update(c.Request.Context(), currentUserID(c), documentID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (s *Server) TogglePublicDocument(c *gin.Context) {
	documentID, err := pathID(c, "documentId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	doc, err := s.documentSvc.TogglePublic(c.Request.Context(), currentUserID(c), documentID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (s *Server) SoftDeleteDocument(c *gin.Context) {
	documentID, err := pathID(c, "documentId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.documentSvc.SoftDelete(c.Request.Context(), currentUserID(c), documentID); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) RestoreDocument(c *gin.Context) {
	documentID, err := pathID(c, "documentId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.documentSvc.Restore(c.Request.Context(), currentUserID(c), documentID); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
