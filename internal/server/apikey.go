package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apikeydomain "github.com/loopwork/loopwork/internal/apikey/domain"
	"github.com/loopwork/loopwork/internal/apperror"
)

func (s *Server) ListAPIKeys(c *gin.Context) {
	orgID, err := pathID(c, "orgId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	keys, err := s.apiKeySvc.List(c.Request.Context(), currentUserID(c), orgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, keys)
}

type apiKeyResponse struct {
	Key *apikeydomain.APIKey `json:"key"`
	// RawKey is returned exactly once, on creation or rotation.
	RawKey string `json:"raw_key"`
}

func (s *Server) CreateAPIKey(c *gin.Context) {
	orgID, err := pathID(c, "orgId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req apikeydomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, apperror.Validation("request", "Invalid request body"))
		return
	}
	key, raw, err := s.apiKeySvc.Create(c.Request.Context(), currentUserID(c), orgID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, apiKeyResponse{Key: key, RawKey: raw})
}

func (s *Server) RotateAPIKey(c *gin.Context) {
	key, raw, err := s.apiKeySvc.Rotate(c.Request.Context(), currentUserID(c), c.Param("keyId"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, apiKeyResponse{Key: key, RawKey: raw})
}

func (s *Server) RevokeAPIKey(c *gin.Context) {
	if err := s.apiKeySvc.Revoke(c.Request.Context(), currentUserID(c), c.Param("keyId")); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
