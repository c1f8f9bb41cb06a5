package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) ListNotifications(c *gin.Context) {
	unreadOnly := c.Query("unread") == "true"
	items, err := s.notificationSvc.List(c.Request.Context(), currentUserID(c), unreadOnly)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (s *Server) MarkNotificationRead(c *gin.Context) {
	notificationID, err := pathID(c, "notificationId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.notificationSvc.MarkRead(c.Request.Context(), currentUserID(c), notificationID); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) MarkAllNotificationsRead(c *gin.Context) {
	if err := s.notificationSvc.MarkAllRead(c.Request.Context(), currentUserID(c)); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
