package handler

import (
	"net/http"

	"github.com/dannmaldonado/midiacore/middleware"
	"github.com/dannmaldonado/midiacore/service"
	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	repo service.Repository
}

func NewNotificationHandler(repo service.Repository) *NotificationHandler {
	return &NotificationHandler{repo: repo}
}

// List returns the caller's notifications, unread first
func (h *NotificationHandler) List(c *gin.Context) {
	username := middleware.GetUsername(c)

	notifications, err := h.repo.ListNotifications(c.Request.Context(), username)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"notifications": notifications})
}

// MarkRead stamps a notification as read; only the target user may do so
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	username := middleware.GetUsername(c)
	id := c.Param("id")

	if err := h.repo.MarkNotificationRead(c.Request.Context(), id, username); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}
