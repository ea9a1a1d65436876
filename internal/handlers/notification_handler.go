package handlers

import (
	"log"
	"net/http"

	"taskflow/internal/services"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type NotificationHandler struct {
	service services.NotificationService
}

func NewNotificationHandler(service services.NotificationService) *NotificationHandler {
	return &NotificationHandler{service: service}
}

// GET /notifications?read=true|false
func (h *NotificationHandler) GetAll(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}

	var read *bool
	if v, present := c.GetQuery("read"); present {
		b := v == "true"
		read = &b
	}

	notifications, err := h.service.ListForUser(c.Request.Context(), userID, read)
	if err != nil {
		log.Printf("[notification][list][err] user=%s: %v", userID.Hex(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve notifications"})
		return
	}
	unread, err := h.service.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		log.Printf("[notification][list][err] unread count user=%s: %v", userID.Hex(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve notifications"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"notifications": notifications,
		"unreadCount":   unread,
		"total":         len(notifications),
	})
}

// GET /notifications/unread
func (h *NotificationHandler) GetUnreadCount(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}

	unread, err := h.service.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		log.Printf("[notification][unread][err] user=%s: %v", userID.Hex(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count notifications"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"unreadCount": unread})
}

// PUT /notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification id"})
		return
	}

	notification, err := h.service.MarkRead(c.Request.Context(), id, userID)
	if err != nil {
		log.Printf("[notification][mark-read][err] id=%s user=%s: %v", id.Hex(), userID.Hex(), err)
		serviceError(c, err, "failed to mark notification as read")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":      "Notification marked as read",
		"notification": notification,
	})
}

// PUT /notifications/read-all — idempotent.
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}

	if err := h.service.MarkAllRead(c.Request.Context(), userID); err != nil {
		log.Printf("[notification][mark-all-read][err] user=%s: %v", userID.Hex(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to mark notifications as read"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "All notifications marked as read"})
}

// DELETE /notifications/:id
func (h *NotificationHandler) Delete(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification id"})
		return
	}

	if err := h.service.Delete(c.Request.Context(), id, userID); err != nil {
		log.Printf("[notification][delete][err] id=%s user=%s: %v", id.Hex(), userID.Hex(), err)
		serviceError(c, err, "failed to delete notification")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification deleted successfully"})
}

// DELETE /notifications
func (h *NotificationHandler) DeleteAll(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}

	if err := h.service.DeleteAll(c.Request.Context(), userID); err != nil {
		log.Printf("[notification][delete-all][err] user=%s: %v", userID.Hex(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete notifications"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "All notifications deleted successfully"})
}
