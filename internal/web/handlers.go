// internal/web/handlers.go
package web

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	perrors "pulse/internal/errors"
	"pulse/internal/notifications"
)

// POST /api/push - Deliver a push notification to the inbox
func (s *Server) receivePush(c *gin.Context) {
	var req notifications.PushPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	n, err := s.inbox.Ingest(req)
	if err != nil {
		logrus.WithError(err).Error("Failed to persist pushed notification")
		c.JSON(http.StatusInternalServerError, gin.H{"error": perrors.Describe(err)})
		return
	}

	logrus.WithFields(logrus.Fields{
		"id":   n.ID,
		"type": n.Type,
	}).Debug("Push notification received")

	c.JSON(http.StatusCreated, gin.H{"data": n})
}

// GET /api/notifications - List the inbox, newest first
func (s *Server) getNotifications(c *gin.Context) {
	list := s.inbox.List()
	c.JSON(http.StatusOK, gin.H{
		"data":   list,
		"count":  len(list),
		"unread": s.inbox.UnreadCount(),
	})
}

// POST /api/notifications/test - Add a sample notification
func (s *Server) createTestNotification(c *gin.Context) {
	n, err := s.inbox.AddTest()
	if err != nil {
		logrus.WithError(err).Error("Failed to persist test notification")
		c.JSON(http.StatusInternalServerError, gin.H{"error": perrors.Describe(err)})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": n})
}

// POST /api/notifications/:id/read
func (s *Server) markNotificationRead(c *gin.Context) {
	id := c.Param("id")

	found, err := s.inbox.MarkAsRead(id)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
		return
	}
	if err != nil {
		logrus.WithError(err).WithField("id", id).Error("Failed to persist read state")
		c.JSON(http.StatusInternalServerError, gin.H{"error": perrors.Describe(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": s.inbox.UnreadCount()})
}

// POST /api/notifications/read-all
func (s *Server) markAllNotificationsRead(c *gin.Context) {
	if err := s.inbox.MarkAllAsRead(); err != nil {
		logrus.WithError(err).Error("Failed to persist read state")
		c.JSON(http.StatusInternalServerError, gin.H{"error": perrors.Describe(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": 0})
}

// DELETE /api/notifications/:id
func (s *Server) deleteNotification(c *gin.Context) {
	id := c.Param("id")

	found, err := s.inbox.Delete(id)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
		return
	}
	if err != nil {
		logrus.WithError(err).WithField("id", id).Error("Failed to persist deletion")
		c.JSON(http.StatusInternalServerError, gin.H{"error": perrors.Describe(err)})
		return
	}
	c.Status(http.StatusNoContent)
}

// DELETE /api/notifications - Clear the inbox
func (s *Server) clearNotifications(c *gin.Context) {
	if err := s.inbox.ClearAll(); err != nil {
		logrus.WithError(err).Error("Failed to persist cleared inbox")
		c.JSON(http.StatusInternalServerError, gin.H{"error": perrors.Describe(err)})
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /api/dashboard - Latest snapshot fetched by the poller
func (s *Server) getDashboard(c *gin.Context) {
	dash, ok := s.poller.Latest()
	if !ok {
		resp := gin.H{"error": "Dashboard not loaded yet"}
		if err := s.poller.LastError(); err != nil {
			resp["details"] = perrors.Describe(err)
		}
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}

	resp := gin.H{
		"data": newDashboardView(dash),
		"age":  time.Since(dash.FetchedAt).Round(time.Second).String(),
	}
	if err := s.poller.LastError(); err != nil {
		resp["stale"] = true
		resp["last_error"] = perrors.Describe(err)
	}
	c.JSON(http.StatusOK, resp)
}

// GET /api/storage/stats
func (s *Server) getStorageStats(c *gin.Context) {
	stats, err := s.store.Stats()
	if err != nil {
		logrus.WithError(err).Error("Failed to read storage stats")
		c.JSON(http.StatusInternalServerError, gin.H{"error": perrors.Describe(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": stats})
}

// POST /api/storage/compact - Rewrite the database file to reclaim space
func (s *Server) compactStorage(c *gin.Context) {
	before, err := s.store.Stats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": perrors.Describe(err)})
		return
	}

	start := time.Now()
	if err := s.store.Compact(); err != nil {
		logrus.WithError(err).Error("Failed to compact storage")
		c.JSON(http.StatusInternalServerError, gin.H{"error": perrors.Describe(err)})
		return
	}

	after, err := s.store.Stats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": perrors.Describe(err)})
		return
	}

	logrus.WithFields(logrus.Fields{
		"before":   before.DatabaseSize,
		"after":    after.DatabaseSize,
		"duration": time.Since(start),
	}).Info("Storage compacted")

	c.JSON(http.StatusOK, gin.H{
		"message":     "Storage compacted",
		"size_before": before.DatabaseSize,
		"size_after":  after.DatabaseSize,
		"timestamp":   time.Now(),
	})
}
